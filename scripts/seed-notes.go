// seed-notes creates a user row and a few notes for local development.
//
//	go run scripts/seed-notes.go -user-id <provider user id> -email you@example.com
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/notebook/notebook/internal/model"
	"github.com/notebook/notebook/internal/repository"
)

type output struct {
	UserID  string   `json:"user_id"`
	Email   string   `json:"email"`
	NoteIDs []string `json:"note_ids"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		userID      = flag.String("user-id", "", "Identity provider user id to own the notes")
		email       = flag.String("email", "", "User email")
		count       = flag.Int("count", 3, "Number of notes to create")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	ident := model.Identity{ID: strings.TrimSpace(*userID), Email: strings.TrimSpace(*email)}
	if !ident.Valid() {
		fmt.Fprintln(os.Stderr, "-user-id and -email are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if _, err := repo.UpsertUser(ctx, ident); err != nil {
		fmt.Fprintln(os.Stderr, "upsert user:", err)
		os.Exit(1)
	}

	out := output{UserID: ident.ID, Email: ident.Email}
	base := time.Now().UTC()
	for i := 0; i < *count; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		note := &model.Note{
			ID:        ulid.Make().String(),
			AuthorID:  ident.ID,
			Text:      fmt.Sprintf("Seed note %d\nCreated by seed-notes.", i+1),
			CreatedAt: at,
			UpdatedAt: at,
		}
		if err := repo.CreateNote(ctx, note); err != nil {
			fmt.Fprintln(os.Stderr, "create note:", err)
			os.Exit(1)
		}
		out.NoteIDs = append(out.NoteIDs, note.ID)
	}

	switch strings.ToLower(*format) {
	case "plain":
		for _, id := range out.NoteIDs {
			fmt.Println(id)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
