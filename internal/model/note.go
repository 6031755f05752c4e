package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxNoteIDLength bounds client-supplied note ids.
	MaxNoteIDLength = 64
	// MaxNoteTextBytes bounds the stored note body.
	MaxNoteTextBytes = 100_000
	// previewRunes is the sidebar preview length.
	previewRunes = 40
)

// Note is a free-form text document owned by exactly one user.
type Note struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether userID is the note's author.
func (n *Note) OwnedBy(userID string) bool {
	return n != nil && userID != "" && n.AuthorID == userID
}

// Preview returns the first line of the note, truncated for the sidebar.
// Empty notes preview as "EMPTY NOTE".
func (n *Note) Preview() string {
	text := strings.TrimSpace(n.Text)
	if text == "" {
		return "EMPTY NOTE"
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}

// IsValidNoteID reports whether id may be used as a note identifier.
// Allowed: 1-64 chars of [A-Za-z0-9_-].
func IsValidNoteID(id string) bool {
	if id == "" || len(id) > MaxNoteIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
