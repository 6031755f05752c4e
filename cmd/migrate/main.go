// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate [-database-url URL] up
//	migrate [-database-url URL] -steps N down
//	migrate [-database-url URL] version
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/notebook/notebook/migrations"
)

func main() {
	_ = godotenv.Load()

	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		steps       = flag.Int("steps", 1, "Number of migrations to roll back with down")
	)
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [flags] up|down|version")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *databaseURL, *steps); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(command, databaseURL string, steps int) error {
	switch command {
	case "up":
		if err := migrations.Up(databaseURL); err != nil {
			return err
		}
		fmt.Println("migrations applied")
	case "down":
		if steps < 1 {
			return fmt.Errorf("steps must be at least 1, got %d", steps)
		}
		if err := migrations.Down(databaseURL, steps); err != nil {
			return err
		}
		fmt.Printf("rolled back %d migration(s)\n", steps)
	case "version":
		version, dirty, err := migrations.Version(databaseURL)
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
	default:
		return fmt.Errorf("unknown command %q; use up, down or version", command)
	}
	return nil
}
