package main

import (
	"fmt"
	"os"

	"github.com/facemark/facemark/pkg/db"
)

func openStore() (*db.Store, error) {
	if !cfg.Database.Enabled {
		return nil, fmt.Errorf("database is disabled, enable it in the configuration first")
	}
	return db.Open(cfg.Database.Path)
}

func cmdSessions(args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded.")
		return nil
	}

	fmt.Println("Sessions:")
	for _, session := range sessions {
		state := "active"
		if !session.Active() {
			state = "ended " + session.EndedAt.Format("2006-01-02 15:04:05")
		}
		subject := session.Subject
		if subject == "" {
			subject = "-"
		}
		stats, err := store.Stats(session.ID)
		if err != nil {
			return err
		}
		fmt.Printf("  %s  started %s  %-8s %d/%d present (%s)\n",
			session.ID, session.StartedAt.Format("2006-01-02 15:04:05"),
			subject, stats.Present, stats.Total, state)
	}
	fmt.Printf("\nTotal: %d session(s)\n", len(sessions))
	return nil
}

func cmdExport(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("session ID required\nUsage: facemark export <session-id> [file]")
	}
	sessionID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	out := os.Stdout
	if len(args) > 1 {
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := store.ExportCSV(sessionID, out); err != nil {
		return err
	}

	if out != os.Stdout {
		stats, err := store.Stats(sessionID)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d of %d people to %s\n", stats.Present, stats.Total, args[1])
	}
	return nil
}
