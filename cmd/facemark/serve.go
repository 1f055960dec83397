package main

import (
	"fmt"

	"github.com/facemark/facemark/pkg/attendance"
	"github.com/facemark/facemark/pkg/db"
	"github.com/facemark/facemark/pkg/recognition"
	"github.com/facemark/facemark/pkg/server"
)

func cmdServe(args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	rec := recognition.NewRecognizer()
	if err := rec.LoadModels(cfg.Recognition.ModelPath); err != nil {
		return fmt.Errorf("failed to load recognition models: %w", err)
	}
	defer rec.Close()

	gallery, err := loadGallery(rec)
	if err != nil {
		return err
	}
	if len(gallery) == 0 {
		return fmt.Errorf("no identities enrolled, run 'facemark enroll' first")
	}
	matcher := attendance.NewMatcher(gallery, cfg.Recognition.Tolerance)

	journal, err := attendance.OpenJournal(cfg.Attendance.JournalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	var store *db.Store
	if cfg.Database.Enabled {
		store, err = db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
	}

	// Frames are pushed by remote agents, so the runner has no local
	// frame source here.
	runner := attendance.NewRunner(nil, rec, matcher, journal)
	runner.DetectEvery = 1

	srv := server.New(runner, store, cfg.Server.MaxFrameBytes)

	fmt.Printf("Serving on %s (%d enrolled)\n", cfg.Server.Addr, len(gallery))
	fmt.Println("  /ws      websocket frame intake")
	fmt.Println("  /stream  MJPEG preview")
	fmt.Println("  /health  health check")
	return srv.ListenAndServe(cfg.Server.Addr)
}
