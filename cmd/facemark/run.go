package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/facemark/facemark/pkg/attendance"
	"github.com/facemark/facemark/pkg/camera"
	"github.com/facemark/facemark/pkg/db"
	"github.com/facemark/facemark/pkg/logging"
	"github.com/facemark/facemark/pkg/recognition"
)

func cmdRun(args []string) error {
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

	cam, err := camera.Open(cfg.Camera.Device)
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer cam.Close()

	if err := cam.SetResolution(cfg.Camera.Width, cfg.Camera.Height); err != nil {
		logging.Warnf("Failed to set camera resolution: %v", err)
	}
	cam.Warmup(cfg.Camera.WarmupFrames)

	var sinks []attendance.Sink
	if cfg.Database.Enabled {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		sessionID := uuid.New().String()
		if _, err := store.StartSession(sessionID, ""); err != nil {
			return err
		}
		defer func() {
			if err := store.EndSession(sessionID); err != nil {
				logging.Warnf("Failed to close session: %v", err)
			}
		}()
		sinks = append(sinks, db.NewSessionSink(store, sessionID))
	}

	runner := attendance.NewRunner(cam, rec, matcher, journal, sinks...)
	runner.DetectEvery = cfg.Recognition.DetectEvery

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping...")
		cancel()
	}()

	fmt.Printf("Taking attendance (%d enrolled, journal %s). Press Ctrl-C to stop.\n",
		len(gallery), journal.Path())

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Session finished after %s\n", result.Duration().Round(time.Second))
	fmt.Printf("  Frames read:    %d\n", result.Frames)
	fmt.Printf("  Faces matched:  %d\n", result.Detected)
	fmt.Printf("  Marked present: %d\n", len(result.Marked))
	for _, name := range result.Marked {
		fmt.Printf("    - %s\n", name)
	}
	return nil
}
