package main

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/facemark/facemark/pkg/db"
	"github.com/facemark/facemark/pkg/enroll"
	"github.com/facemark/facemark/pkg/logging"
	"github.com/facemark/facemark/pkg/recognition"
	"github.com/facemark/facemark/pkg/storage"
)

func cmdEnroll(args []string) error {
	referenceDir := cfg.Attendance.ReferenceDir
	if len(args) > 0 {
		referenceDir = args[0]
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	rec := recognition.NewRecognizer()
	if err := rec.LoadModels(cfg.Recognition.ModelPath); err != nil {
		return fmt.Errorf("failed to load recognition models: %w", err)
	}
	defer rec.Close()

	fmt.Printf("Enrolling faces from %s...\n", referenceDir)

	loader := enroll.NewLoader(rec)
	var bar *progressbar.ProgressBar
	loader.OnImage = func(index, total int, name string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Enrolling faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Add(1)
	}

	gallery, err := loader.LoadDirectory(referenceDir)
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	if cfg.Storage.CacheEnabled {
		store, err := storage.NewGalleryStore(cfg.GalleryCachePath(), cfg.Storage.EncryptionEnabled)
		if err != nil {
			return fmt.Errorf("failed to open gallery cache: %w", err)
		}
		if err := store.Save(gallery); err != nil {
			return fmt.Errorf("failed to save gallery cache: %w", err)
		}
		logging.Debugf("Gallery cache written: %s", cfg.GalleryCachePath())
	}

	if cfg.Database.Enabled {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		for _, identity := range gallery {
			if _, err := store.AddPerson(identity.Name, ""); err != nil {
				return fmt.Errorf("failed to register %s: %w", identity.Name, err)
			}
		}
	}

	fmt.Printf("Enrolled %d identities:\n", len(gallery))
	for _, identity := range gallery {
		fmt.Printf("  - %s\n", identity.Name)
	}
	return nil
}

func cmdList(args []string) error {
	logging.Debug("Listing enrolled people")

	gallery, err := loadGallery(nil)
	if err != nil {
		if errors.Is(err, enroll.ErrNoImages) || errors.Is(err, storage.ErrCacheMiss) {
			fmt.Println("No people enrolled.")
			return nil
		}
		return err
	}
	if len(gallery) == 0 {
		fmt.Println("No people enrolled.")
		return nil
	}

	fmt.Println("Enrolled people:")
	for _, identity := range gallery {
		fmt.Printf("  - %s\n", identity.Name)
	}
	fmt.Printf("\nTotal: %d\n", len(gallery))
	return nil
}

// loadGallery loads the enrolled gallery, preferring the cache when it
// is enabled. rec may be nil, in which case only the cache is tried.
func loadGallery(rec *recognition.DlibRecognizer) ([]enroll.Identity, error) {
	if cfg.Storage.CacheEnabled {
		store, err := storage.NewGalleryStore(cfg.GalleryCachePath(), cfg.Storage.EncryptionEnabled)
		if err != nil {
			return nil, fmt.Errorf("failed to open gallery cache: %w", err)
		}
		gallery, err := store.Load()
		if err == nil {
			logging.Debugf("Gallery loaded from cache (%d identities)", len(gallery))
			return gallery, nil
		}
		if !errors.Is(err, storage.ErrCacheMiss) {
			logging.Warnf("Failed to load gallery cache, re-enrolling: %v", err)
		}
		if rec == nil {
			return nil, err
		}
	}

	if rec == nil {
		return nil, fmt.Errorf("gallery cache is disabled, run 'facemark enroll' first")
	}

	loader := enroll.NewLoader(rec)
	gallery, err := loader.LoadDirectory(cfg.Attendance.ReferenceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference images: %w", err)
	}

	if cfg.Storage.CacheEnabled {
		store, err := storage.NewGalleryStore(cfg.GalleryCachePath(), cfg.Storage.EncryptionEnabled)
		if err == nil {
			if err := store.Save(gallery); err != nil {
				logging.Warnf("Failed to write gallery cache: %v", err)
			}
		}
	}
	return gallery, nil
}
