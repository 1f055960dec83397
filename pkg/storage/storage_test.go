package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/facemark/facemark/pkg/enroll"
	"github.com/facemark/facemark/pkg/recognition"
)

func testGallery(names ...string) []enroll.Identity {
	gallery := make([]enroll.Identity, len(names))
	for i, name := range names {
		var d recognition.Descriptor
		d[0] = float32(i + 1)
		gallery[i] = enroll.Identity{Name: name, Descriptor: d}
	}
	return gallery
}

func TestGalleryStore_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name       string
		encryption bool
	}{
		{name: "plain", encryption: false},
		{name: "encrypted", encryption: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "gallery.cache")
			gs, err := NewGalleryStore(path, tt.encryption)
			if err != nil {
				t.Fatalf("NewGalleryStore failed: %v", err)
			}

			gallery := testGallery("alice", "bob")
			if err := gs.Save(gallery); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := gs.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if len(loaded) != 2 {
				t.Fatalf("expected 2 identities, got %d", len(loaded))
			}
			if loaded[0].Name != "alice" || loaded[1].Name != "bob" {
				t.Errorf("unexpected names: %v", enroll.Names(loaded))
			}
			if loaded[0].Descriptor[0] != 1 || loaded[1].Descriptor[0] != 2 {
				t.Error("descriptors not preserved")
			}
		})
	}
}

func TestGalleryStore_EncryptedFileIsNotJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.enc")
	gs, err := NewGalleryStore(path, true)
	if err != nil {
		t.Fatalf("NewGalleryStore failed: %v", err)
	}

	if err := gs.Save(testGallery("alice")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read cache file: %v", err)
	}
	if len(data) > 0 && data[0] == '{' {
		t.Error("cache file does not appear to be encrypted")
	}
}

func TestGalleryStore_LoadMissing(t *testing.T) {
	gs, err := NewGalleryStore(filepath.Join(t.TempDir(), "missing.cache"), false)
	if err != nil {
		t.Fatalf("NewGalleryStore failed: %v", err)
	}

	_, err = gs.Load()
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestGalleryStore_Stale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.cache")
	gs, err := NewGalleryStore(path, false)
	if err != nil {
		t.Fatalf("NewGalleryStore failed: %v", err)
	}

	// Missing cache is stale.
	if !gs.Stale([]string{"alice"}) {
		t.Error("missing cache should be stale")
	}

	if err := gs.Save(testGallery("alice", "bob")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tests := []struct {
		name  string
		names []string
		stale bool
	}{
		{name: "same set", names: []string{"alice", "bob"}, stale: false},
		{name: "same set reordered", names: []string{"bob", "alice"}, stale: false},
		{name: "added", names: []string{"alice", "bob", "carol"}, stale: true},
		{name: "removed", names: []string{"alice"}, stale: true},
		{name: "renamed", names: []string{"alice", "carol"}, stale: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gs.Stale(tt.names); got != tt.stale {
				t.Errorf("Stale(%v) = %v, want %v", tt.names, got, tt.stale)
			}
		})
	}
}

func TestGalleryStore_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.cache")
	gs, err := NewGalleryStore(path, false)
	if err != nil {
		t.Fatalf("NewGalleryStore failed: %v", err)
	}

	if err := gs.Save(testGallery("alice")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := gs.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := gs.Load(); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss after Remove, got %v", err)
	}

	// Removing a missing cache is fine.
	if err := gs.Remove(); err != nil {
		t.Errorf("Remove on missing cache: %v", err)
	}
}
