package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	// Check camera defaults
	if cfg.Camera.Device != "0" {
		t.Errorf("expected camera device 0, got %s", cfg.Camera.Device)
	}
	if cfg.Camera.Width != 640 {
		t.Errorf("expected camera width 640, got %d", cfg.Camera.Width)
	}
	if cfg.Camera.Height != 480 {
		t.Errorf("expected camera height 480, got %d", cfg.Camera.Height)
	}
	if cfg.Camera.FPS != 30 {
		t.Errorf("expected camera FPS 30, got %d", cfg.Camera.FPS)
	}

	// Check recognition defaults
	if cfg.Recognition.Tolerance != 0.5 {
		t.Errorf("expected tolerance 0.5, got %f", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.DetectEvery != 30 {
		t.Errorf("expected detect_every 30, got %d", cfg.Recognition.DetectEvery)
	}

	// Check database defaults
	if cfg.Database.Enabled {
		t.Error("expected database to be disabled by default")
	}

	// Check server defaults
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected server addr :8000, got %s", cfg.Server.Addr)
	}
	if cfg.Server.MaxFrameBytes != 8<<20 {
		t.Errorf("expected max frame bytes %d, got %d", 8<<20, cfg.Server.MaxFrameBytes)
	}

	// Check storage defaults
	if !cfg.Storage.CacheEnabled {
		t.Error("expected gallery cache to be enabled by default")
	}
	if cfg.Storage.EncryptionEnabled {
		t.Error("expected encryption to be disabled by default")
	}

	// Check logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	configContent := `
camera:
  device: /dev/video1
  width: 1280
  height: 720
  fps: 60

recognition:
  tolerance: 0.4
  model_path: /custom/models
  detect_every: 10

attendance:
  reference_dir: /custom/people
  journal_path: /custom/attendance.csv

database:
  enabled: true
  path: /custom/attendance.db

server:
  addr: ":9000"

storage:
  data_dir: /custom/data
  encryption_enabled: true

logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Camera.Device != "/dev/video1" {
		t.Errorf("expected camera device /dev/video1, got %s", cfg.Camera.Device)
	}
	if cfg.Camera.Width != 1280 {
		t.Errorf("expected camera width 1280, got %d", cfg.Camera.Width)
	}
	if cfg.Recognition.Tolerance != 0.4 {
		t.Errorf("expected tolerance 0.4, got %f", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.DetectEvery != 10 {
		t.Errorf("expected detect_every 10, got %d", cfg.Recognition.DetectEvery)
	}
	if cfg.Attendance.JournalPath != "/custom/attendance.csv" {
		t.Errorf("expected journal path /custom/attendance.csv, got %s", cfg.Attendance.JournalPath)
	}
	if !cfg.Database.Enabled {
		t.Error("expected database to be enabled")
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected server addr :9000, got %s", cfg.Server.Addr)
	}
	if !cfg.Storage.EncryptionEnabled {
		t.Error("expected encryption to be enabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Camera.WarmupFrames != 10 {
		t.Errorf("expected warmup_frames default 10, got %d", cfg.Camera.WarmupFrames)
	}
	if cfg.Server.MaxFrameBytes != 8<<20 {
		t.Errorf("expected max frame bytes default, got %d", cfg.Server.MaxFrameBytes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/facemark.yaml")
	if err == nil {
		t.Error("expected an error for missing file")
	}
	if cfg == nil {
		t.Fatal("expected defaults even on error")
	}
	if cfg.Recognition.Tolerance != 0.5 {
		t.Errorf("expected default tolerance, got %f", cfg.Recognition.Tolerance)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero resolution",
			mutate:  func(c *Config) { c.Camera.Width = 0 },
			wantErr: "resolution",
		},
		{
			name:    "negative fps",
			mutate:  func(c *Config) { c.Camera.FPS = -1 },
			wantErr: "FPS",
		},
		{
			name:    "tolerance too large",
			mutate:  func(c *Config) { c.Recognition.Tolerance = 1.5 },
			wantErr: "tolerance",
		},
		{
			name:    "zero detect_every",
			mutate:  func(c *Config) { c.Recognition.DetectEvery = 0 },
			wantErr: "detect_every",
		},
		{
			name:    "empty journal path",
			mutate:  func(c *Config) { c.Attendance.JournalPath = "" },
			wantErr: "journal_path",
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got := ExpandPath("~/data")
	want := filepath.Join(homeDir, "data")
	if got != want {
		t.Errorf("ExpandPath(~/data) = %q, want %q", got, want)
	}

	if got := ExpandPath("/absolute/path"); got != "/absolute/path" {
		t.Errorf("absolute path changed: %q", got)
	}
}

func TestGalleryCachePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = "/data"

	if got := cfg.GalleryCachePath(); got != "/data/gallery.json" {
		t.Errorf("expected /data/gallery.json, got %s", got)
	}

	cfg.Storage.EncryptionEnabled = true
	if got := cfg.GalleryCachePath(); got != "/data/gallery.enc" {
		t.Errorf("expected /data/gallery.enc, got %s", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(tmpDir, "data")
	cfg.Recognition.ModelPath = filepath.Join(tmpDir, "models")
	cfg.Attendance.JournalPath = filepath.Join(tmpDir, "journal", "attendance.csv")
	cfg.Database.Enabled = true
	cfg.Database.Path = filepath.Join(tmpDir, "db", "attendance.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{
		cfg.Storage.DataDir,
		cfg.Recognition.ModelPath,
		filepath.Dir(cfg.Attendance.JournalPath),
		filepath.Dir(cfg.Database.Path),
	} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}
