// Package config provides configuration management for facemark.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all facemark configuration.
type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Attendance  AttendanceConfig  `yaml:"attendance"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CameraConfig holds webcam settings.
type CameraConfig struct {
	Device       string `yaml:"device"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	FPS          int    `yaml:"fps"`
	WarmupFrames int    `yaml:"warmup_frames"`
}

// RecognitionConfig holds face recognition settings.
type RecognitionConfig struct {
	Tolerance   float64 `yaml:"tolerance"`
	ModelPath   string  `yaml:"model_path"`
	DetectEvery int     `yaml:"detect_every"`
}

// AttendanceConfig holds attendance journal settings.
type AttendanceConfig struct {
	ReferenceDir string `yaml:"reference_dir"`
	JournalPath  string `yaml:"journal_path"`
}

// DatabaseConfig holds the optional SQLite attendance database settings.
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig holds the frame intake server settings.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxFrameBytes int    `yaml:"max_frame_bytes"`
}

// StorageConfig holds gallery cache settings.
type StorageConfig struct {
	DataDir           string `yaml:"data_dir"`
	CacheEnabled      bool   `yaml:"cache_enabled"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local/share/facemark")
	return &Config{
		Camera: CameraConfig{
			Device:       "0",
			Width:        640,
			Height:       480,
			FPS:          30,
			WarmupFrames: 10,
		},
		Recognition: RecognitionConfig{
			Tolerance:   0.5,
			ModelPath:   filepath.Join(dataDir, "models"),
			DetectEvery: 30,
		},
		Attendance: AttendanceConfig{
			ReferenceDir: filepath.Join(dataDir, "people"),
			JournalPath:  filepath.Join(dataDir, "attendance.csv"),
		},
		Database: DatabaseConfig{
			Enabled: false,
			Path:    filepath.Join(dataDir, "attendance.db"),
		},
		Server: ServerConfig{
			Addr:          ":8000",
			MaxFrameBytes: 8 << 20,
		},
		Storage: StorageConfig{
			DataDir:           dataDir,
			CacheEnabled:      true,
			EncryptionEnabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load loads configuration from the specified file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("/etc/facemark/facemark.yaml"); err == nil {
		return Load("/etc/facemark/facemark.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, ".config/facemark/facemark.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	return DefaultConfig(), nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Recognition.ModelPath = ExpandPath(c.Recognition.ModelPath)
	c.Attendance.ReferenceDir = ExpandPath(c.Attendance.ReferenceDir)
	c.Attendance.JournalPath = ExpandPath(c.Attendance.JournalPath)
	c.Database.Path = ExpandPath(c.Database.Path)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("invalid camera FPS: %d", c.Camera.FPS)
	}
	if c.Camera.WarmupFrames < 0 {
		return fmt.Errorf("warmup_frames must not be negative, got %d", c.Camera.WarmupFrames)
	}

	if c.Recognition.Tolerance <= 0 || c.Recognition.Tolerance > 1 {
		return fmt.Errorf("tolerance must be between 0 and 1, got %f", c.Recognition.Tolerance)
	}
	if c.Recognition.DetectEvery <= 0 {
		return fmt.Errorf("detect_every must be positive, got %d", c.Recognition.DetectEvery)
	}

	if c.Attendance.JournalPath == "" {
		return fmt.Errorf("journal_path must not be empty")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database enabled but path is empty")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	if c.Server.MaxFrameBytes <= 0 {
		return fmt.Errorf("max_frame_bytes must be positive, got %d", c.Server.MaxFrameBytes)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// EnsureDirectories creates the directories the application writes to.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := os.MkdirAll(c.Recognition.ModelPath, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.Attendance.JournalPath), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	if c.Database.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.Database.Path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if c.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return nil
}

// GalleryCachePath returns the path of the enrolled gallery cache file.
func (c *Config) GalleryCachePath() string {
	name := "gallery.json"
	if c.Storage.EncryptionEnabled {
		name = "gallery.enc"
	}
	return filepath.Join(c.Storage.DataDir, name)
}
