package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInit(t *testing.T) {
	// Reset logger before tests
	Logger = logrus.New()

	tests := []struct {
		name    string
		level   string
		logFile string
		wantErr bool
	}{
		{
			name:    "debug level",
			level:   "debug",
			logFile: "",
			wantErr: false,
		},
		{
			name:    "info level",
			level:   "info",
			logFile: "",
			wantErr: false,
		},
		{
			name:    "warn level",
			level:   "warn",
			logFile: "",
			wantErr: false,
		},
		{
			name:    "error level",
			level:   "error",
			logFile: "",
			wantErr: false,
		},
		{
			name:    "unknown level defaults to info",
			level:   "unknown",
			logFile: "",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = logrus.New()
			err := Init(tt.level, tt.logFile)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInit_WithLogFile(t *testing.T) {
	Logger = logrus.New()
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	err := Init("info", logFile)
	if err != nil {
		t.Fatalf("Init with log file failed: %v", err)
	}

	// Check log file was created
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestInit_CreateDirectory(t *testing.T) {
	Logger = logrus.New()
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "subdir", "nested", "test.log")

	err := Init("info", logFile)
	if err != nil {
		t.Fatalf("Init with nested log file failed: %v", err)
	}

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("nested log file was not created")
	}
}

func TestSetLevel(t *testing.T) {
	Logger = logrus.New()

	tests := []struct {
		level    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			SetLevel(tt.level)
			if Logger.GetLevel() != tt.expected {
				t.Errorf("expected level %v, got %v", tt.expected, Logger.GetLevel())
			}
		})
	}
}

func TestLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer
	Logger = logrus.New()
	Logger.SetOutput(&buf)
	Logger.SetLevel(logrus.DebugLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	buf.Reset()
	Debug("debug message")
	if !strings.Contains(buf.String(), "debug message") {
		t.Error("Debug message not logged")
	}

	buf.Reset()
	Debugf("debug %s", "formatted")
	if !strings.Contains(buf.String(), "debug formatted") {
		t.Error("Debugf message not logged")
	}

	buf.Reset()
	Infof("info %d", 42)
	if !strings.Contains(buf.String(), "info 42") {
		t.Error("Infof message not logged")
	}

	buf.Reset()
	Warnf("warn %s", "here")
	if !strings.Contains(buf.String(), "warn here") {
		t.Error("Warnf message not logged")
	}

	buf.Reset()
	Errorf("error %s", "here")
	if !strings.Contains(buf.String(), "error here") {
		t.Error("Errorf message not logged")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	Logger = logrus.New()
	Logger.SetOutput(&buf)
	Logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	WithFields(Fields{"name": "alice", "distance": 0.42}).Info("matched")
	out := buf.String()
	if !strings.Contains(out, "name=alice") {
		t.Errorf("field missing from output: %s", out)
	}

	buf.Reset()
	Component("journal").Info("row written")
	if !strings.Contains(buf.String(), "component=journal") {
		t.Errorf("component field missing: %s", buf.String())
	}
}
