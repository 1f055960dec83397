package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/facemark/facemark/pkg/config"
	"github.com/facemark/facemark/pkg/logging"
)

const version = "0.1.0"

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

var (
	cfg      *config.Config
	commands map[string]*Command
)

func init() {
	commands = map[string]*Command{
		"enroll": {
			Name:        "enroll",
			Description: "Build the gallery from reference images",
			Usage:       "facemark enroll [directory]",
			Run:         cmdEnroll,
		},
		"run": {
			Name:        "run",
			Description: "Take attendance from the webcam until interrupted",
			Usage:       "facemark run",
			Run:         cmdRun,
		},
		"serve": {
			Name:        "serve",
			Description: "Accept frames from remote agents over websocket",
			Usage:       "facemark serve",
			Run:         cmdServe,
		},
		"list": {
			Name:        "list",
			Description: "List enrolled people",
			Usage:       "facemark list",
			Run:         cmdList,
		},
		"sessions": {
			Name:        "sessions",
			Description: "List recorded sessions in the database",
			Usage:       "facemark sessions",
			Run:         cmdSessions,
		},
		"export": {
			Name:        "export",
			Description: "Export a session's attendance as CSV",
			Usage:       "facemark export <session-id> [file]",
			Run:         cmdExport,
		},
		"download-models": {
			Name:        "download-models",
			Description: "Download the dlib face recognition models",
			Usage:       "facemark download-models [directory]",
			Run:         cmdDownloadModels,
		},
		"config": {
			Name:        "config",
			Description: "Show current configuration",
			Usage:       "facemark config",
			Run:         cmdConfig,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "facemark version",
			Run:         cmdVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "facemark help [command]",
			Run:         cmdHelp,
		},
	}
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	args := flag.Args()

	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	cfg.ExpandPaths()

	logLevel := cfg.Logging.Level
	if *debug {
		logLevel = "debug"
	}
	if err := logging.Init(logLevel, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	logging.Debugf("Facemark v%s starting", version)

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.Run(args[1:]); err != nil {
		logging.WithError(err).Errorf("Command '%s' failed", cmdName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Facemark - Face Recognition Attendance")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: facemark [options] <command> [arguments]")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <file>   Path to configuration file")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("\nCommands:")
	for _, name := range []string{"enroll", "run", "serve", "list", "sessions", "export", "download-models", "config", "version", "help"} {
		cmd := commands[name]
		fmt.Printf("  %-16s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  facemark enroll ./people     # Build the gallery from ./people")
	fmt.Println("  facemark run                 # Take attendance from the webcam")
	fmt.Println("  facemark -debug run          # Take attendance with debug output")
	fmt.Println("\nRun 'facemark help <command>' for more information on a command.")
}

func cmdConfig(args []string) error {
	logging.Debug("Showing configuration")

	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("[Camera]")
	fmt.Printf("  Device:          %s\n", cfg.Camera.Device)
	fmt.Printf("  Resolution:      %dx%d @ %d FPS\n", cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS)
	fmt.Printf("  Warmup Frames:   %d\n", cfg.Camera.WarmupFrames)
	fmt.Println()
	fmt.Println("[Recognition]")
	fmt.Printf("  Tolerance:       %.2f\n", cfg.Recognition.Tolerance)
	fmt.Printf("  Detect Every:    %d frames\n", cfg.Recognition.DetectEvery)
	fmt.Printf("  Model Path:      %s\n", cfg.Recognition.ModelPath)
	fmt.Println()
	fmt.Println("[Attendance]")
	fmt.Printf("  Reference Dir:   %s\n", cfg.Attendance.ReferenceDir)
	fmt.Printf("  Journal Path:    %s\n", cfg.Attendance.JournalPath)
	fmt.Println()
	fmt.Println("[Database]")
	fmt.Printf("  Enabled:         %t\n", cfg.Database.Enabled)
	fmt.Printf("  Path:            %s\n", cfg.Database.Path)
	fmt.Println()
	fmt.Println("[Server]")
	fmt.Printf("  Addr:            %s\n", cfg.Server.Addr)
	fmt.Printf("  Max Frame Bytes: %d\n", cfg.Server.MaxFrameBytes)
	fmt.Println()
	fmt.Println("[Storage]")
	fmt.Printf("  Data Dir:        %s\n", cfg.Storage.DataDir)
	fmt.Printf("  Cache Enabled:   %t\n", cfg.Storage.CacheEnabled)
	fmt.Printf("  Encryption:      %t\n", cfg.Storage.EncryptionEnabled)
	fmt.Println()
	fmt.Println("[Logging]")
	fmt.Printf("  Level:           %s\n", cfg.Logging.Level)
	fmt.Printf("  File:            %s\n", cfg.Logging.File)

	return nil
}

func cmdVersion(args []string) error {
	fmt.Printf("Facemark v%s\n", version)
	fmt.Println("Face Recognition Attendance")
	fmt.Println()
	fmt.Println("Build Information:")
	fmt.Printf("  Go version: %s\n", "1.21+")
	fmt.Printf("  Platform:   linux/amd64\n")
	return nil
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Printf("Command: %s\n", cmd.Name)
	fmt.Printf("Description: %s\n", cmd.Description)
	fmt.Printf("Usage: %s\n", cmd.Usage)

	switch cmdName {
	case "enroll":
		fmt.Println("\nEnrollment Process:")
		fmt.Println("  1. Collect one clear photo per person")
		fmt.Println("  2. Name each file after the person (alice.jpg -> alice)")
		fmt.Println("  3. Place them in the reference directory")
		fmt.Println("  4. Images without a detectable face are skipped")
	case "run":
		fmt.Println("\nAttendance Process:")
		fmt.Println("  1. The webcam is opened and frames are scanned continuously")
		fmt.Println("  2. Each recognized person is written to the journal once per day")
		fmt.Println("  3. Stop with Ctrl-C; a summary is printed at the end")
	case "export":
		fmt.Println("\nWrites the session's records as 'Name,Time,Status' rows.")
		fmt.Println("Requires the database to be enabled in the configuration.")
	case "config":
		fmt.Println("\nConfiguration Locations:")
		fmt.Println("  System: /etc/facemark/facemark.yaml")
		fmt.Println("  User:   ~/.config/facemark/facemark.yaml")
		fmt.Println("\nUse -config flag to specify a custom config file.")
	}

	return nil
}
