// facemark-agent streams webcam frames to a facemark server over
// websocket, so attendance can be taken on a machine away from the
// camera.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/websocket"

	"github.com/facemark/facemark/pkg/camera"
	"github.com/facemark/facemark/pkg/config"
	"github.com/facemark/facemark/pkg/logging"
	"github.com/facemark/facemark/pkg/server"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8000/ws", "facemark server websocket URL")
	origin := flag.String("origin", "http://localhost/", "websocket origin header")
	subject := flag.String("subject", "", "session subject")
	device := flag.String("device", "", "camera device (overrides config)")
	fps := flag.Int("fps", 2, "frames per second to send")
	configFile := flag.String("config", "", "path to configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	var cfg *config.Config
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
	if err := logging.Init(logLevel, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize logging: %v\n", err)
	}

	cameraDevice := cfg.Camera.Device
	if *device != "" {
		cameraDevice = *device
	}

	if err := run(*serverURL, *origin, *subject, cameraDevice, *fps, cfg); err != nil {
		logging.WithError(err).Error("Agent failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(serverURL, origin, subject, device string, fps int, cfg *config.Config) error {
	if fps <= 0 {
		fps = 1
	}

	cam, err := camera.Open(device)
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer cam.Close()

	if err := cam.SetResolution(cfg.Camera.Width, cfg.Camera.Height); err != nil {
		logging.Warnf("Failed to set camera resolution: %v", err)
	}
	cam.Warmup(cfg.Camera.WarmupFrames)

	conn, err := websocket.Dial(serverURL, "", origin)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL, err)
	}
	defer conn.Close()

	sessionID, err := startSession(conn, subject)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s started, streaming at %d fps. Press Ctrl-C to stop.\n", sessionID, fps)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-stop:
			fmt.Println("\nStopping...")
			return stopSession(conn, sessionID, frames)
		case <-ticker.C:
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			logging.Warnf("Failed to read frame: %v", err)
			continue
		}

		reply, err := sendMessage(conn, "frame", server.FrameData{
			SessionID: sessionID,
			Image:     base64.StdEncoding.EncodeToString(frame.Data),
		})
		if err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		if reply.Type == "error" {
			logging.Warnf("Server rejected frame: %s", reply.Error)
			continue
		}
		frames++

		for _, name := range reply.Marked {
			fmt.Printf("Marked present: %s\n", name)
		}
	}
}

func startSession(conn *websocket.Conn, subject string) (string, error) {
	reply, err := sendMessage(conn, "start", server.StartData{Subject: subject})
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	if reply.Type != "started" {
		return "", fmt.Errorf("failed to start session: %s", reply.Error)
	}
	return reply.SessionID, nil
}

func stopSession(conn *websocket.Conn, sessionID string, frames int) error {
	reply, err := sendMessage(conn, "stop", server.StopData{SessionID: sessionID})
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to stop session: %w", err)
	}
	if reply.Type == "error" {
		return fmt.Errorf("failed to stop session: %s", reply.Error)
	}

	fmt.Printf("Session %s finished: %d frames sent, %d marked present\n",
		sessionID, frames, len(reply.Marked))
	for _, name := range reply.Marked {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func sendMessage(conn *websocket.Conn, msgType string, data any) (*server.Reply, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if err := websocket.JSON.Send(conn, server.Message{Type: msgType, Data: raw}); err != nil {
		return nil, err
	}
	var reply server.Reply
	if err := websocket.JSON.Receive(conn, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
