// Package server exposes the attendance pipeline over HTTP: a
// websocket endpoint that accepts camera frames from remote agents,
// an MJPEG preview of the last received frame, and a health check.
package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/facemark/facemark/pkg/attendance"
	"github.com/facemark/facemark/pkg/db"
	"github.com/facemark/facemark/pkg/logging"
)

// FrameProcessor matches and journals faces found on one JPEG frame.
// Satisfied by attendance.Runner.
type FrameProcessor interface {
	ProcessFrame(data []byte, result *attendance.SessionResult) ([]attendance.Sighting, error)
}

// Message is the envelope for every websocket request.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StartData opens a session.
type StartData struct {
	Subject string `json:"subject"`
}

// FrameData carries one base64-encoded JPEG frame.
type FrameData struct {
	SessionID string `json:"session_id"`
	Image     string `json:"image"`
}

// StopData closes a session.
type StopData struct {
	SessionID string `json:"session_id"`
}

// MatchInfo is one recognized face in a result reply.
type MatchInfo struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	New      bool    `json:"new"`
}

// Reply is the envelope for every websocket response. Matches lists
// every face recognized on the frame; Marked only the names that were
// newly journaled.
type Reply struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Matches   []MatchInfo `json:"matches,omitempty"`
	Marked    []string    `json:"marked,omitempty"`
	Frames    int         `json:"frames,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Server serves the websocket intake and the HTTP side endpoints.
type Server struct {
	processor     FrameProcessor
	store         *db.Store
	sessions      *SessionManager
	maxFrameBytes int

	frameMu   sync.RWMutex
	lastFrame []byte
	frameAt   time.Time
}

// New creates a server. store may be nil when the database is
// disabled.
func New(processor FrameProcessor, store *db.Store, maxFrameBytes int) *Server {
	if maxFrameBytes <= 0 {
		maxFrameBytes = 8 << 20
	}
	return &Server{
		processor:     processor,
		store:         store,
		sessions:      NewSessionManager(),
		maxFrameBytes: maxFrameBytes,
	}
}

// Handler returns the HTTP mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", websocket.Handler(s.handleWebsocket))
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe starts the server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	logging.Infof("Listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleWebsocket(ws *websocket.Conn) {
	logging.Debugf("Websocket client connected: %s", ws.Request().RemoteAddr)
	defer logging.Debugf("Websocket client disconnected: %s", ws.Request().RemoteAddr)

	for {
		var msg Message
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			if err != io.EOF {
				logging.Warnf("Failed to read websocket message: %v", err)
			}
			return
		}

		reply := s.dispatch(msg)
		if err := websocket.JSON.Send(ws, reply); err != nil {
			logging.Warnf("Failed to send websocket reply: %v", err)
			return
		}
	}
}

func (s *Server) dispatch(msg Message) Reply {
	switch msg.Type {
	case "start":
		return s.handleStart(msg.Data)
	case "frame":
		return s.handleFrame(msg.Data)
	case "stop":
		return s.handleStop(msg.Data)
	default:
		return errorReply(fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (s *Server) handleStart(data json.RawMessage) Reply {
	var req StartData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return errorReply(fmt.Errorf("invalid start message: %w", err))
		}
	}

	session := s.sessions.Start(req.Subject)
	if s.store != nil {
		if _, err := s.store.StartSession(session.ID, req.Subject); err != nil {
			logging.Warnf("Failed to persist session %s: %v", session.ID, err)
		}
	}

	logging.Infof("Remote session started: %s", session.ID)
	return Reply{Type: "started", SessionID: session.ID}
}

func (s *Server) handleFrame(data json.RawMessage) Reply {
	var req FrameData
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply(fmt.Errorf("invalid frame message: %w", err))
	}

	session, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return errorReply(err)
	}

	// Agents may send a data URL (data:image/jpeg;base64,...);
	// only the part after the last comma is the payload.
	payload := req.Image
	if idx := strings.LastIndexByte(payload, ','); idx >= 0 {
		payload = payload[idx+1:]
	}
	jpeg, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return errorReply(fmt.Errorf("invalid frame encoding: %w", err))
	}
	if len(jpeg) > s.maxFrameBytes {
		return errorReply(fmt.Errorf("frame too large: %d bytes", len(jpeg)))
	}

	s.setLastFrame(jpeg)

	sightings, err := s.processor.ProcessFrame(jpeg, nil)
	if err != nil {
		return errorReply(err)
	}

	matches := make([]MatchInfo, len(sightings))
	for i, sighting := range sightings {
		matches[i] = MatchInfo{
			Name:     sighting.Name,
			Distance: sighting.Distance,
			New:      sighting.New,
		}
	}
	marked := attendance.NewlyMarked(sightings)
	session.AddFrame(marked)
	s.persistMarks(session.ID, marked)

	return Reply{Type: "result", SessionID: session.ID, Matches: matches, Marked: marked}
}

// persistMarks mirrors newly journaled names into the database session
// when persistence is enabled.
func (s *Server) persistMarks(sessionID string, marked []string) {
	if s.store == nil || len(marked) == 0 {
		return
	}
	sink := db.NewSessionSink(s.store, sessionID)
	for _, name := range marked {
		if err := sink.Record(name, time.Now()); err != nil {
			logging.Warnf("Failed to persist mark for %s: %v", name, err)
		}
	}
}

func (s *Server) handleStop(data json.RawMessage) Reply {
	var req StopData
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply(fmt.Errorf("invalid stop message: %w", err))
	}

	session, err := s.sessions.Stop(req.SessionID)
	if err != nil {
		return errorReply(err)
	}
	if s.store != nil {
		if err := s.store.EndSession(session.ID); err != nil {
			logging.Warnf("Failed to close session %s: %v", session.ID, err)
		}
	}

	logging.Infof("Remote session stopped: %s (%d frames, %d marked)",
		session.ID, session.Frames(), len(session.Marked()))
	return Reply{
		Type:      "stopped",
		SessionID: session.ID,
		Marked:    session.Marked(),
		Frames:    session.Frames(),
	}
}

func (s *Server) setLastFrame(jpeg []byte) {
	s.frameMu.Lock()
	s.lastFrame = append(s.lastFrame[:0], jpeg...)
	s.frameAt = time.Now()
	s.frameMu.Unlock()
}

// LastFrame returns a copy of the most recently received frame.
func (s *Server) LastFrame() ([]byte, time.Time) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if s.lastFrame == nil {
		return nil, time.Time{}
	}
	out := make([]byte, len(s.lastFrame))
	copy(out, s.lastFrame)
	return out, s.frameAt
}

// handleStream serves an MJPEG preview of the incoming frames.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, _ := s.LastFrame()
		if frame != nil {
			if _, err := io.WriteString(w, "\r\n--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}

		time.Sleep(100 * time.Millisecond)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, frameAt := s.LastFrame()
	status := map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.Active(),
	}
	if !frameAt.IsZero() {
		status["last_frame_at"] = frameAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logging.Warnf("Failed to write health response: %v", err)
	}
}

func errorReply(err error) Reply {
	logging.Debugf("Websocket request failed: %v", err)
	return Reply{Type: "error", Error: err.Error()}
}
