package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facemark/facemark/pkg/camera"
	"github.com/facemark/facemark/pkg/logging"
	"github.com/facemark/facemark/pkg/recognition"
)

// FrameSource produces camera frames. Satisfied by camera.Webcam.
type FrameSource interface {
	ReadFrame() (*camera.Frame, error)
}

// Recognizer extracts faces from a JPEG frame. Satisfied by
// recognition.DlibRecognizer.
type Recognizer interface {
	DetectFaces(data []byte) ([]recognition.Face, error)
}

// Sink receives attendance events besides the journal, e.g. the
// optional database store.
type Sink interface {
	Record(name string, at time.Time) error
}

// Sighting is one recognized face in a frame. New reports whether the
// sighting produced a journal row, or the identity was already marked.
type Sighting struct {
	Name     string
	Distance float64
	New      bool
}

// NewlyMarked returns the names of the sightings that wrote a journal
// row, in order.
func NewlyMarked(sightings []Sighting) []string {
	var names []string
	for _, s := range sightings {
		if s.New {
			names = append(names, s.Name)
		}
	}
	return names
}

// SessionResult summarizes one attendance run.
type SessionResult struct {
	Started  time.Time
	Stopped  time.Time
	Frames   int
	Detected int
	Marked   []string
}

// Duration returns how long the session ran.
func (r SessionResult) Duration() time.Duration {
	return r.Stopped.Sub(r.Started)
}

// maxConsecutiveFailures aborts the run when the frame source keeps
// failing, so a dead camera does not spin forever.
const maxConsecutiveFailures = 30

// Runner drives the attendance loop: read a frame, extract faces every
// DetectEvery frames, match each against the gallery, and journal the
// first sighting of every identity. Single-threaded and blocking; stop
// it by cancelling the context.
type Runner struct {
	source  FrameSource
	rec     Recognizer
	matcher *Matcher
	journal *Journal
	sinks   []Sink

	// DetectEvery runs detection on every Nth frame only, to bound CPU.
	DetectEvery int
}

// NewRunner creates a Runner. Extra sinks are optional.
func NewRunner(source FrameSource, rec Recognizer, matcher *Matcher, journal *Journal, sinks ...Sink) *Runner {
	return &Runner{
		source:      source,
		rec:         rec,
		matcher:     matcher,
		journal:     journal,
		sinks:       sinks,
		DetectEvery: 30,
	}
}

// Run executes the attendance loop until the context is cancelled or an
// unrecoverable error occurs. A journal write failure aborts the run.
func (r *Runner) Run(ctx context.Context) (SessionResult, error) {
	result := SessionResult{Started: time.Now()}
	defer func() { result.Stopped = time.Now() }()

	detectEvery := r.DetectEvery
	if detectEvery <= 0 {
		detectEvery = 1
	}

	logging.Infof("Attendance session started (%d enrolled, threshold %.2f)",
		r.matcher.Size(), r.matcher.Threshold())

	failures := 0
	for {
		select {
		case <-ctx.Done():
			logging.Infof("Attendance session stopped: %d present of %d enrolled",
				r.journal.Count(), r.matcher.Size())
			return result, nil
		default:
		}

		frame, err := r.source.ReadFrame()
		if err != nil {
			failures++
			if failures >= maxConsecutiveFailures {
				return result, fmt.Errorf("frame source failed %d times in a row: %w", failures, err)
			}
			logging.Warnf("Failed to read frame: %v", err)
			continue
		}
		failures = 0
		result.Frames++

		if result.Frames%detectEvery != 0 {
			continue
		}

		sightings, err := r.ProcessFrame(frame.Data, &result)
		if err != nil {
			return result, err
		}
		for _, name := range NewlyMarked(sightings) {
			logging.Infof("Marked present: %s", name)
		}
	}
}

// ProcessFrame runs detection and matching on one JPEG frame and
// journals any newly seen identities. Returns every recognized face,
// flagged with whether this frame marked it. Frames with no face are
// skipped silently.
func (r *Runner) ProcessFrame(data []byte, result *SessionResult) ([]Sighting, error) {
	faces, err := r.rec.DetectFaces(data)
	if err != nil {
		if errors.Is(err, recognition.ErrNoFaceDetected) {
			logging.Debug("No face in frame")
			return nil, nil
		}
		logging.Warnf("Face detection failed: %v", err)
		return nil, nil
	}

	var sightings []Sighting
	for _, face := range faces {
		match, ok := r.matcher.Match(face.Descriptor)
		if !ok {
			logging.Debugf("Unknown face (nearest %q at %.4f)", match.Name, match.Distance)
			continue
		}
		if result != nil {
			result.Detected++
		}

		newlyMarked, err := r.journal.Mark(match.Name)
		if err != nil {
			return sightings, fmt.Errorf("failed to record attendance for %s: %w", match.Name, err)
		}
		sightings = append(sightings, Sighting{
			Name:     match.Name,
			Distance: match.Distance,
			New:      newlyMarked,
		})
		if !newlyMarked {
			logging.Debugf("Already marked today: %s (distance %.4f)", match.Name, match.Distance)
			continue
		}

		for _, sink := range r.sinks {
			if err := sink.Record(match.Name, time.Now()); err != nil {
				logging.Warnf("Attendance sink failed for %s: %v", match.Name, err)
			}
		}

		if result != nil {
			result.Marked = append(result.Marked, match.Name)
		}
	}

	return sightings, nil
}
