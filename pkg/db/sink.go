package db

import (
	"time"
)

// SessionSink adapts a Store to the attendance loop's sink interface,
// registering unknown names on the fly and marking them in a fixed
// session.
type SessionSink struct {
	store     *Store
	sessionID string
}

// NewSessionSink creates a sink that marks attendance in the given
// session.
func NewSessionSink(store *Store, sessionID string) *SessionSink {
	return &SessionSink{store: store, sessionID: sessionID}
}

// Record marks the named person present in the sink's session.
func (s *SessionSink) Record(name string, at time.Time) error {
	if _, err := s.store.AddPerson(name, ""); err != nil {
		return err
	}
	_, err := s.store.Mark(s.sessionID, name, at)
	return err
}
