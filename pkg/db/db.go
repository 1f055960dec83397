// Package db persists people, sessions, and attendance records in
// SQLite. It is an optional backend behind the CSV journal; the
// journal stays authoritative when the database is disabled.
package db

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/facemark/facemark/pkg/logging"
)

var (
	// ErrPersonNotFound indicates the named person is not registered.
	ErrPersonNotFound = errors.New("person not found")

	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoActiveSession indicates a record arrived with no open session.
	ErrNoActiveSession = errors.New("no active session")
)

// Person is an enrolled identity.
type Person struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	PhotoPath string
	CreatedAt time.Time
}

// Session is one attendance-taking run.
type Session struct {
	ID        string `gorm:"primaryKey"`
	Subject   string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Active reports whether the session has not been ended yet.
func (s Session) Active() bool {
	return s.EndedAt == nil
}

// Record is one person marked present in one session. The composite
// unique index makes repeated sightings idempotent.
type Record struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"uniqueIndex:idx_session_person;not null"`
	PersonID    uint   `gorm:"uniqueIndex:idx_session_person;not null"`
	Person      Person
	CheckInTime time.Time
	Status      string `gorm:"default:present"`
}

// Store wraps the SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and
// migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Person{}, &Session{}, &Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	logging.Debugf("Database opened: %s", path)
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddPerson registers a person, returning the existing row when the
// name is already known.
func (s *Store) AddPerson(name, photoPath string) (*Person, error) {
	person := Person{Name: name, PhotoPath: photoPath}
	err := s.db.Where(Person{Name: name}).
		Attrs(Person{PhotoPath: photoPath, CreatedAt: time.Now()}).
		FirstOrCreate(&person).Error
	if err != nil {
		return nil, fmt.Errorf("failed to register person %s: %w", name, err)
	}
	return &person, nil
}

// PersonByName looks up a registered person.
func (s *Store) PersonByName(name string) (*Person, error) {
	var person Person
	err := s.db.Where("name = ?", name).First(&person).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPersonNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// People returns all registered people ordered by name.
func (s *Store) People() ([]Person, error) {
	var people []Person
	if err := s.db.Order("name").Find(&people).Error; err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	return people, nil
}

// StartSession opens a new session with the given ID and subject.
func (s *Store) StartSession(id, subject string) (*Session, error) {
	session := Session{ID: id, Subject: subject, StartedAt: time.Now()}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	logging.Infof("Session started: %s (%s)", id, subject)
	return &session, nil
}

// EndSession stamps the session's end time. Ending an already ended
// session is a no-op.
func (s *Store) EndSession(id string) error {
	session, err := s.SessionByID(id)
	if err != nil {
		return err
	}
	if !session.Active() {
		return nil
	}
	now := time.Now()
	if err := s.db.Model(session).Update("ended_at", &now).Error; err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	logging.Infof("Session ended: %s", id)
	return nil
}

// SessionByID fetches one session.
func (s *Store) SessionByID(id string) (*Session, error) {
	var session Session
	err := s.db.First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Sessions returns all sessions, newest first.
func (s *Store) Sessions() ([]Session, error) {
	var sessions []Session
	if err := s.db.Order("started_at desc").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Mark records a person present in a session. Repeated marks for the
// same person and session return false without error.
func (s *Store) Mark(sessionID, name string, at time.Time) (bool, error) {
	person, err := s.PersonByName(name)
	if err != nil {
		return false, err
	}

	record := Record{
		SessionID:   sessionID,
		PersonID:    person.ID,
		CheckInTime: at,
		Status:      "present",
	}
	result := s.db.Where(Record{SessionID: sessionID, PersonID: person.ID}).
		Attrs(Record{CheckInTime: at, Status: "present"}).
		FirstOrCreate(&record)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark %s in session %s: %w", name, sessionID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SessionStats summarizes one session.
type SessionStats struct {
	SessionID  string
	Subject    string
	Total      int64
	Present    int64
	Absent     int64
	Percentage float64
}

// Stats computes attendance counts for a session against the full
// register of people.
func (s *Store) Stats(sessionID string) (*SessionStats, error) {
	session, err := s.SessionByID(sessionID)
	if err != nil {
		return nil, err
	}

	stats := SessionStats{SessionID: session.ID, Subject: session.Subject}
	if err := s.db.Model(&Person{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&Record{}).Where("session_id = ?", sessionID).Count(&stats.Present).Error; err != nil {
		return nil, err
	}
	stats.Absent = stats.Total - stats.Present
	if stats.Total > 0 {
		stats.Percentage = float64(stats.Present) / float64(stats.Total) * 100
	}
	return &stats, nil
}

// Records returns a session's records with people preloaded, in
// check-in order.
func (s *Store) Records(sessionID string) ([]Record, error) {
	var records []Record
	err := s.db.Preload("Person").
		Where("session_id = ?", sessionID).
		Order("check_in_time").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load records for session %s: %w", sessionID, err)
	}
	return records, nil
}

// ExportCSV writes a session's attendance as CSV to w.
func (s *Store) ExportCSV(sessionID string, w io.Writer) error {
	records, err := s.Records(sessionID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Time", "Status"}); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, record := range records {
		row := []string{
			record.Person.Name,
			record.CheckInTime.Format("2006-01-02 15:04:05"),
			record.Status,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
