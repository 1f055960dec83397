package attendance

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/facemark/facemark/pkg/logging"
)

// TimeFormat is the timestamp layout of journal rows.
const TimeFormat = "2006-01-02 15:04:05"

const dayFormat = "2006-01-02"

var journalHeader = []string{"Name", "Time"}

// Journal is the append-only CSV attendance log. It records at most one
// row per identity per calendar day; rows already present for the
// current day are loaded on open so restarts do not duplicate entries.
// Safe for concurrent use; the server feeds it from one goroutine per
// connection.
type Journal struct {
	path string
	file *os.File

	mu     sync.Mutex
	marked map[string]time.Time
	day    string

	// now is overridable for tests.
	now func() time.Time
}

// OpenJournal opens (or creates) the journal at path. A new file gets
// exactly one header row.
func OpenJournal(path string) (*Journal, error) {
	j := &Journal{
		path:   path,
		marked: make(map[string]time.Time),
		now:    time.Now,
	}
	j.day = j.now().Format(dayFormat)

	if err := j.loadExisting(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	j.file = file

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}
	if info.Size() == 0 {
		if err := j.writeRow(journalHeader); err != nil {
			file.Close()
			return nil, err
		}
	}

	return j, nil
}

// loadExisting reads today's rows from an existing journal file.
func (j *Journal) loadExisting() error {
	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read journal: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("journal is not valid CSV: %w", err)
	}

	for i, row := range records {
		if i == 0 || len(row) < 2 {
			continue
		}
		ts, err := time.ParseInLocation(TimeFormat, row[1], time.Local)
		if err != nil {
			logging.Warnf("Skipping malformed journal row %d: %q", i+1, row)
			continue
		}
		if ts.Format(dayFormat) == j.day {
			j.marked[row[0]] = ts
		}
	}

	if len(j.marked) > 0 {
		logging.Infof("Journal already holds %d entr(ies) for today", len(j.marked))
	}
	return nil
}

// Mark appends a record for name unless it was already logged today.
// Returns true when a new row was written.
func (j *Journal) Mark(name string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()

	// Day rollover clears the dedupe set so long-running sessions keep
	// logging across midnight.
	if day := now.Format(dayFormat); day != j.day {
		j.day = day
		j.marked = make(map[string]time.Time)
	}

	if _, ok := j.marked[name]; ok {
		return false, nil
	}

	if err := j.writeRow([]string{name, now.Format(TimeFormat)}); err != nil {
		return false, err
	}

	j.marked[name] = now
	return true, nil
}

func (j *Journal) writeRow(row []string) error {
	w := csv.NewWriter(j.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write journal row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	return nil
}

// MarkedToday reports whether name was already logged today.
func (j *Journal) MarkedToday(name string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.marked[name]
	return ok
}

// Count returns the number of identities logged today.
func (j *Journal) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.marked)
}

// Names returns the identities logged today, ordered by check-in time.
func (j *Journal) Names() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, 0, len(j.marked))
	for name := range j.marked {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool {
		ta, tb := j.marked[names[a]], j.marked[names[b]]
		if ta.Equal(tb) {
			return names[a] < names[b]
		}
		return ta.Before(tb)
	})
	return names
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
