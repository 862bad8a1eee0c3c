package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Outcome is how an upload attempt ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected" // refused before reaching the API
)

// Entry is one row in the upload history.
type Entry struct {
	Timestamp time.Time
	File      string
	Size      int64
	Outcome   Outcome
	Message   string
}

// Header is the CSV header for the history file.
const Header = "timestamp,file,size,outcome,message"

const (
	numFields  = 5
	colTime    = 0
	colFile    = 1
	colSize    = 2
	colOutcome = 3
	colMessage = 4
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colFile] = e.File
	row[colSize] = strconv.FormatInt(e.Size, 10)
	row[colOutcome] = string(e.Outcome)
	row[colMessage] = e.Message
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}
	size, err := strconv.ParseInt(record[colSize], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing size %q: %w", record[colSize], err)
	}

	return Entry{
		Timestamp: ts,
		File:      record[colFile],
		Size:      size,
		Outcome:   Outcome(record[colOutcome]),
		Message:   record[colMessage],
	}, nil
}

// Log appends upload attempts to a CSV file.
type Log struct {
	path string
}

// NewLog returns a Log writing to path. An empty path disables it.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Enabled reports whether the log has somewhere to write.
func (l *Log) Enabled() bool {
	return l != nil && l.path != ""
}

// Append writes entries, creating the file and header if needed.
func (l *Log) Append(entries ...Entry) error {
	if !l.Enabled() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries, oldest first. A missing file yields no entries.
func (l *Log) Read() ([]Entry, error) {
	if !l.Enabled() {
		return nil, nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
