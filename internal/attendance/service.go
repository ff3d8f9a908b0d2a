// Package attendance merges recognizer output into the append-only ledger
// and serves date-scoped and grouped history reads.
package attendance

import (
	"context"
	"time"

	"portal/internal/record"
)

// Ledger is the slice of the record store holding attendance entries.
type Ledger interface {
	AppendEntry(ctx context.Context, e record.AttendanceEntry) (record.AttendanceEntry, error)
	EntriesByDate(ctx context.Context, date string) ([]record.AttendanceEntry, error)
	AllEntries(ctx context.Context) ([]record.AttendanceEntry, error)
}

// Service is the attendance aggregator.
type Service struct {
	ledger Ledger
}

// NewService creates an aggregator over the given ledger.
func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

// DayGroup is one calendar day of history. The key is the literal stored
// date string; two spellings of the same day form two groups.
type DayGroup struct {
	Date    string                   `json:"date"`
	Entries []record.AttendanceEntry `json:"entries"`
}

// Ingest appends one ledger entry per recognized row, status as reported
// by the recognizer. No dedup is applied: re-processing the same capture
// appends again, and K rows in always means K appends. Consumers needing
// exactly-once must dedup on (student, date, subject, time) themselves.
func (s *Service) Ingest(ctx context.Context, subject string, capturedAt time.Time, rows []map[string]any) ([]record.AttendanceEntry, error) {
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}
	day := capturedAt.Format("2006-01-02")

	out := make([]record.AttendanceEntry, 0, len(rows))
	for _, row := range rows {
		entry := record.AttendanceEntry{
			StudentID:   stringField(row, "student_id"),
			StudentName: stringField(row, "name"),
			Date:        day,
			CapturedAt:  capturedAt,
			Subject:     subject,
			Status:      stringField(row, "status"),
			Confidence:  floatField(row, "confidence", "similarity"),
		}
		if d := stringField(row, "date"); d != missingField {
			entry.Date = d
		}
		if entry.Status == missingField {
			// Recognizer only reports matches; a row without an explicit
			// status is a recognized (present) student.
			entry.Status = "Present"
		}
		if entry.Subject == "" {
			entry.Subject = stringField(row, "subject")
		}
		stored, err := s.ledger.AppendEntry(ctx, entry)
		if err != nil {
			return out, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// ByDate returns every entry whose stored date equals the given day.
func (s *Service) ByDate(ctx context.Context, date string) ([]record.AttendanceEntry, error) {
	return s.ledger.EntriesByDate(ctx, date)
}

// All returns the full ledger grouped by the literal date field value,
// groups ordered by first appearance in the store's newest-first read.
func (s *Service) All(ctx context.Context) ([]DayGroup, error) {
	entries, err := s.ledger.AllEntries(ctx)
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	var groups []DayGroup
	for _, e := range entries {
		i, ok := index[e.Date]
		if !ok {
			i = len(groups)
			index[e.Date] = i
			groups = append(groups, DayGroup{Date: e.Date})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups, nil
}
