package attendance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/record"
)

type fakeLedger struct {
	nextID  int
	entries []record.AttendanceEntry
}

func (f *fakeLedger) AppendEntry(_ context.Context, e record.AttendanceEntry) (record.AttendanceEntry, error) {
	f.nextID++
	e.ID = fmt.Sprintf("e%d", f.nextID)
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeLedger) EntriesByDate(_ context.Context, date string) ([]record.AttendanceEntry, error) {
	var out []record.AttendanceEntry
	for _, e := range f.entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedger) AllEntries(_ context.Context) ([]record.AttendanceEntry, error) {
	return f.entries, nil
}

var captureTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func TestIngestAppendsOnePerRecognizedStudent(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ledger)

	rows := []map[string]any{
		{"student_id": "s1", "name": "Alice", "status": "Present", "confidence": 0.95},
		{"student_id": "s2", "name": "Bob", "status": "Present", "confidence": 0.81},
	}
	entries, err := svc.Ingest(context.Background(), "Physics", captureTime, rows)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byDate, err := svc.ByDate(context.Background(), "2024-05-01")
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, "s1", byDate[0].StudentID)
	assert.Equal(t, "Alice", byDate[0].StudentName)
	assert.Equal(t, "Present", byDate[0].Status)
	assert.Equal(t, "Physics", byDate[0].Subject)
	assert.InDelta(t, 0.95, byDate[0].Confidence, 1e-9)
}

func TestIngestIsAppendOnlyAcrossReprocessing(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ledger)
	rows := []map[string]any{
		{"student_id": "s1", "status": "Present"},
		{"student_id": "s2", "status": "Present"},
		{"student_id": "s3", "status": "Absent"},
	}

	// Same capture processed twice: duplicates accumulate, no dedup.
	_, err := svc.Ingest(context.Background(), "Maths", captureTime, rows)
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), "Maths", captureTime, rows)
	require.NoError(t, err)

	assert.Len(t, ledger.entries, 6)
}

func TestIngestNormalizesAliasedKeys(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ledger)

	rows := []map[string]any{
		{"studentId": "s9", "studentName": "Dana", "Status": "Absent", "similarity": 0.4},
		{"id": "s10"},
	}
	entries, err := svc.Ingest(context.Background(), "Chemistry", captureTime, rows)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "s9", entries[0].StudentID)
	assert.Equal(t, "Dana", entries[0].StudentName)
	assert.Equal(t, "Absent", entries[0].Status)
	assert.InDelta(t, 0.4, entries[0].Confidence, 1e-9)

	assert.Equal(t, "s10", entries[1].StudentID)
	assert.Equal(t, "N/A", entries[1].StudentName, "absent field falls back through aliases to N/A")
	assert.Equal(t, "Present", entries[1].Status, "recognized row without status is present")
}

func TestIngestPrefersRowSuppliedDate(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ledger)

	rows := []map[string]any{
		{"student_id": "s1", "date": "2024-04-30"},
	}
	entries, err := svc.Ingest(context.Background(), "Physics", captureTime, rows)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-30", entries[0].Date)
}

func TestAllGroupsByLiteralDateString(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ledger)
	ctx := context.Background()

	// Two spellings of the same day stay distinct: grouping is string
	// equality, not date parsing.
	seed := []record.AttendanceEntry{
		{StudentID: "s1", Date: "2024-05-01", Subject: "Physics"},
		{StudentID: "s2", Date: "01/05/2024", Subject: "Physics"},
		{StudentID: "s3", Date: "2024-05-01", Subject: "Maths"},
	}
	for _, e := range seed {
		_, err := ledger.AppendEntry(ctx, e)
		require.NoError(t, err)
	}

	groups, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-05-01", groups[0].Date)
	assert.Len(t, groups[0].Entries, 2)
	assert.Equal(t, "01/05/2024", groups[1].Date)
	assert.Len(t, groups[1].Entries, 1)
}

func TestByDateEmptyLedger(t *testing.T) {
	svc := NewService(&fakeLedger{})
	entries, err := svc.ByDate(context.Background(), "2024-05-01")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
