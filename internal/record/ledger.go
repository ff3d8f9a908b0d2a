package record

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"portal/internal/portal"
)

// AppendEntry writes one ledger row. Duplicate content is accepted: the
// ledger has no uniqueness constraint, by design, so re-processing the same
// capture appends again.
func (r *Repository) AppendEntry(ctx context.Context, e AttendanceEntry) (AttendanceEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_entries (id, student_id, student_name, day, captured_at, subject, status, confidence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, e.StudentID, e.StudentName, e.Date, e.CapturedAt, e.Subject, e.Status, e.Confidence)
	if err != nil {
		return AttendanceEntry{}, portal.Storagef("append attendance", err)
	}
	return e, nil
}

const entryColumns = `id, student_id, student_name, day, captured_at, subject, status, confidence`

// EntriesByDate returns ledger rows whose stored date string equals the
// given day. Absent backing rows is an empty result, not an error.
func (r *Repository) EntriesByDate(ctx context.Context, date string) ([]AttendanceEntry, error) {
	if r.db == nil {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM attendance_entries
		WHERE day = $1
		ORDER BY captured_at
	`, date)
	if err != nil {
		return nil, portal.Storagef("entries by date", err)
	}
	return collectEntries(rows)
}

// AllEntries returns the full ledger, newest capture first.
func (r *Repository) AllEntries(ctx context.Context) ([]AttendanceEntry, error) {
	if r.db == nil {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM attendance_entries
		ORDER BY captured_at DESC
	`)
	if err != nil {
		return nil, portal.Storagef("all entries", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]AttendanceEntry, error) {
	defer rows.Close()
	var res []AttendanceEntry
	for rows.Next() {
		var e AttendanceEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.StudentName, &e.Date,
			&e.CapturedAt, &e.Subject, &e.Status, &e.Confidence); err != nil {
			return nil, portal.Storagef("scan attendance", err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, portal.Storagef("read attendance", err)
	}
	return res, nil
}
