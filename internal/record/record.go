// Package record is the durable store for uploaded files and the
// append-only attendance ledger.
package record

import "time"

// Category partitions the file store.
type Category string

const (
	// CategoryHandwritingSample files are unique per owner and replaced
	// in place on re-upload.
	CategoryHandwritingSample Category = "handwriting_sample"
	// CategoryAssignment files accumulate as a submission history.
	CategoryAssignment Category = "assignment"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryHandwritingSample || c == CategoryAssignment
}

// FileRecord is one stored upload belonging to one owner.
type FileRecord struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	OwnerName   string     `json:"owner_name,omitempty"`
	Category    Category   `json:"category"`
	Content     []byte     `json:"-"`
	ContentType string     `json:"content_type"`
	FileName    string     `json:"file_name"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	Marks       *float64   `json:"marks,omitempty"`
}

// Evaluated reports whether marks have been attached.
func (f FileRecord) Evaluated() bool { return f.Marks != nil }

// AttendanceEntry is one append-only row of the attendance ledger.
// Entries are never mutated or deleted.
type AttendanceEntry struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Date        string    `json:"date"`
	CapturedAt  time.Time `json:"captured_at"`
	Subject     string    `json:"subject"`
	Status      string    `json:"status"`
	Confidence  float64   `json:"confidence"`
}

// ComparisonJob tracks one asynchronous handwriting comparison.
type ComparisonJob struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	Status      string     `json:"status"`
	Similarity  *float64   `json:"similarity,omitempty"`
	Verdict     string     `json:"verdict,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Comparison job states.
const (
	JobPending = "pending"
	JobDone    = "done"
	JobFailed  = "failed"
)
