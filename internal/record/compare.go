package record

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"portal/internal/portal"
)

// InsertJob enqueues a pending handwriting-comparison job row.
func (r *Repository) InsertJob(ctx context.Context, studentID string) (ComparisonJob, error) {
	if studentID == "" {
		return ComparisonJob{}, portal.Validationf("student_id required")
	}
	job := ComparisonJob{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Status:    JobPending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comparison_jobs (id, student_id, status, created_at)
		VALUES ($1,$2,$3,$4)
	`, job.ID, job.StudentID, job.Status, job.CreatedAt)
	if err != nil {
		return ComparisonJob{}, portal.Storagef("insert job", err)
	}
	return job, nil
}

// CompleteJob records a finished comparison.
func (r *Repository) CompleteJob(ctx context.Context, id string, similarity float64, verdict string) error {
	return r.finishJob(ctx, id, JobDone, &similarity, verdict)
}

// FailJob marks a comparison as failed with a diagnostic verdict.
func (r *Repository) FailJob(ctx context.Context, id, verdict string) error {
	return r.finishJob(ctx, id, JobFailed, nil, verdict)
}

func (r *Repository) finishJob(ctx context.Context, id, status string, similarity *float64, verdict string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE comparison_jobs
		SET status = $2, similarity = $3, verdict = $4, completed_at = NOW()
		WHERE id = $1
	`, id, status, similarity, verdict)
	if err != nil {
		return portal.Storagef("finish job", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return portal.Storagef("finish job", err)
	}
	if n == 0 {
		return portal.NotFoundf("job %s", id)
	}
	return nil
}

// GetJob returns a comparison job by id.
func (r *Repository) GetJob(ctx context.Context, id string) (ComparisonJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, status, similarity, verdict, created_at, completed_at
		FROM comparison_jobs WHERE id = $1
	`, id)
	var job ComparisonJob
	var similarity sql.NullFloat64
	var completed sql.NullTime
	if err := row.Scan(&job.ID, &job.StudentID, &job.Status, &similarity, &job.Verdict, &job.CreatedAt, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ComparisonJob{}, portal.NotFoundf("job %s", id)
		}
		return ComparisonJob{}, portal.Storagef("get job", err)
	}
	if similarity.Valid {
		job.Similarity = &similarity.Float64
	}
	if completed.Valid {
		job.CompletedAt = &completed.Time
	}
	return job, nil
}
