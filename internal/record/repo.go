package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"portal/internal/portal"
)

// Repository persists file records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const fileColumns = `id, owner_id, owner_name, category, content, content_type, file_name, uploaded_at, marks`

// metaColumns omit content so listings never drag blobs over the wire.
const metaColumns = `id, owner_id, owner_name, category, content_type, file_name, uploaded_at, marks`

func validateFile(rec FileRecord) error {
	switch {
	case rec.OwnerID == "":
		return portal.Validationf("owner_id required")
	case !rec.Category.Valid():
		return portal.Validationf("unknown category %q", rec.Category)
	case len(rec.Content) == 0:
		return portal.Validationf("content required")
	case rec.ContentType == "":
		return portal.Validationf("content_type required")
	case rec.FileName == "":
		return portal.Validationf("file_name required")
	}
	return nil
}

// InsertFile writes a new file record. Required fields are checked first;
// missing ones surface as a validation error, store failures as a storage
// error.
func (r *Repository) InsertFile(ctx context.Context, rec FileRecord) (FileRecord, error) {
	if err := validateFile(rec); err != nil {
		return FileRecord{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO file_records (id, owner_id, owner_name, category, content, content_type, file_name, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.OwnerID, rec.OwnerName, rec.Category, rec.Content, rec.ContentType, rec.FileName, rec.UploadedAt)
	if err != nil {
		return FileRecord{}, portal.Storagef("insert file", err)
	}
	return rec, nil
}

// UpsertSample atomically replaces or creates the handwriting sample for an
// owner. The conflict target is the partial unique index on
// (owner_id) WHERE category='handwriting_sample', so concurrent uploads for
// the same owner cannot create a second sample. Returns the stored record
// and whether an existing one was replaced.
func (r *Repository) UpsertSample(ctx context.Context, rec FileRecord) (FileRecord, bool, error) {
	rec.Category = CategoryHandwritingSample
	if err := validateFile(rec); err != nil {
		return FileRecord{}, false, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UploadedAt = time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO file_records (id, owner_id, owner_name, category, content, content_type, file_name, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (owner_id) WHERE category = 'handwriting_sample'
		DO UPDATE SET
			content = EXCLUDED.content,
			content_type = EXCLUDED.content_type,
			file_name = EXCLUDED.file_name,
			owner_name = CASE WHEN EXCLUDED.owner_name <> '' THEN EXCLUDED.owner_name ELSE file_records.owner_name END,
			uploaded_at = EXCLUDED.uploaded_at
		RETURNING id, (xmax = 0)
	`, rec.ID, rec.OwnerID, rec.OwnerName, rec.Category, rec.Content, rec.ContentType, rec.FileName, rec.UploadedAt)
	var inserted bool
	if err := row.Scan(&rec.ID, &inserted); err != nil {
		return FileRecord{}, false, portal.Storagef("upsert sample", err)
	}
	return rec, !inserted, nil
}

// FindSample returns the owner's handwriting sample, or nil when absent.
func (r *Repository) FindSample(ctx context.Context, ownerID string) (*FileRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM file_records
		WHERE owner_id = $1 AND category = $2
	`, ownerID, CategoryHandwritingSample)
	rec, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, portal.Storagef("find sample", err)
	}
	return &rec, nil
}

// GetFile returns a single record by id, content included.
func (r *Repository) GetFile(ctx context.Context, id string) (FileRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM file_records WHERE id = $1`, id)
	rec, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FileRecord{}, portal.NotFoundf("file %s", id)
		}
		return FileRecord{}, portal.Storagef("get file", err)
	}
	return rec, nil
}

// LatestContent returns the most recent record for an owner and category,
// content included, for inline display.
func (r *Repository) LatestContent(ctx context.Context, ownerID string, category Category) (FileRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM file_records
		WHERE owner_id = $1 AND category = $2
		ORDER BY uploaded_at DESC
		LIMIT 1
	`, ownerID, category)
	rec, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FileRecord{}, portal.NotFoundf("no %s for owner %s", category, ownerID)
		}
		return FileRecord{}, portal.Storagef("latest content", err)
	}
	return rec, nil
}

// ListMeta returns records without content, newest first, with optional
// owner and category filters.
func (r *Repository) ListMeta(ctx context.Context, ownerID string, category Category) ([]FileRecord, error) {
	query := `SELECT ` + metaColumns + ` FROM file_records`
	args := []any{}
	clauses := []string{}
	if ownerID != "" {
		clauses = append(clauses, "owner_id = $"+itoa(len(args)+1))
		args = append(args, ownerID)
	}
	if category != "" {
		clauses = append(clauses, "category = $"+itoa(len(args)+1))
		args = append(args, category)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += " ORDER BY uploaded_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, portal.Storagef("list meta", err)
	}
	defer rows.Close()
	var res []FileRecord
	for rows.Next() {
		var rec FileRecord
		var marks sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.OwnerName, &rec.Category,
			&rec.ContentType, &rec.FileName, &rec.UploadedAt, &marks); err != nil {
			return nil, portal.Storagef("list meta", err)
		}
		if marks.Valid {
			rec.Marks = &marks.Float64
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, portal.Storagef("list meta", err)
	}
	return res, nil
}

// UpdateMarks attaches marks to a record. Overwriting an earlier value is
// allowed; the update is idempotent. Unknown ids surface as not found.
func (r *Repository) UpdateMarks(ctx context.Context, id string, marks float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE file_records SET marks = $2 WHERE id = $1`, id, marks)
	if err != nil {
		return portal.Storagef("update marks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return portal.Storagef("update marks", err)
	}
	if n == 0 {
		return portal.NotFoundf("file %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (FileRecord, error) {
	var rec FileRecord
	var marks sql.NullFloat64
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.OwnerName, &rec.Category,
		&rec.Content, &rec.ContentType, &rec.FileName, &rec.UploadedAt, &marks); err != nil {
		return FileRecord{}, err
	}
	if marks.Valid {
		rec.Marks = &marks.Float64
	}
	return rec, nil
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
