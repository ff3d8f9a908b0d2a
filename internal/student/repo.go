// Package student is the registry of portal accounts: the owner side of
// every file record and attendance entry.
package student

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"portal/internal/portal"
)

// Student represents a registered portal account.
type Student struct {
	ID        string    `json:"id"`
	ErpID     string    `json:"erp_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	PasswordHash string `json:"-"`
}

// Repository persists students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, erp_id, name, email, password_hash, role, created_at`

// Create inserts a new account. Email uniqueness is enforced by the store.
func (r *Repository) Create(ctx context.Context, s Student) (Student, error) {
	switch {
	case s.Name == "":
		return Student{}, portal.Validationf("name required")
	case s.Email == "":
		return Student{}, portal.Validationf("email required")
	case s.PasswordHash == "":
		return Student{}, portal.Validationf("password required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Role == "" {
		s.Role = "student"
	}
	s.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, erp_id, name, email, password_hash, role, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, s.ID, s.ErpID, s.Name, s.Email, s.PasswordHash, s.Role, s.CreatedAt)
	if err != nil {
		return Student{}, portal.Storagef("create student", err)
	}
	return s, nil
}

// FindByID returns a student, or nil when absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*Student, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM students WHERE id = $1`, id)
}

// FindByEmail returns a student, or nil when absent.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Student, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM students WHERE email = $1`, email)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*Student, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var s Student
	if err := row.Scan(&s.ID, &s.ErpID, &s.Name, &s.Email, &s.PasswordHash, &s.Role, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, portal.Storagef("find student", err)
	}
	return &s, nil
}

// FindByName returns every student with the exact name. Owner resolution
// needs the full list to detect ambiguity.
func (r *Repository) FindByName(ctx context.Context, name string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM students WHERE name = $1 ORDER BY created_at`, name)
	if err != nil {
		return nil, portal.Storagef("find by name", err)
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.ErpID, &s.Name, &s.Email, &s.PasswordHash, &s.Role, &s.CreatedAt); err != nil {
			return nil, portal.Storagef("find by name", err)
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, portal.Storagef("find by name", err)
	}
	return res, nil
}
