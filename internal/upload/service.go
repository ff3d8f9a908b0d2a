// Package upload decides whether an incoming upload creates a new file
// record or replaces an existing one, and resolves the owner identity.
package upload

import (
	"context"
	"fmt"

	"portal/internal/portal"
	"portal/internal/record"
	"portal/internal/student"
)

// FileStore is the slice of the record store the governor writes through.
type FileStore interface {
	InsertFile(ctx context.Context, rec record.FileRecord) (record.FileRecord, error)
	UpsertSample(ctx context.Context, rec record.FileRecord) (record.FileRecord, bool, error)
}

// OwnerDirectory resolves teacher-supplied names to student identities.
type OwnerDirectory interface {
	FindByName(ctx context.Context, name string) ([]student.Student, error)
}

// Request is one incoming upload. OwnerID comes from the verified bearer
// token for student uploads; teacher-initiated uploads may carry only
// OwnerName and rely on resolution.
type Request struct {
	OwnerID     string
	OwnerName   string
	Category    record.Category
	Content     []byte
	ContentType string
	FileName    string
}

// Service is the upload governor.
type Service struct {
	files  FileStore
	owners OwnerDirectory
}

// NewService creates a governor over the given store and directory.
func NewService(files FileStore, owners OwnerDirectory) *Service {
	return &Service{files: files, owners: owners}
}

// Store admits one upload. Handwriting samples replace any existing sample
// for the owner in place (same id, one atomic upsert); assignments always
// append a new record. The returned bool reports whether an existing
// sample was replaced.
func (s *Service) Store(ctx context.Context, req Request) (record.FileRecord, bool, error) {
	if len(req.Content) == 0 {
		return record.FileRecord{}, false, portal.Validationf("no file uploaded")
	}
	if !req.Category.Valid() {
		return record.FileRecord{}, false, portal.Validationf("unknown category %q", req.Category)
	}

	ownerID, ownerName, err := s.resolveOwner(ctx, req)
	if err != nil {
		return record.FileRecord{}, false, err
	}

	rec := record.FileRecord{
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		Category:    req.Category,
		Content:     req.Content,
		ContentType: req.ContentType,
		FileName:    req.FileName,
	}

	if req.Category == record.CategoryHandwritingSample {
		return s.files.UpsertSample(ctx, rec)
	}
	stored, err := s.files.InsertFile(ctx, rec)
	return stored, false, err
}

// resolveOwner maps the request to a unique student identity. With an
// explicit OwnerID nothing is looked up; a bare OwnerName must match
// exactly one student.
func (s *Service) resolveOwner(ctx context.Context, req Request) (string, string, error) {
	if req.OwnerID != "" {
		return req.OwnerID, req.OwnerName, nil
	}
	if req.OwnerName == "" {
		return "", "", portal.Validationf("owner id or owner name required")
	}
	matches, err := s.owners.FindByName(ctx, req.OwnerName)
	if err != nil {
		return "", "", err
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("%w: no student named %q", portal.ErrOwnerNotFound, req.OwnerName)
	case 1:
		return matches[0].ID, matches[0].Name, nil
	default:
		return "", "", fmt.Errorf("%w: %d students named %q", portal.ErrAmbiguousOwner, len(matches), req.OwnerName)
	}
}
