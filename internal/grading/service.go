// Package grading attaches marks to assignment records.
package grading

import (
	"context"
	"strconv"

	"portal/internal/portal"
)

// MarksStore is the slice of the record store grading writes through.
type MarksStore interface {
	UpdateMarks(ctx context.Context, id string, marks float64) error
}

// Service is the evaluation tracker.
type Service struct {
	store MarksStore
}

// NewService creates a tracker over the given store.
func NewService(store MarksStore) *Service {
	return &Service{store: store}
}

// SetMarks attaches marks to a file record. The value may arrive as a
// numeric string from a form; only presence and numeric shape are checked
// here, range is the caller's concern. Repeating the call overwrites
// idempotently and keeps no history of earlier grades.
func (s *Service) SetMarks(ctx context.Context, fileID, marks string) (float64, error) {
	if fileID == "" {
		return 0, portal.Validationf("file id required")
	}
	if marks == "" {
		return 0, portal.Validationf("marks required")
	}
	value, err := strconv.ParseFloat(marks, 64)
	if err != nil {
		return 0, portal.Validationf("marks must be numeric, got %q", marks)
	}
	if err := s.store.UpdateMarks(ctx, fileID, value); err != nil {
		return 0, err
	}
	return value, nil
}
