package grading

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/portal"
)

type fakeMarksStore struct {
	marks   map[string]float64
	updates int
}

func (f *fakeMarksStore) UpdateMarks(_ context.Context, id string, marks float64) error {
	if _, ok := f.marks[id]; !ok {
		return portal.NotFoundf("file %s", id)
	}
	f.marks[id] = marks
	f.updates++
	return nil
}

func newTracker() (*Service, *fakeMarksStore) {
	store := &fakeMarksStore{marks: map[string]float64{"a1": 0}}
	return NewService(store), store
}

func TestSetMarksOverwritesIdempotently(t *testing.T) {
	svc, store := newTracker()
	ctx := context.Background()

	value, err := svc.SetMarks(ctx, "a1", "15")
	require.NoError(t, err)
	assert.Equal(t, 15.0, value)

	// Same value again: still one record, same marks, no side growth.
	value, err = svc.SetMarks(ctx, "a1", "15")
	require.NoError(t, err)
	assert.Equal(t, 15.0, value)
	assert.Equal(t, 15.0, store.marks["a1"])
	assert.Len(t, store.marks, 1)

	// Different value simply overwrites; no history kept.
	_, err = svc.SetMarks(ctx, "a1", "18")
	require.NoError(t, err)
	assert.Equal(t, 18.0, store.marks["a1"])
}

func TestSetMarksUnknownFile(t *testing.T) {
	svc, store := newTracker()

	_, err := svc.SetMarks(context.Background(), "missing", "10")
	require.Error(t, err)
	assert.True(t, errors.Is(err, portal.ErrNotFound))
	assert.Equal(t, 0.0, store.marks["a1"], "store unchanged on failure")
}

func TestSetMarksValidation(t *testing.T) {
	svc, _ := newTracker()
	ctx := context.Background()

	_, err := svc.SetMarks(ctx, "a1", "")
	assert.True(t, errors.Is(err, portal.ErrValidation))

	_, err = svc.SetMarks(ctx, "", "10")
	assert.True(t, errors.Is(err, portal.ErrValidation))

	_, err = svc.SetMarks(ctx, "a1", "twelve")
	assert.True(t, errors.Is(err, portal.ErrValidation))
}
