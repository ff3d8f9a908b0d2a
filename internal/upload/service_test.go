package upload

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/portal"
	"portal/internal/record"
	"portal/internal/student"
)

// fakeStore is an in-memory record store with the same replace-or-create
// semantics as the Postgres upsert.
type fakeStore struct {
	nextID  int
	records []record.FileRecord
}

func (f *fakeStore) InsertFile(_ context.Context, rec record.FileRecord) (record.FileRecord, error) {
	if len(rec.Content) == 0 || rec.OwnerID == "" {
		return record.FileRecord{}, portal.Validationf("missing field")
	}
	f.nextID++
	rec.ID = fmt.Sprintf("f%d", f.nextID)
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeStore) UpsertSample(_ context.Context, rec record.FileRecord) (record.FileRecord, bool, error) {
	rec.Category = record.CategoryHandwritingSample
	for i, existing := range f.records {
		if existing.OwnerID == rec.OwnerID && existing.Category == record.CategoryHandwritingSample {
			rec.ID = existing.ID
			f.records[i] = rec
			return rec, true, nil
		}
	}
	stored, err := f.InsertFile(context.Background(), rec)
	return stored, false, err
}

func (f *fakeStore) byOwnerCategory(ownerID string, cat record.Category) []record.FileRecord {
	var out []record.FileRecord
	for _, r := range f.records {
		if r.OwnerID == ownerID && r.Category == cat {
			out = append(out, r)
		}
	}
	return out
}

type fakeDirectory struct {
	students []student.Student
}

func (f *fakeDirectory) FindByName(_ context.Context, name string) ([]student.Student, error) {
	var out []student.Student
	for _, s := range f.students {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestService() (*Service, *fakeStore, *fakeDirectory) {
	store := &fakeStore{}
	dir := &fakeDirectory{students: []student.Student{
		{ID: "s1", Name: "Alice"},
		{ID: "s2", Name: "Alice"},
		{ID: "s3", Name: "Bob"},
	}}
	return NewService(store, dir), store, dir
}

func sampleRequest(ownerID string, content string) Request {
	return Request{
		OwnerID:     ownerID,
		Category:    record.CategoryHandwritingSample,
		Content:     []byte(content),
		ContentType: "image/png",
		FileName:    "sample.png",
	}
}

func TestHandwritingSampleReplacedInPlace(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	first, replaced, err := svc.Store(ctx, sampleRequest("s1", "A"))
	require.NoError(t, err)
	assert.False(t, replaced)

	second, replaced, err := svc.Store(ctx, sampleRequest("s1", "B"))
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, first.ID, second.ID, "replacement keeps the same id")

	samples := store.byOwnerCategory("s1", record.CategoryHandwritingSample)
	require.Len(t, samples, 1, "at most one sample per owner")
	assert.Equal(t, []byte("B"), samples[0].Content, "content is the most recent upload")
}

func TestRepeatedSampleUploadsStayAtOne(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := svc.Store(ctx, sampleRequest("s3", fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
	}

	samples := store.byOwnerCategory("s3", record.CategoryHandwritingSample)
	require.Len(t, samples, 1)
	assert.Equal(t, []byte("v4"), samples[0].Content)
}

func TestAssignmentsAccumulate(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, replaced, err := svc.Store(ctx, Request{
			OwnerID:     "s3",
			Category:    record.CategoryAssignment,
			Content:     []byte("essay"),
			ContentType: "application/pdf",
			FileName:    "hw.pdf",
		})
		require.NoError(t, err)
		assert.False(t, replaced)
	}

	assert.Len(t, store.byOwnerCategory("s3", record.CategoryAssignment), 3)
}

func TestTeacherUploadResolvesOwnerByName(t *testing.T) {
	svc, store, _ := newTestService()

	stored, _, err := svc.Store(context.Background(), Request{
		OwnerName:   "Bob",
		Category:    record.CategoryAssignment,
		Content:     []byte("x"),
		ContentType: "text/plain",
		FileName:    "a.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", stored.OwnerID)
	assert.Equal(t, "Bob", stored.OwnerName)
	assert.Len(t, store.records, 1)
}

func TestAmbiguousOwnerRejected(t *testing.T) {
	svc, store, _ := newTestService()

	_, _, err := svc.Store(context.Background(), Request{
		OwnerName:   "Alice",
		Category:    record.CategoryAssignment,
		Content:     []byte("x"),
		ContentType: "text/plain",
		FileName:    "a.txt",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portal.ErrAmbiguousOwner))
	assert.Empty(t, store.records, "no record created on ambiguity")
}

func TestUnknownOwnerRejected(t *testing.T) {
	svc, store, _ := newTestService()

	_, _, err := svc.Store(context.Background(), Request{
		OwnerName:   "Charlie",
		Category:    record.CategoryAssignment,
		Content:     []byte("x"),
		ContentType: "text/plain",
		FileName:    "a.txt",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portal.ErrOwnerNotFound))
	assert.Empty(t, store.records)
}

func TestMissingContentRejected(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Store(context.Background(), Request{
		OwnerID:  "s1",
		Category: record.CategoryAssignment,
		FileName: "a.txt",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portal.ErrValidation))
}

func TestUnknownCategoryRejected(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Store(context.Background(), Request{
		OwnerID:  "s1",
		Category: "diploma",
		Content:  []byte("x"),
		FileName: "a.txt",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portal.ErrValidation))
}
