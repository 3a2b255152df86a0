package pipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dropworks/drop-admin/internal/extractor"
	"github.com/dropworks/drop-admin/internal/logger"
	"github.com/dropworks/drop-admin/internal/models"
	"github.com/dropworks/drop-admin/internal/pipeline"
	"github.com/dropworks/drop-admin/internal/store"
	"github.com/dropworks/drop-admin/internal/telemetry"
)

const testCollection = "new-posts"

// postHTML contains the content container with two links and one
// lazy-loaded image.
const postHTML = `<html><body>
<div class="bbWrapper">
  <a href="https://files.example.com/1.zip">one</a>
  <a href="https://files.example.com/2.zip">two</a>
  <img class="bbImage" data-src="https://img.example.com/1.jpg" src="https://img.example.com/ph.gif">
</div>
</body></html>`

const noContainerHTML = `<html><body><p>nothing here</p></body></html>`

// fakeRecordStore is an in-memory RecordStore with the same conditional
// claim semantics as the Mongo implementation.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[string]*models.Record
}

func newFakeRecordStore(recs ...*models.Record) *fakeRecordStore {
	s := &fakeRecordStore{records: make(map[string]*models.Record)}
	for _, rec := range recs {
		s.records[rec.ID.Hex()] = rec
	}
	return s
}

func (s *fakeRecordStore) Get(_ context.Context, _ string, id bson.ObjectID) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id.Hex()]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *fakeRecordStore) MarkExtracting(_ context.Context, _ string, id bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id.Hex()]
	if !ok {
		return false, nil
	}
	if rec.InPipeline() {
		return false, nil
	}
	rec.Stage = models.StageExtracting
	return true, nil
}

func (s *fakeRecordStore) MarkError(_ context.Context, _ string, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[id.Hex()]; ok {
		rec.Stage = models.StageError
	}
	return nil
}

func (s *fakeRecordStore) MarkExtracted(
	_ context.Context,
	_ string,
	id bson.ObjectID,
	links, images []string,
	extractedAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[id.Hex()]; ok {
		rec.Stage = models.StageExtracted
		rec.ExtractedLinks = links
		rec.ExtractedImages = images
		rec.ExtractedAt = &extractedAt
	}
	return nil
}

func (s *fakeRecordStore) get(id bson.ObjectID) *models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *s.records[id.Hex()]
	return &clone
}

// fakeFetcher returns a fixed body or error and counts calls.
type fakeFetcher struct {
	body  []byte
	err   error
	calls atomic.Int64
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func newMachine(recs *fakeRecordStore, fetch *fakeFetcher) *pipeline.Machine {
	return pipeline.New(recs, fetch, extractor.NewPostExtractor(), telemetry.New(), logger.NewNop())
}

func newRecord(stage, postURL string) *models.Record {
	return &models.Record{
		ID:      bson.NewObjectID(),
		PostURL: postURL,
		Stage:   stage,
	}
}

func TestTrigger_RecordNotFound(t *testing.T) {
	t.Parallel()

	recs := newFakeRecordStore()
	fetch := &fakeFetcher{}
	m := newMachine(recs, fetch)

	_, err := m.Trigger(context.Background(), testCollection, bson.NewObjectID())
	assert.ErrorIs(t, err, pipeline.ErrNotFound)
	assert.Zero(t, fetch.calls.Load())
}

func TestTrigger_AlreadyInPipeline(t *testing.T) {
	t.Parallel()

	for _, stage := range []string{models.StageExtracting, models.StageExtracted, models.StageComplete} {
		t.Run(stage, func(t *testing.T) {
			t.Parallel()

			rec := newRecord(stage, "http://x/1")
			recs := newFakeRecordStore(rec)
			fetch := &fakeFetcher{body: []byte(postHTML)}
			m := newMachine(recs, fetch)

			outcome, err := m.Trigger(context.Background(), testCollection, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, pipeline.AlreadyProcessed, outcome)

			m.Wait()
			assert.Zero(t, fetch.calls.Load(), "no fetch must be scheduled")
			assert.Equal(t, stage, recs.get(rec.ID).Stage, "stage must be unchanged")
		})
	}
}

func TestTrigger_MissingPostURL(t *testing.T) {
	t.Parallel()

	rec := newRecord(models.StageNew, "")
	recs := newFakeRecordStore(rec)
	fetch := &fakeFetcher{}
	m := newMachine(recs, fetch)

	outcome, err := m.Trigger(context.Background(), testCollection, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Scheduled, outcome)

	m.Wait()

	got := recs.get(rec.ID)
	assert.Equal(t, models.StageError, got.Stage)
	assert.Nil(t, got.ExtractedLinks)
	assert.Nil(t, got.ExtractedImages)
	assert.Nil(t, got.ExtractedAt)
	assert.Zero(t, fetch.calls.Load())
}

func TestTrigger_FetchFailure(t *testing.T) {
	t.Parallel()

	rec := newRecord(models.StageNew, "http://x/1")
	recs := newFakeRecordStore(rec)
	fetch := &fakeFetcher{err: assert.AnError}
	m := newMachine(recs, fetch)

	outcome, err := m.Trigger(context.Background(), testCollection, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Scheduled, outcome)

	m.Wait()

	got := recs.get(rec.ID)
	assert.Equal(t, models.StageError, got.Stage)
	assert.Nil(t, got.ExtractedAt)
}

func TestTrigger_ContainerNotFound(t *testing.T) {
	t.Parallel()

	rec := newRecord(models.StageNew, "http://x/1")
	recs := newFakeRecordStore(rec)
	fetch := &fakeFetcher{body: []byte(noContainerHTML)}
	m := newMachine(recs, fetch)

	_, err := m.Trigger(context.Background(), testCollection, rec.ID)
	require.NoError(t, err)

	m.Wait()

	got := recs.get(rec.ID)
	assert.Equal(t, models.StageError, got.Stage)
	assert.Nil(t, got.ExtractedLinks)
	assert.Nil(t, got.ExtractedAt)
}

func TestTrigger_SuccessfulExtraction(t *testing.T) {
	t.Parallel()

	rec := newRecord(models.StageNew, "http://x/1")
	recs := newFakeRecordStore(rec)
	fetch := &fakeFetcher{body: []byte(postHTML)}
	m := newMachine(recs, fetch)

	before := time.Now().UTC()

	outcome, err := m.Trigger(context.Background(), testCollection, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Scheduled, outcome)

	m.Wait()

	got := recs.get(rec.ID)
	assert.Equal(t, models.StageExtracted, got.Stage)
	assert.Equal(t, []string{
		"https://files.example.com/1.zip",
		"https://files.example.com/2.zip",
	}, got.ExtractedLinks)
	assert.Equal(t, []string{"https://img.example.com/1.jpg"}, got.ExtractedImages)

	require.NotNil(t, got.ExtractedAt)
	assert.False(t, got.ExtractedAt.Before(before), "extracted_at must not precede the trigger")
	assert.Equal(t, int64(1), fetch.calls.Load())
}

func TestTrigger_SecondTriggerShortCircuits(t *testing.T) {
	t.Parallel()

	rec := newRecord(models.StageNew, "http://x/1")
	recs := newFakeRecordStore(rec)
	fetch := &fakeFetcher{body: []byte(postHTML)}
	m := newMachine(recs, fetch)

	first, err := m.Trigger(context.Background(), testCollection, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Scheduled, first)

	// The claim committed before Trigger returned, so a second trigger
	// observes it regardless of whether the background run finished.
	second, err := m.Trigger(context.Background(), testCollection, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.AlreadyProcessed, second)

	m.Wait()
	assert.Equal(t, int64(1), fetch.calls.Load(), "only one extraction may run")
}

func TestTrigger_RecordDeletedBeforeRun(t *testing.T) {
	t.Parallel()

	rec := newRecord(models.StageNew, "http://x/1")
	recs := newFakeRecordStore(rec)
	fetch := &fakeFetcher{body: []byte(postHTML)}
	m := newMachine(recs, fetch)

	// Simulate deletion racing the scheduled run: claim through the
	// machine, then remove the record before waiting.
	_, err := m.Trigger(context.Background(), testCollection, rec.ID)
	require.NoError(t, err)

	recs.mu.Lock()
	delete(recs.records, rec.ID.Hex())
	recs.mu.Unlock()

	// Must not panic; nothing to assert beyond a clean drain.
	m.Wait()
}
