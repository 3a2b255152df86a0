// Package pipeline implements the stage machine driving link/image
// extraction for post records.
//
// A trigger claims the record synchronously (stage -> extracting) and
// schedules the extraction sequence on a detached goroutine, so the claim
// is committed before the trigger returns and a racing second trigger
// short-circuits. The sequence's only observable effect is the persisted
// record state: extracted with links/images/timestamp on success, error
// otherwise.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dropworks/drop-admin/internal/extractor"
	"github.com/dropworks/drop-admin/internal/logger"
	"github.com/dropworks/drop-admin/internal/models"
	"github.com/dropworks/drop-admin/internal/store"
	"github.com/dropworks/drop-admin/internal/telemetry"
)

// runTimeout bounds one whole extraction sequence, fetch included. The
// fetch itself is bounded separately by the fetcher's own timeout.
const runTimeout = 30 * time.Second

// ErrNotFound is returned by Trigger when the record does not exist.
var ErrNotFound = errors.New("record not found")

// Outcome is the synchronous result of a trigger request.
type Outcome int

const (
	// Scheduled means the record was claimed and extraction is running
	// in the background.
	Scheduled Outcome = iota
	// AlreadyProcessed means the record is already extracting, extracted,
	// or complete; nothing was scheduled.
	AlreadyProcessed
)

// RecordStore is the subset of the record store the machine needs.
type RecordStore interface {
	Get(ctx context.Context, collection string, id bson.ObjectID) (*models.Record, error)
	MarkExtracting(ctx context.Context, collection string, id bson.ObjectID) (bool, error)
	MarkError(ctx context.Context, collection string, id bson.ObjectID) error
	MarkExtracted(ctx context.Context, collection string, id bson.ObjectID, links, images []string, extractedAt time.Time) error
}

// Fetcher retrieves the raw page body for a post URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor pulls links and images out of a page body.
type Extractor interface {
	Extract(body []byte) (*extractor.PostContent, error)
}

// Machine orchestrates record stage transitions and extraction runs.
type Machine struct {
	records   RecordStore
	fetcher   Fetcher
	extractor Extractor
	metrics   *telemetry.Metrics
	log       logger.Logger

	// wg tracks in-flight extraction sequences so shutdown can drain them.
	wg sync.WaitGroup
}

// New creates a stage machine.
func New(
	records RecordStore,
	fetch Fetcher,
	extract Extractor,
	metrics *telemetry.Metrics,
	log logger.Logger,
) *Machine {
	return &Machine{
		records:   records,
		fetcher:   fetch,
		extractor: extract,
		metrics:   metrics,
		log:       log,
	}
}

// Trigger validates the record and, if eligible, claims it and schedules
// the extraction sequence. The claim (stage -> extracting) commits before
// Trigger returns. Returns ErrNotFound for a missing record; a record
// already in the pipeline yields AlreadyProcessed without side effects.
func (m *Machine) Trigger(ctx context.Context, collection string, id bson.ObjectID) (Outcome, error) {
	rec, err := m.records.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.metrics.TriggersTotal.WithLabelValues(telemetry.TriggerNotFound).Inc()
			return 0, ErrNotFound
		}
		return 0, err
	}

	if rec.InPipeline() {
		m.metrics.TriggersTotal.WithLabelValues(telemetry.TriggerAlreadyProcessed).Inc()
		return AlreadyProcessed, nil
	}

	started, err := m.records.MarkExtracting(ctx, collection, id)
	if err != nil {
		return 0, err
	}
	if !started {
		// A concurrent trigger won the claim between our read and write.
		m.metrics.TriggersTotal.WithLabelValues(telemetry.TriggerAlreadyProcessed).Inc()
		return AlreadyProcessed, nil
	}

	m.metrics.TriggersTotal.WithLabelValues(telemetry.TriggerScheduled).Inc()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(collection, id)
	}()

	return Scheduled, nil
}

// Wait blocks until every in-flight extraction sequence has finished.
func (m *Machine) Wait() {
	m.wg.Wait()
}

// run executes one extraction sequence. No caller observes a return
// value: outcomes are persisted on the record and logged, never re-raised.
// The request context is long gone, so the sequence gets its own.
func (m *Machine) run(collection string, id bson.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	outcome := m.extract(ctx, collection, id)

	m.metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
	m.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
}

// extract performs the fetch+extract+persist sequence and returns the
// telemetry outcome label. Every failure path is terminal: stage goes to
// error and no extraction fields are written.
func (m *Machine) extract(ctx context.Context, collection string, id bson.ObjectID) string {
	log := m.log.With(
		logger.String("collection", collection),
		logger.String("record_id", id.Hex()),
	)

	rec, err := m.records.Get(ctx, collection, id)
	if err != nil {
		// Deleted between trigger and run, or the store is down. There is
		// no record to update either way.
		log.Warn("extraction skipped, record unavailable", logger.Error(err))
		return telemetry.OutcomeRecordMissing
	}

	if rec.PostURL == "" {
		log.Warn("extraction failed, record has no post URL")
		return m.fail(ctx, collection, id, log, telemetry.OutcomeMissingURL)
	}

	body, err := m.fetcher.Fetch(ctx, rec.PostURL)
	if err != nil {
		log.Warn("extraction failed, fetch error",
			logger.String("post_url", rec.PostURL),
			logger.Error(err),
		)
		return m.fail(ctx, collection, id, log, telemetry.OutcomeFetchFailed)
	}

	content, err := m.extractor.Extract(body)
	if err != nil {
		log.Warn("extraction failed, no content extracted",
			logger.String("post_url", rec.PostURL),
			logger.Error(err),
		)
		return m.fail(ctx, collection, id, log, telemetry.OutcomeNoContainer)
	}

	extractedAt := time.Now().UTC()
	if err := m.records.MarkExtracted(ctx, collection, id, content.Links, content.Images, extractedAt); err != nil {
		log.Error("persist extraction result failed", logger.Error(err))
		return telemetry.OutcomeStoreFailed
	}

	log.Info("extraction finished",
		logger.Int("links", len(content.Links)),
		logger.Int("images", len(content.Images)),
	)
	return telemetry.OutcomeExtracted
}

// fail marks the record as errored and passes the outcome label through.
func (m *Machine) fail(ctx context.Context, collection string, id bson.ObjectID, log logger.Logger, outcome string) string {
	if err := m.records.MarkError(ctx, collection, id); err != nil {
		log.Error("mark record as error failed", logger.Error(err))
		return telemetry.OutcomeStoreFailed
	}
	return outcome
}
