package usage

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/praxishq/praxis/pkg/observability"
)

// Flusher periodically drains closed redis counters into postgres
type Flusher struct {
	counters *CounterStore
	store    *Store
	logger   *observability.Logger
	cron     *cron.Cron
}

// NewFlusher creates a usage flusher
func NewFlusher(counters *CounterStore, store *Store, logger *observability.Logger) *Flusher {
	return &Flusher{
		counters: counters,
		store:    store,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules periodic flushes. schedule is a cron spec, e.g. "@every 5m".
func (f *Flusher) Start(schedule string) error {
	_, err := f.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := f.Flush(ctx); err != nil {
			f.logger.WithError(err).Error("usage flush failed")
		}
	})
	if err != nil {
		return err
	}
	f.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running flush to finish
func (f *Flusher) Stop() {
	<-f.cron.Stop().Done()
}

// Flush drains closed counter buckets and accumulates them durably. A bucket
// that fails to persist is lost from redis; the error is surfaced so the
// failure is visible, but remaining buckets are still written.
func (f *Flusher) Flush(ctx context.Context) error {
	buckets, err := f.counters.DrainClosed(ctx)
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		return nil
	}

	var firstErr error
	flushed := 0
	for _, bucket := range buckets {
		if err := f.store.Add(ctx, bucket); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		flushed++
	}
	f.logger.WithField("buckets", flushed).Debug("flushed usage counters")
	return firstErr
}
