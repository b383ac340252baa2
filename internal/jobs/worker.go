// Package jobs drains the index job queue in the background.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// JobProcessor handles one batch of pending jobs per call.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker calls its processor on a fixed interval until stopped.
type Worker struct {
	processor JobProcessor
	interval  time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWorker returns a worker that polls every interval.
func NewWorker(processor JobProcessor, interval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called. A failed batch is
// logged and retried on the next tick.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger := log.With().Str("component", "index_worker").Logger()
	logger.Info().Dur("poll_interval", w.interval).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker stopped: context cancelled")
			return
		case <-w.stop:
			logger.Info().Msg("worker stopped")
			return
		case <-ticker.C:
		}

		if err := w.processor.ProcessJobs(ctx); err != nil {
			logger.Error().Err(err).Msg("processing index jobs failed")
		}
	}
}

// Stop signals the loop and waits for the in-flight batch to finish. It is
// safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}
