package scrobbler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/w4/dobble/internal/music"
)

// Flusher resubmits the retry queue from a single background goroutine.
type Flusher struct {
	queue   *Queue
	gateway Gateway
	trigger chan struct{}
	logger  zerolog.Logger
}

func NewFlusher(queue *Queue, gateway Gateway, logger zerolog.Logger) *Flusher {
	return &Flusher{
		queue:   queue,
		gateway: gateway,
		// Unbuffered: a trigger only lands while Run is waiting for one.
		trigger: make(chan struct{}),
		logger:  logger.With().Str("component", "flusher").Logger(),
	}
}

// Run waits for triggers and flushes until ctx is cancelled.
func (f *Flusher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.trigger:
			if err := f.Flush(ctx); err != nil {
				f.logger.Warn().Err(err).Int("pending", f.queue.Len()).Msg("Retry flush failed")
			}
		}
	}
}

// Trigger asks Run to flush. It never blocks: it returns false when the
// queue is empty or a flush is already running.
func (f *Flusher) Trigger() bool {
	if f.queue.Len() == 0 {
		return false
	}

	select {
	case f.trigger <- struct{}{}:
		return true
	default:
		f.logger.Debug().Msg("Flush already in progress, skipping trigger")
		return false
	}
}

// Flush submits every pending track in one go. A single entry uses a
// plain scrobble, more than one uses a batch.
func (f *Flusher) Flush(ctx context.Context) error {
	return f.queue.Drain(ctx, func(ctx context.Context, tracks []music.Track) error {
		f.logger.Info().Int("count", len(tracks)).Msg("Flushing retry queue")

		if len(tracks) == 1 {
			return f.gateway.Scrobble(ctx, tracks[0])
		}
		return f.gateway.ScrobbleBatch(ctx, tracks)
	})
}
