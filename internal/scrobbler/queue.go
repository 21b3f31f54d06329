package scrobbler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/w4/dobble/internal/music"
)

// Queue holds scrobbles whose submission failed, oldest first. Entries leave
// only through a successful Drain.
type Queue struct {
	mu     sync.Mutex
	tracks []music.Track
	size   atomic.Int64

	spool  *Spool
	logger zerolog.Logger
}

// NewQueue creates a retry queue. If spool is non-nil its contents are
// loaded first and every later change is mirrored to it.
func NewQueue(logger zerolog.Logger, spool *Spool) (*Queue, error) {
	q := &Queue{
		spool:  spool,
		logger: logger.With().Str("component", "queue").Logger(),
	}

	if spool != nil {
		pending, err := spool.Pending(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load spool: %w", err)
		}
		q.tracks = pending
		q.size.Store(int64(len(pending)))
		if len(pending) > 0 {
			q.logger.Info().Int("count", len(pending)).Msg("Restored pending scrobbles")
		}
	}

	return q, nil
}

// Push appends a track. It blocks while a Drain is in progress.
func (q *Queue) Push(track music.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = append(q.tracks, track)
	q.size.Store(int64(len(q.tracks)))

	q.logger.Info().
		Str("artist", track.Artist).
		Str("title", track.Title).
		Int("pending", len(q.tracks)).
		Msg("Queued scrobble for retry")

	if q.spool != nil {
		if err := q.spool.Add(context.Background(), track); err != nil {
			q.logger.Error().Err(err).Msg("Failed to spool scrobble")
		}
	}
}

// Len returns the number of pending tracks without waiting for a Drain.
func (q *Queue) Len() int {
	return int(q.size.Load())
}

// Spooled reports whether the queue is mirrored to disk.
func (q *Queue) Spooled() bool {
	return q.spool != nil
}

// Snapshot returns a copy of the pending tracks.
func (q *Queue) Snapshot() []music.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]music.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Drain calls fn with every pending track while holding the queue lock.
// If fn returns nil the queue is emptied, otherwise it is left untouched.
// Nothing can be pushed until fn returns.
func (q *Queue) Drain(ctx context.Context, fn func(ctx context.Context, tracks []music.Track) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return nil
	}

	if err := fn(ctx, q.tracks); err != nil {
		return err
	}

	q.tracks = nil
	q.size.Store(0)

	if q.spool != nil {
		if err := q.spool.Clear(context.Background()); err != nil {
			q.logger.Error().Err(err).Msg("Failed to clear spool")
		}
	}

	return nil
}
