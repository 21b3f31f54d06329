package scrobbler

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/w4/dobble/internal/music"
)

// DefaultDispatchBuffer is the number of submissions that may wait for the
// network before new ones start overflowing.
const DefaultDispatchBuffer = 16

type jobKind int

const (
	jobNowPlaying jobKind = iota
	jobScrobble
)

type job struct {
	kind  jobKind
	track music.Track
}

// Dispatcher performs gateway calls off the caller's goroutine. Scrobbles
// that fail, or that cannot be dispatched, go to the retry queue.
type Dispatcher struct {
	gateway Gateway
	queue   *Queue
	jobs    chan job
	logger  zerolog.Logger

	// mu orders enqueues against the final drain; once stopped is set no
	// job can enter the buffer.
	mu      sync.Mutex
	stopped bool
}

func NewDispatcher(gateway Gateway, queue *Queue, buffer int, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultDispatchBuffer
	}
	return &Dispatcher{
		gateway: gateway,
		queue:   queue,
		jobs:    make(chan job, buffer),
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// NowPlaying schedules a now playing announcement. It is dropped if the
// dispatcher is backed up.
func (d *Dispatcher) NowPlaying(track music.Track) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	select {
	case d.jobs <- job{kind: jobNowPlaying, track: track}:
	default:
		d.logger.Warn().
			Str("artist", track.Artist).
			Str("title", track.Title).
			Msg("Dispatcher busy, dropping now playing")
	}
}

// Scrobble schedules a scrobble. If the dispatcher is backed up or has
// stopped the track goes straight to the retry queue.
func (d *Dispatcher) Scrobble(track music.Track) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.logger.Debug().
			Str("artist", track.Artist).
			Str("title", track.Title).
			Msg("Dispatcher stopped, queueing scrobble")
		d.queue.Push(track)
		return
	}

	select {
	case d.jobs <- job{kind: jobScrobble, track: track}:
	default:
		d.logger.Warn().
			Str("artist", track.Artist).
			Str("title", track.Title).
			Msg("Dispatcher busy, queueing scrobble")
		d.queue.Push(track)
	}
}

// Run processes jobs until ctx is cancelled. Scrobbles still buffered at
// that point, and any submitted afterwards, are moved to the retry queue.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			d.drain()
			return
		}

		select {
		case <-ctx.Done():
			d.drain()
			return
		case j := <-d.jobs:
			d.handle(ctx, j)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, j job) {
	log := d.logger.With().
		Str("artist", j.track.Artist).
		Str("title", j.track.Title).
		Logger()

	switch j.kind {
	case jobNowPlaying:
		if err := d.gateway.NowPlaying(ctx, j.track); err != nil {
			log.Warn().Err(err).Msg("Failed to update now playing")
			return
		}
		log.Info().Msg("Updated now playing")

	case jobScrobble:
		if err := d.gateway.Scrobble(ctx, j.track); err != nil {
			log.Warn().Err(err).Msg("Failed to scrobble, queueing for retry")
			d.queue.Push(j.track)
			return
		}
		log.Info().Dur("played", j.track.PlayingFor).Msg("Scrobbled")
	}
}

func (d *Dispatcher) drain() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for {
		select {
		case j := <-d.jobs:
			if j.kind == jobScrobble {
				d.queue.Push(j.track)
			}
		default:
			return
		}
	}
}
