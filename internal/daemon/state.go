package daemon

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/w4/dobble/internal/music"
	"github.com/w4/dobble/internal/scrobbler"
)

// TrackerState is where the tracker is in the life of the current play.
type TrackerState int

const (
	StateIdle      TrackerState = iota // Nothing is being tracked
	StateTracking                      // Announced, not yet scrobbled
	StateScrobbled                     // Scrobble submitted for this play
)

func (s TrackerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateScrobbled:
		return "scrobbled"
	default:
		return "unknown"
	}
}

// Submitter receives the tracker's announcements. Implementations must not
// block on the network.
type Submitter interface {
	NowPlaying(track music.Track)
	Scrobble(track music.Track)
}

// Tracker follows one play at a time and decides when it is announced and
// when it is scrobbled. It is not safe for concurrent use; the poll loop
// owns it.
type Tracker struct {
	state     TrackerState
	current   *music.Track
	threshold time.Duration
	submit    Submitter
	logger    zerolog.Logger
}

// NewTracker creates an idle tracker. A non-positive threshold uses
// scrobbler.DefaultScrobbleThreshold.
func NewTracker(submit Submitter, threshold time.Duration, logger zerolog.Logger) *Tracker {
	if threshold <= 0 {
		threshold = scrobbler.DefaultScrobbleThreshold
	}
	return &Tracker{
		threshold: threshold,
		submit:    submit,
		logger:    logger.With().Str("component", "tracker").Logger(),
	}
}

// Observe feeds the latest poll result. observed is nil when nothing is
// playing; elapsed is the time since the previous poll.
func (t *Tracker) Observe(observed *music.Track, elapsed time.Duration) {
	if observed == nil {
		if t.current != nil {
			t.logger.Info().Str("title", t.current.Title).Msg("Playback ended")
		}
		t.Reset()
		return
	}

	if t.current != nil && t.current.Same(*observed) {
		t.current.PlayingFor += elapsed

		if t.state == StateTracking && scrobbler.ShouldScrobble(t.current.PlayingFor, t.threshold) {
			t.current.Scrobbled = true
			t.state = StateScrobbled

			t.logger.Info().
				Str("artist", t.current.Artist).
				Str("title", t.current.Title).
				Dur("played", t.current.PlayingFor).
				Msg("Scrobbling track")
			t.submit.Scrobble(*t.current)
		}
		return
	}

	track := *observed
	track.Scrobbled = false
	track.PlayingFor = 0
	t.current = &track
	t.state = StateTracking

	t.logger.Info().
		Str("artist", track.Artist).
		Str("title", track.Title).
		Str("album", track.Album).
		Msg("Now playing")
	t.submit.NowPlaying(track)
}

// Reset forgets the current play.
func (t *Tracker) Reset() {
	t.current = nil
	t.state = StateIdle
}

// State returns the tracker state.
func (t *Tracker) State() TrackerState {
	return t.state
}

// Current returns a copy of the tracked play, or nil when idle.
func (t *Tracker) Current() *music.Track {
	if t.current == nil {
		return nil
	}
	c := *t.current
	return &c
}
