package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/w4/dobble/internal/music"
)

// Triggerer starts a retry flush without waiting for it.
type Triggerer interface {
	Trigger() bool
}

// Poller samples the media player once per interval and drives the tracker.
type Poller struct {
	finder  music.Finder
	player  music.Player
	tracker *Tracker
	flusher Triggerer
	clock   clockwork.Clock

	interval      time.Duration
	flushInterval time.Duration
	playerWait    time.Duration

	lastTick  time.Time
	lastFlush time.Time

	logger zerolog.Logger
}

// NewPoller creates a new Poller instance
func NewPoller(cfg Config, finder music.Finder, tracker *Tracker, flusher Triggerer, logger zerolog.Logger) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{
		finder:        finder,
		tracker:       tracker,
		flusher:       flusher,
		clock:         cfg.Clock,
		interval:      cfg.PollInterval,
		flushInterval: cfg.FlushInterval,
		playerWait:    cfg.PlayerWait,
		logger:        logger.With().Str("component", "poller").Logger(),
	}
}

// Run waits for a player and then polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	if err := p.waitForPlayer(ctx); err != nil {
		return err
	}

	now := p.clock.Now()
	p.lastTick = now
	p.lastFlush = now

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.Chan():
			if err := p.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick runs one poll. Only cancellation while waiting for a player is
// returned as an error; everything else is logged and skipped.
func (p *Poller) tick(ctx context.Context) error {
	now := p.clock.Now()

	if now.Sub(p.lastFlush) >= p.flushInterval {
		p.lastFlush = now
		p.flusher.Trigger()
	}

	elapsed := now.Sub(p.lastTick)
	p.lastTick = now

	if p.player == nil || !p.player.IsRunning(ctx) {
		p.logger.Info().Msg("Player went away")
		p.tracker.Reset()
		if err := p.waitForPlayer(ctx); err != nil {
			return err
		}
		p.lastTick = p.clock.Now()
		return nil
	}

	status, err := p.player.Status(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Error getting player status")
		return nil
	}

	switch status {
	case music.StatePlaying:
	case music.StateStopped:
		if p.tracker.State() != StateIdle {
			p.logger.Info().Msg("Playback stopped")
		}
		p.tracker.Reset()
		return nil
	default:
		p.logger.Debug().Str("status", status.String()).Msg("Not playing, skipping tick")
		return nil
	}

	md, err := p.player.Metadata(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Error reading track metadata")
		return nil
	}

	track, err := music.FromMetadata(md)
	if err != nil {
		p.logger.Warn().Err(err).Str("title", md.Title).Msg("Unusable track metadata")
		return nil
	}
	track.StartedAt = now

	p.logger.Debug().
		Str("artist", track.Artist).
		Str("title", track.Title).
		Dur("elapsed", elapsed).
		Msg("Poll update")

	p.tracker.Observe(&track, elapsed)
	return nil
}

// waitForPlayer blocks until the finder reports an active player or ctx is
// cancelled.
func (p *Poller) waitForPlayer(ctx context.Context) error {
	player, err := backoff.Retry(ctx, func() (music.Player, error) {
		return p.finder.FindActive(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.playerWait)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			if errors.Is(err, music.ErrNoPlayer) {
				p.logger.Debug().Dur("retry_in", next).Msg("No player found")
				return
			}
			p.logger.Warn().Err(err).Dur("retry_in", next).Msg("Failed to look up player")
		}),
	)
	if err != nil {
		return fmt.Errorf("waiting for player: %w", err)
	}

	p.player = player
	p.logger.Info().Str("player", player.Name()).Msg("Found player")
	return nil
}
