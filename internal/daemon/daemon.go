package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/w4/dobble/internal/music"
	"github.com/w4/dobble/internal/scrobbler"
)

// Config holds daemon configuration
type Config struct {
	PollInterval      time.Duration // How often to poll the player
	FlushInterval     time.Duration // How often to retry queued scrobbles
	PlayerWait        time.Duration // Delay between lookups while no player is running
	ScrobbleThreshold time.Duration // Play time before a track is scrobbled
	DispatchBuffer    int           // Submissions waiting for the network
	Clock             clockwork.Clock
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Minute
	}
	if c.PlayerWait <= 0 {
		c.PlayerWait = 5 * time.Second
	}
	if c.ScrobbleThreshold <= 0 {
		c.ScrobbleThreshold = scrobbler.DefaultScrobbleThreshold
	}
	if c.DispatchBuffer <= 0 {
		c.DispatchBuffer = scrobbler.DefaultDispatchBuffer
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}

// Daemon coordinates the poller, the submission dispatcher and the retry
// flusher.
type Daemon struct {
	config     Config
	queue      *scrobbler.Queue
	dispatcher *scrobbler.Dispatcher
	flusher    *scrobbler.Flusher
	poller     *Poller
	logger     zerolog.Logger
}

// New creates a new Daemon instance
func New(cfg Config, finder music.Finder, gateway scrobbler.Gateway, queue *scrobbler.Queue, logger zerolog.Logger) *Daemon {
	cfg = cfg.withDefaults()

	dispatcher := scrobbler.NewDispatcher(gateway, queue, cfg.DispatchBuffer, logger)
	flusher := scrobbler.NewFlusher(queue, gateway, logger)
	tracker := NewTracker(dispatcher, cfg.ScrobbleThreshold, logger)

	return &Daemon{
		config:     cfg,
		queue:      queue,
		dispatcher: dispatcher,
		flusher:    flusher,
		poller:     NewPoller(cfg, finder, tracker, flusher, logger),
		logger:     logger.With().Str("component", "daemon").Logger(),
	}
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return d.run(ctx)
}

// run is the main daemon loop
func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().Msg("Starting daemon")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.dispatcher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.flusher.Run(ctx)
	}()

	err := d.poller.Run(ctx)

	wg.Wait()
	d.reportPending()
	d.logger.Info().Msg("Daemon stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reportPending logs what is left in the retry queue at shutdown.
func (d *Daemon) reportPending() {
	pending := d.queue.Snapshot()
	if len(pending) == 0 {
		return
	}

	if d.queue.Spooled() {
		d.logger.Info().Int("count", len(pending)).Msg("Pending scrobbles kept in spool")
		return
	}

	for _, t := range pending {
		d.logger.Warn().
			Str("artist", t.Artist).
			Str("title", t.Title).
			Time("started_at", t.StartedAt).
			Msg("Dropping unsubmitted scrobble")
	}
}
