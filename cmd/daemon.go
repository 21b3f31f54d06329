package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/w4/dobble/internal/config"
	"github.com/w4/dobble/internal/daemon"
	"github.com/w4/dobble/internal/music"
	"github.com/w4/dobble/internal/scrobbler"
)

// lastfmRequestsPerSecond keeps us under Last.fm's published API limit.
const lastfmRequestsPerSecond = 5

var (
	daemonLogFile  string
	daemonLogLevel string
	daemonDataDir  string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scrobbling daemon",
	Long: `Run the scrobbling daemon that follows the active MPRIS player and scrobbles tracks to Last.fm.

The daemon will:
- Wait for a media player to appear on the session bus
- Poll it once a second to detect track changes
- Announce each new track as now playing
- Scrobble a track once it has played for the scrobble threshold (10s)
- Queue failed scrobbles and retry them in one batch every minute
- Handle graceful shutdown on SIGINT/SIGTERM

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	daemonCmd.Flags().StringVar(&daemonDataDir, "data-dir", "", "Data directory for the session key and spool (default: ~/.local/share/dobble)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if daemonDataDir != "" {
		cfg.DataDir = daemonDataDir
	}

	if cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "" {
		return fmt.Errorf("Last.fm API credentials not configured. Run 'dobble auth' first")
	}

	sessionKey, err := cfg.LoadSessionKey()
	if errors.Is(err, config.ErrNoSessionKey) {
		return fmt.Errorf("not authenticated with Last.fm. Run 'dobble auth' first")
	}
	if err != nil {
		return err
	}

	logger, closeLog := setupLogger(daemonLogFile, daemonLogLevel)
	defer closeLog()

	logger.Info().
		Str("version", version).
		Msg("Starting dobble daemon")

	dataDir, err := cfg.DataPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	logger.Info().Str("data_dir", dataDir).Msg("Using data directory")

	var spool *scrobbler.Spool
	if cfg.SpoolEnabled {
		spoolPath, err := cfg.SpoolPath()
		if err != nil {
			return err
		}
		spool, err = scrobbler.OpenSpool(spoolPath)
		if err != nil {
			return err
		}
		defer spool.Close()
		logger.Info().Str("path", spoolPath).Msg("Spooling retry queue to disk")
	}

	queue, err := scrobbler.NewQueue(logger, spool)
	if err != nil {
		return err
	}

	client, err := scrobbler.New(scrobbler.ClientConfig{
		APIKey:            cfg.LastFM.APIKey,
		APISecret:         cfg.LastFM.APISecret,
		SessionKey:        sessionKey,
		HTTPTimeout:       cfg.HTTPTimeout,
		RequestsPerSecond: lastfmRequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	finder, err := music.NewMPRISFinder()
	if err != nil {
		return err
	}
	defer finder.Close()

	d := daemon.New(daemon.Config{
		PollInterval:      cfg.PollInterval,
		FlushInterval:     cfg.FlushInterval,
		PlayerWait:        cfg.PlayerWait,
		ScrobbleThreshold: cfg.ScrobbleThreshold,
	}, finder, client, queue, logger)

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) (zerolog.Logger, func()) {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var (
		output  io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		closeFn           = func() {}
	)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		} else {
			output = f
			closeFn = func() { f.Close() }
		}
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, closeFn
}
