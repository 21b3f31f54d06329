package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/w4/dobble/internal/music"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Resume playback in the active player",
	Long:  `Resume playback in the active player. If paused, starts playing the current track.`,
	RunE:  runPlay,
}

// pauseCmd represents the pause command
var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback in the active player",
	Long:  `Pause playback in the active player. Pauses the currently playing track.`,
	RunE:  runPause,
}

// playpauseCmd represents the playpause command
var playpauseCmd = &cobra.Command{
	Use:   "playpause",
	Short: "Toggle play/pause in the active player",
	Long:  `Toggle between play and pause states in the active player. If playing, pauses. If paused, resumes.`,
	RunE:  runPlayPause,
}

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to next track in the active player",
	Long:  `Skip to the next track in the active player. Advances to the next track in the current playlist or queue.`,
	RunE:  runNext,
}

// prevCmd represents the prev command
var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to previous track in the active player",
	Long:  `Go to the previous track in the active player. Returns to the previous track in the current playlist or queue.`,
	RunE:  runPrev,
}

// shuffleCmd represents the shuffle command
var shuffleCmd = &cobra.Command{
	Use:   "shuffle on|off",
	Short: "Set shuffle mode in the active player",
	Long: `Turn shuffle on or off in the active player.

Not every player lets shuffle be changed over MPRIS.`,
	Args: cobra.ExactArgs(1),
	RunE: runShuffle,
}

// volumeCmd represents the volume command
var volumeCmd = &cobra.Command{
	Use:   "volume 0-100",
	Short: "Set playback volume in the active player",
	Long: `Set the playback volume in the active player.

Volume level must be between 0 (muted) and 100 (maximum).`,
	Args: cobra.ExactArgs(1),
	RunE: runVolume,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(playpauseCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(shuffleCmd)
	rootCmd.AddCommand(volumeCmd)
}

// withPlayer runs fn against the active MPRIS player.
func withPlayer(fn func(ctx context.Context, player music.Player) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	finder, err := music.NewMPRISFinder()
	if err != nil {
		return err
	}
	defer finder.Close()

	player, err := finder.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to find player: %w", err)
	}

	return fn(ctx, player)
}

// withMixer is withPlayer for players that support shuffle and volume.
func withMixer(fn func(ctx context.Context, mixer music.Mixer) error) error {
	return withPlayer(func(ctx context.Context, player music.Player) error {
		mixer, ok := player.(music.Mixer)
		if !ok {
			return fmt.Errorf("%s does not support shuffle or volume", player.Name())
		}
		return fn(ctx, mixer)
	})
}

func runPlay(cmd *cobra.Command, args []string) error {
	return withPlayer(func(ctx context.Context, player music.Player) error {
		if err := player.Play(ctx); err != nil {
			return fmt.Errorf("failed to play: %w", err)
		}
		return nil
	})
}

func runPause(cmd *cobra.Command, args []string) error {
	return withPlayer(func(ctx context.Context, player music.Player) error {
		if err := player.Pause(ctx); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}
		return nil
	})
}

func runPlayPause(cmd *cobra.Command, args []string) error {
	return withPlayer(func(ctx context.Context, player music.Player) error {
		if err := player.PlayPause(ctx); err != nil {
			return fmt.Errorf("failed to playpause: %w", err)
		}
		return nil
	})
}

func runNext(cmd *cobra.Command, args []string) error {
	return withPlayer(func(ctx context.Context, player music.Player) error {
		if err := player.Next(ctx); err != nil {
			return fmt.Errorf("failed to skip to next track: %w", err)
		}
		return nil
	})
}

func runPrev(cmd *cobra.Command, args []string) error {
	return withPlayer(func(ctx context.Context, player music.Player) error {
		if err := player.Previous(ctx); err != nil {
			return fmt.Errorf("failed to go to previous track: %w", err)
		}
		return nil
	})
}

func runShuffle(cmd *cobra.Command, args []string) error {
	enabled, err := parseShuffle(args[0])
	if err != nil {
		return err
	}

	return withMixer(func(ctx context.Context, mixer music.Mixer) error {
		if err := mixer.SetShuffle(ctx, enabled); err != nil {
			return fmt.Errorf("failed to set shuffle: %w", err)
		}
		return nil
	})
}

func runVolume(cmd *cobra.Command, args []string) error {
	level, err := parseVolume(args[0])
	if err != nil {
		return err
	}

	return withMixer(func(ctx context.Context, mixer music.Mixer) error {
		if err := mixer.SetVolume(ctx, level); err != nil {
			return fmt.Errorf("failed to set volume: %w", err)
		}
		return nil
	})
}

func parseShuffle(arg string) (bool, error) {
	switch arg {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid shuffle argument: %s (must be 'on' or 'off')", arg)
	}
}

func parseVolume(arg string) (int, error) {
	level, err := strconv.Atoi(arg)
	if err != nil || level < 0 || level > 100 {
		return 0, fmt.Errorf("invalid volume level: %s (must be a number 0-100)", arg)
	}
	return level, nil
}
