/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/w4/dobble/internal/config"
	"github.com/w4/dobble/internal/music"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the track playing in the active player",
	Long: `Query the active MPRIS player and display the currently playing track.

The output format can be customized in ~/.config/dobble/config.yaml
using a Go template. Available fields: .Artist, .Title, .Album

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or no player running`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if formatFlag, _ := cmd.Flags().GetString("format"); formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	track, playing, err := currentTrack(ctx)
	if err != nil {
		return err
	}
	if !playing {
		os.Exit(1)
	}

	output, err := formatTrack(track, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee := cfg.MarqueeEnabled
	if cmd.Flags().Changed("marquee") {
		marquee, _ = cmd.Flags().GetBool("marquee")
	}

	if width > 0 {
		if marquee {
			output = marqueeText(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
		} else {
			output = padToWidth(output, width)
		}
	}

	fmt.Println(output)
	return nil
}

// currentTrack reads the active player. playing is false when nothing is
// playing or no player is running.
func currentTrack(ctx context.Context) (track music.Track, playing bool, err error) {
	finder, err := music.NewMPRISFinder()
	if err != nil {
		return music.Track{}, false, err
	}
	defer finder.Close()

	player, err := finder.FindActive(ctx)
	if err != nil {
		return music.Track{}, false, nil
	}

	status, err := player.Status(ctx)
	if err != nil || status != music.StatePlaying {
		return music.Track{}, false, nil
	}

	md, err := player.Metadata(ctx)
	if err != nil {
		return music.Track{}, false, fmt.Errorf("failed to get current track: %w", err)
	}

	track, err = music.FromMetadata(md)
	if err != nil {
		return music.Track{}, false, fmt.Errorf("failed to get current track: %w", err)
	}
	return track, true, nil
}

// formatTrack applies the template to the track data
func formatTrack(track music.Track, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, so wide runes count double.
// Text longer than width is truncated with a "..." suffix.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."

	if runewidth.StringWidth(text) > width {
		if width <= runewidth.StringWidth(ellipsis) {
			return runewidth.Truncate(ellipsis, width, "")
		}
		// Truncate can land one column short of width next to a wide rune.
		text = runewidth.Truncate(text, width, ellipsis)
	}

	return runewidth.FillRight(text, width)
}

// marqueeText scrolls text through a window of width columns. The offset
// is derived from now (speed characters per second) so repeated calls from
// a status bar step through the text without keeping state. Text that fits
// is padded instead.
func marqueeText(text string, width int, speed int, separator string, now time.Time) string {
	if width <= 0 {
		return text
	}

	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	// one period of the scroll; the window wraps back to the start of text
	loop := []rune(text + separator)
	position := int(now.Unix()*int64(speed)) % len(loop)
	if position < 0 {
		position += len(loop)
	}

	var window strings.Builder
	used := 0
	for i := 0; i < len(loop); i++ {
		r := loop[(position+i)%len(loop)]
		rw := runewidth.RuneWidth(r)
		if used+rw > width {
			break
		}
		window.WriteRune(r)
		used += rw
	}

	return runewidth.FillRight(window.String(), width)
}
