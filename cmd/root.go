/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dobble",
	Short: "MPRIS scrobbler for Last.fm",
	Long: `dobble is a Last.fm scrobbler for Linux media players.

It runs as a background daemon that follows whichever MPRIS player is
active on the session bus and scrobbles what it plays to Last.fm. Tracks
count as listened after ten seconds of playback, and submissions that fail
are retried in a batch once a minute.

It also provides a CLI command to query the currently playing track,
useful for displaying in tmux status lines or other status bars, and
commands to control playback.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
