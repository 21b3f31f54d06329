package scrobbler

import (
	"time"
)

// DefaultScrobbleThreshold is how long a track has to play before it counts
// as listened. Anything shorter is treated as a skip or a preview.
const DefaultScrobbleThreshold = 10 * time.Second

// ShouldScrobble reports whether playingFor has reached threshold. A
// non-positive threshold falls back to DefaultScrobbleThreshold.
func ShouldScrobble(playingFor, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultScrobbleThreshold
	}
	return playingFor >= threshold
}
