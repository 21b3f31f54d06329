package music

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Track is one observed unit of player metadata.
//
// Identity is (Artist, Title) only, see Key. Album and the timing fields are
// carried along for submission but never decide whether two observations are
// the same track.
type Track struct {
	Artist     string        // Artist name
	Title      string        // Track title
	Album      string        // Album name, may be empty
	Scrobbled  bool          // Whether this play has been submitted as a scrobble
	PlayingFor time.Duration // Accumulated playing time
	StartedAt  time.Time     // When tracking of this play began
}

// Key identifies a track for deduplication across polls.
type Key struct {
	Artist string
	Title  string
}

// Key returns the identity of the track.
func (t Track) Key() Key {
	return Key{Artist: t.Artist, Title: t.Title}
}

// Same reports whether t and other are the same track.
func (t Track) Same(other Track) bool {
	return t.Key() == other.Key()
}

// Metadata is a raw snapshot of what the player reports for the current item.
// Empty values mean the player did not report the field.
type Metadata struct {
	Title   string
	Artists []string
	Album   string
}

// ErrMissingMetadata is matched by every *MissingMetadataError.
var ErrMissingMetadata = errors.New("missing metadata")

// MissingMetadataError is returned when a required field cannot be derived.
type MissingMetadataError struct {
	Field string
}

func (e *MissingMetadataError) Error() string {
	return "missing metadata field " + e.Field
}

func (e *MissingMetadataError) Is(target error) bool {
	return target == ErrMissingMetadata
}

const (
	titleSeparator = " - "
	// Plex prefixes the artist segment with a play glyph when it packs
	// "artist - title" into the title field.
	playGlyphPrefix = "▶ "
)

// FromMetadata derives a Track from a metadata snapshot.
//
// When no artist is reported the title is expected to look like
// "Artist - Title" and is split on the first separator.
func FromMetadata(md Metadata) (Track, error) {
	title := md.Title
	if title == "" {
		return Track{}, &MissingMetadataError{Field: "title"}
	}

	artist := strings.Join(md.Artists, ", ")
	if artist == "" {
		left, right, ok := strings.Cut(title, titleSeparator)
		if !ok {
			return Track{}, &MissingMetadataError{Field: "artist split from title"}
		}
		artist = strings.TrimPrefix(left, playGlyphPrefix)
		title = right
	}

	return Track{
		Artist: artist,
		Title:  title,
		Album:  md.Album,
	}, nil
}

// PlayState represents the current playback state of the music player
type PlayState int

const (
	StateStopped PlayState = iota // No track playing
	StatePlaying                  // Track is currently playing
	StatePaused                   // Track is paused
	StateUnknown                  // Player reported something else
)

// String returns a human-readable representation of the PlayState
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ErrNoPlayer is returned by a Finder when no player is on the bus.
var ErrNoPlayer = errors.New("no active player found")

// Player is a single media player instance.
type Player interface {
	// Name returns the player's bus identity, e.g. "org.mpris.MediaPlayer2.spotify".
	Name() string

	// IsRunning reports whether the player is still reachable.
	IsRunning(ctx context.Context) bool

	// Status returns the current playback status.
	Status(ctx context.Context) (PlayState, error)

	// Metadata returns the metadata of the current item.
	Metadata(ctx context.Context) (Metadata, error)

	// Play resumes playback
	Play(ctx context.Context) error

	// Pause pauses playback
	Pause(ctx context.Context) error

	// PlayPause toggles between play and pause
	PlayPause(ctx context.Context) error

	// Next skips to the next track
	Next(ctx context.Context) error

	// Previous goes to the previous track
	Previous(ctx context.Context) error
}

// Finder locates the active player.
type Finder interface {
	// FindActive returns the most relevant player, or ErrNoPlayer.
	FindActive(ctx context.Context) (Player, error)
}

// Mixer is implemented by players whose shuffle and volume can be changed.
type Mixer interface {
	// SetShuffle turns shuffle on or off
	SetShuffle(ctx context.Context, on bool) error

	// SetVolume sets the volume as a percentage (0-100)
	SetVolume(ctx context.Context, percent int) error
}
