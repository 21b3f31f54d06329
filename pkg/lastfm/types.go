package lastfm

import (
	"time"
)

// Track is the track payload shared by now playing and scrobble calls.
type Track struct {
	Artist      string // Required: Artist name
	Track       string // Required: Track name
	Album       string // Optional: Album name
	AlbumArtist string // Optional: Album artist (if different from track artist)
	Duration    int    // Optional: Track duration in seconds
	TrackNumber int    // Optional: Track number on album
	MBTrackID   string // Optional: MusicBrainz track ID
}

// Scrobble is a track with the time it started playing.
type Scrobble struct {
	Track     Track
	Timestamp time.Time
}

// Token represents an authentication token from auth.getToken.
type Token struct {
	Token string
}

// Session represents an authenticated session from auth.getSession.
type Session struct {
	Key        string // Session key for authenticated requests
	Username   string // Last.fm username
	Subscriber bool   // Whether user is a subscriber
}

// IgnoredMessage explains why Last.fm ignored a submission. Code 0 means it
// was not ignored.
type IgnoredMessage struct {
	Code int    `xml:"code,attr"`
	Text string `xml:",chardata"`
}

// NowPlayingResponse represents the response from track.updateNowPlaying.
type NowPlayingResponse struct {
	Artist         string         `xml:"artist"`
	Track          string         `xml:"track"`
	Album          string         `xml:"album"`
	AlbumArtist    string         `xml:"albumArtist"`
	IgnoredMessage IgnoredMessage `xml:"ignoredMessage"`
}

// ScrobbleResult is the per-track part of a track.scrobble response.
type ScrobbleResult struct {
	Artist         string         `xml:"artist"`
	Track          string         `xml:"track"`
	Album          string         `xml:"album"`
	Timestamp      int64          `xml:"timestamp"`
	IgnoredMessage IgnoredMessage `xml:"ignoredMessage"`
}

// ScrobbleResponse represents the response from track.scrobble.
type ScrobbleResponse struct {
	Accepted  int              `xml:"accepted,attr"`
	Ignored   int              `xml:"ignored,attr"`
	Scrobbles []ScrobbleResult `xml:"scrobble"`
}
