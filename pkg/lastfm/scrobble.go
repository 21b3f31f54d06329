package lastfm

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// ScrobbleService provides scrobbling operations for the Last.fm API.
type ScrobbleService struct {
	client *Client
}

const (
	// MaxBatchSize is the maximum number of scrobbles allowed in a single batch.
	MaxBatchSize = 50
)

// UpdateNowPlaying tells Last.fm what the user is listening to right now. It
// does not count as a play.
func (s *ScrobbleService) UpdateNowPlaying(ctx context.Context, track Track) (*NowPlayingResponse, error) {
	params := map[string]string{}
	trackParams(params, "", track)

	inner, err := s.client.call(ctx, "track.updateNowPlaying", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		NowPlaying NowPlayingResponse `xml:"nowplaying"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse now playing response: %w", err)
	}

	return &resp.NowPlaying, nil
}

// Scrobble submits a single play that started at timestamp.
func (s *ScrobbleService) Scrobble(ctx context.Context, track Track, timestamp time.Time) (*ScrobbleResponse, error) {
	return s.ScrobbleBatch(ctx, []Scrobble{{Track: track, Timestamp: timestamp}})
}

// ScrobbleBatch submits up to MaxBatchSize plays in one request. Anything
// past MaxBatchSize is an error rather than silently dropped.
func (s *ScrobbleService) ScrobbleBatch(ctx context.Context, scrobbles []Scrobble) (*ScrobbleResponse, error) {
	if s.client.sessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if len(scrobbles) == 0 {
		return &ScrobbleResponse{}, nil
	}
	if len(scrobbles) > MaxBatchSize {
		return nil, fmt.Errorf("lastfm: batch of %d exceeds limit of %d", len(scrobbles), MaxBatchSize)
	}

	params := map[string]string{}
	for i, sc := range scrobbles {
		idx := "[" + strconv.Itoa(i) + "]"
		trackParams(params, idx, sc.Track)
		params["timestamp"+idx] = strconv.FormatInt(sc.Timestamp.Unix(), 10)
	}

	inner, err := s.client.call(ctx, "track.scrobble", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Scrobbles ScrobbleResponse `xml:"scrobbles"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse scrobble response: %w", err)
	}

	return &resp.Scrobbles, nil
}

// trackParams adds the fields of t to params, suffixing every key with idx
// ("" for single-track methods, "[n]" for batches).
func trackParams(params map[string]string, idx string, t Track) {
	params["artist"+idx] = t.Artist
	params["track"+idx] = t.Track

	if t.Album != "" {
		params["album"+idx] = t.Album
	}
	if t.AlbumArtist != "" {
		params["albumArtist"+idx] = t.AlbumArtist
	}
	if t.Duration > 0 {
		params["duration"+idx] = strconv.Itoa(t.Duration)
	}
	if t.TrackNumber > 0 {
		params["trackNumber"+idx] = strconv.Itoa(t.TrackNumber)
	}
	if t.MBTrackID != "" {
		params["mbid"+idx] = t.MBTrackID
	}
}
