package scrobbler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/w4/dobble/internal/music"
	"github.com/w4/dobble/pkg/lastfm"
)

// Gateway is the remote side of scrobbling.
type Gateway interface {
	// NowPlaying announces the track currently playing.
	NowPlaying(ctx context.Context, track music.Track) error

	// Scrobble submits one completed play.
	Scrobble(ctx context.Context, track music.Track) error

	// ScrobbleBatch submits several completed plays as one logical call.
	ScrobbleBatch(ctx context.Context, tracks []music.Track) error
}

// ClientConfig configures the Last.fm gateway.
type ClientConfig struct {
	APIKey     string
	APISecret  string
	SessionKey string

	HTTPTimeout       time.Duration // 0 means no client-side timeout
	RequestsPerSecond float64       // 0 disables throttling
	BaseURL           string        // Overrides the API endpoint, for tests
	Logger            zerolog.Logger
}

// Client wraps the Last.fm API client
type Client struct {
	client *lastfm.Client
	logger zerolog.Logger
}

var _ Gateway = (*Client)(nil)

// New creates a Last.fm client. SessionKey may be empty while authenticating.
func New(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger.With().Str("component", "lastfm").Logger()

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		SessionKey: cfg.SessionKey,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		BaseURL:    cfg.BaseURL,
		Logger:     debugLogger{logger},
		Limiter:    limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lastfm client: %w", err)
	}

	return &Client{client: client, logger: logger}, nil
}

// debugLogger adapts zerolog to lastfm.Logger.
type debugLogger struct {
	logger zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// AuthenticateWithToken initiates the authentication flow
// Returns the auth URL that the user should visit
func (c *Client) AuthenticateWithToken(ctx context.Context) (token string, authURL string, err error) {
	tokenResp, err := c.client.Auth().GetToken(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to get auth token: %w", err)
	}

	return tokenResp.Token, c.client.Auth().GetAuthURL(tokenResp.Token), nil
}

// GetSession completes the authentication flow after user authorization
// Returns the session key that should be stored for future use
func (c *Client) GetSession(ctx context.Context, token string) (sessionKey string, err error) {
	session, err := c.client.Auth().GetSession(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to login with token: %w", err)
	}

	if session.Key == "" {
		return "", fmt.Errorf("received empty session key")
	}

	c.client.SetSessionKey(session.Key)

	return session.Key, nil
}

func (c *Client) NowPlaying(ctx context.Context, track music.Track) error {
	resp, err := c.client.Scrobble().UpdateNowPlaying(ctx, toLastFM(track))
	if err != nil {
		return fmt.Errorf("failed to update now playing: %w", err)
	}

	if resp.IgnoredMessage.Code != 0 {
		c.logger.Warn().
			Str("artist", track.Artist).
			Str("title", track.Title).
			Str("reason", resp.IgnoredMessage.Text).
			Msg("Now playing ignored by Last.fm")
	}

	return nil
}

func (c *Client) Scrobble(ctx context.Context, track music.Track) error {
	resp, err := c.client.Scrobble().Scrobble(ctx, toLastFM(track), timestamp(track))
	if err != nil {
		return fmt.Errorf("failed to scrobble track: %w", err)
	}

	c.logIgnored(resp)
	return nil
}

// ScrobbleBatch sends tracks in chunks of lastfm.MaxBatchSize. It stops at
// the first failing chunk; chunks already accepted will be sent again when
// the caller retries.
func (c *Client) ScrobbleBatch(ctx context.Context, tracks []music.Track) error {
	for start := 0; start < len(tracks); start += lastfm.MaxBatchSize {
		end := start + lastfm.MaxBatchSize
		if end > len(tracks) {
			end = len(tracks)
		}

		chunk := make([]lastfm.Scrobble, 0, end-start)
		for _, t := range tracks[start:end] {
			chunk = append(chunk, lastfm.Scrobble{Track: toLastFM(t), Timestamp: timestamp(t)})
		}

		resp, err := c.client.Scrobble().ScrobbleBatch(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to scrobble batch of %d: %w", len(chunk), err)
		}
		c.logIgnored(resp)
	}

	return nil
}

// logIgnored reports plays Last.fm refused. An ignored play is a permanent
// rejection of that entry, not a delivery failure, so it is not retried.
func (c *Client) logIgnored(resp *lastfm.ScrobbleResponse) {
	if resp.Ignored == 0 {
		return
	}
	for _, s := range resp.Scrobbles {
		if s.IgnoredMessage.Code == 0 {
			continue
		}
		c.logger.Warn().
			Str("artist", s.Artist).
			Str("title", s.Track).
			Int("code", s.IgnoredMessage.Code).
			Str("reason", s.IgnoredMessage.Text).
			Msg("Scrobble ignored by Last.fm")
	}
}

// IsAuthenticated checks if the client has a valid session
func (c *Client) IsAuthenticated() bool {
	return c.client.GetSessionKey() != ""
}

// GetSessionKey returns the current session key
func (c *Client) GetSessionKey() string {
	return c.client.GetSessionKey()
}

func toLastFM(t music.Track) lastfm.Track {
	return lastfm.Track{
		Artist: t.Artist,
		Track:  t.Title,
		Album:  t.Album,
	}
}

func timestamp(t music.Track) time.Time {
	if t.StartedAt.IsZero() {
		return time.Now()
	}
	return t.StartedAt
}
