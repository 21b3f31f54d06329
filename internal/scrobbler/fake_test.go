package scrobbler

import (
	"context"
	"errors"
	"sync"

	"github.com/w4/dobble/internal/music"
)

var errGatewayDown = errors.New("gateway down")

// fakeGateway records calls and fails while down is set. If block is
// non-nil every call waits on it first.
type fakeGateway struct {
	mu         sync.Mutex
	down       bool
	block      chan struct{}
	nowPlaying []music.Track
	singles    []music.Track
	batches    [][]music.Track
}

func (g *fakeGateway) setDown(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down = down
}

func (g *fakeGateway) wait(ctx context.Context) error {
	if g.block == nil {
		return nil
	}
	select {
	case <-g.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *fakeGateway) NowPlaying(ctx context.Context, track music.Track) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return errGatewayDown
	}
	g.nowPlaying = append(g.nowPlaying, track)
	return nil
}

func (g *fakeGateway) Scrobble(ctx context.Context, track music.Track) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return errGatewayDown
	}
	g.singles = append(g.singles, track)
	return nil
}

func (g *fakeGateway) ScrobbleBatch(ctx context.Context, tracks []music.Track) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return errGatewayDown
	}
	batch := make([]music.Track, len(tracks))
	copy(batch, tracks)
	g.batches = append(g.batches, batch)
	return nil
}

func (g *fakeGateway) counts() (nowPlaying, singles, batches int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nowPlaying), len(g.singles), len(g.batches)
}

func track(artist, title string) music.Track {
	return music.Track{Artist: artist, Title: title, Scrobbled: true}
}
