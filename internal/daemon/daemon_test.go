package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w4/dobble/internal/music"
	"github.com/w4/dobble/internal/scrobbler"
)

var errLastFMDown = errors.New("last.fm unreachable")

// stubGateway records submissions and fails all of them while down.
type stubGateway struct {
	mu         sync.Mutex
	down       bool
	nowPlaying []music.Track
	singles    []music.Track
	batches    [][]music.Track
}

func (g *stubGateway) setDown(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down = down
}

func (g *stubGateway) NowPlaying(_ context.Context, track music.Track) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return errLastFMDown
	}
	g.nowPlaying = append(g.nowPlaying, track)
	return nil
}

func (g *stubGateway) Scrobble(_ context.Context, track music.Track) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return errLastFMDown
	}
	g.singles = append(g.singles, track)
	return nil
}

func (g *stubGateway) ScrobbleBatch(_ context.Context, tracks []music.Track) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return errLastFMDown
	}
	g.batches = append(g.batches, append([]music.Track(nil), tracks...))
	return nil
}

func (g *stubGateway) counts() (nowPlaying, singles, batches int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nowPlaying), len(g.singles), len(g.batches)
}

type daemonHarness struct {
	daemon  *Daemon
	clock   *clockwork.FakeClock
	player  *fakePlayer
	gateway *stubGateway
	queue   *scrobbler.Queue
}

func newDaemonHarness(t *testing.T) *daemonHarness {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	player := &fakePlayer{running: true, status: music.StateStopped}
	finder := &fakeFinder{player: player, available: true}
	gateway := &stubGateway{}

	queue, err := scrobbler.NewQueue(zerolog.Nop(), nil)
	require.NoError(t, err)

	d := New(Config{Clock: clock, PlayerWait: time.Millisecond}, finder, gateway, queue, zerolog.Nop())
	return &daemonHarness{daemon: d, clock: clock, player: player, gateway: gateway, queue: queue}
}

// ticks advances the clock one second at a time and waits for each poll
// to reach the player before moving on.
func (h *daemonHarness) ticks(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		before := h.player.pollCount()
		h.clock.Advance(time.Second)
		require.Eventually(t, func() bool {
			return h.player.pollCount() > before
		}, time.Second, time.Millisecond, "tick %d never reached the player", i+1)
	}
}

func TestDaemon_ScrobblesQueuesAndRetries(t *testing.T) {
	h := newDaemonHarness(t)
	h.player.set(music.StatePlaying, playing([]string{"Radiohead"}, "Idioteque"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.daemon.run(ctx) }()

	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))

	// 10s after the first observation is a listen.
	h.ticks(t, 11)
	require.Eventually(t, func() bool {
		np, singles, _ := h.gateway.counts()
		return np == 1 && singles == 1
	}, time.Second, time.Millisecond)

	// Last.fm goes away while the next track plays past the threshold.
	h.gateway.setDown(true)
	h.player.set(music.StatePlaying, music.Metadata{Title: "▶ Aphex Twin - Windowlicker"})
	h.ticks(t, 11)

	require.Eventually(t, func() bool { return h.queue.Len() == 1 }, time.Second, time.Millisecond)
	queued := h.queue.Snapshot()[0]
	assert.Equal(t, "Aphex Twin", queued.Artist)
	assert.Equal(t, "Windowlicker", queued.Title)
	assert.True(t, queued.Scrobbled)
	assert.Equal(t, 10*time.Second, queued.PlayingFor)

	// Back up before the minute mark; the retry goes out as a single scrobble.
	h.gateway.setDown(false)
	h.ticks(t, 60-22)

	require.Eventually(t, func() bool {
		_, singles, _ := h.gateway.counts()
		return singles == 2 && h.queue.Len() == 0
	}, time.Second, time.Millisecond)

	np, singles, batches := h.gateway.counts()
	assert.Equal(t, 1, np, "announcement made while down is not retried")
	assert.Equal(t, 2, singles)
	assert.Zero(t, batches)

	h.gateway.mu.Lock()
	retried := h.gateway.singles[1]
	h.gateway.mu.Unlock()
	assert.Equal(t, "Windowlicker", retried.Title)

	cancel()
	require.NoError(t, <-done)
}

func TestDaemon_ShutdownWithoutPlayer(t *testing.T) {
	h := newDaemonHarness(t)
	h.daemon.poller.finder.(*fakeFinder).setAvailable(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.daemon.run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean stop")
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop")
	}
}
