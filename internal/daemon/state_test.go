package daemon

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/w4/dobble/internal/music"
)

// recordingSubmitter keeps every announcement in order.
type recordingSubmitter struct {
	mu         sync.Mutex
	nowPlaying []music.Track
	scrobbles  []music.Track
}

func (r *recordingSubmitter) NowPlaying(t music.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowPlaying = append(r.nowPlaying, t)
}

func (r *recordingSubmitter) Scrobble(t music.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrobbles = append(r.scrobbles, t)
}

func (r *recordingSubmitter) counts() (nowPlaying, scrobbles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nowPlaying), len(r.scrobbles)
}

func newTestTracker(t *testing.T) (*Tracker, *recordingSubmitter) {
	t.Helper()
	sub := &recordingSubmitter{}
	return NewTracker(sub, 10*time.Second, zerolog.Nop()), sub
}

func song(artist, title string) *music.Track {
	return &music.Track{Artist: artist, Title: title}
}

func TestTracker_NewTrackAnnounced(t *testing.T) {
	tr, sub := newTestTracker(t)

	tr.Observe(song("Radiohead", "Idioteque"), time.Second)

	if tr.State() != StateTracking {
		t.Fatalf("expected tracking, got %s", tr.State())
	}
	if len(sub.nowPlaying) != 1 {
		t.Fatalf("expected 1 now playing, got %d", len(sub.nowPlaying))
	}
	if cur := tr.Current(); cur.PlayingFor != 0 || cur.Scrobbled {
		t.Errorf("new track should start fresh, got %+v", cur)
	}
}

func TestTracker_ScrobblesOnceAtThreshold(t *testing.T) {
	tr, sub := newTestTracker(t)

	tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	for i := 0; i < 9; i++ {
		tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	}
	if len(sub.scrobbles) != 0 {
		t.Fatalf("scrobbled after %v", tr.Current().PlayingFor)
	}

	tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	if len(sub.scrobbles) != 1 {
		t.Fatalf("expected a scrobble at 10s, got %d", len(sub.scrobbles))
	}
	if tr.State() != StateScrobbled {
		t.Errorf("expected scrobbled, got %s", tr.State())
	}
	if !sub.scrobbles[0].Scrobbled || sub.scrobbles[0].PlayingFor != 10*time.Second {
		t.Errorf("unexpected scrobbled track %+v", sub.scrobbles[0])
	}

	for i := 0; i < 60; i++ {
		tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	}
	if len(sub.scrobbles) != 1 {
		t.Errorf("expected exactly one scrobble per play, got %d", len(sub.scrobbles))
	}
	if len(sub.nowPlaying) != 1 {
		t.Errorf("same track re-announced %d times", len(sub.nowPlaying))
	}
	if got := tr.Current().PlayingFor; got != 70*time.Second {
		t.Errorf("expected play time to keep accumulating, got %v", got)
	}
}

func TestTracker_AlbumDoesNotChangeIdentity(t *testing.T) {
	tr, sub := newTestTracker(t)

	tr.Observe(&music.Track{Artist: "Radiohead", Title: "Idioteque", Album: "Kid A"}, time.Second)
	tr.Observe(&music.Track{Artist: "Radiohead", Title: "Idioteque", Album: "I Might Be Wrong"}, 5*time.Second)

	if len(sub.nowPlaying) != 1 {
		t.Errorf("album change re-announced the track")
	}
	if got := tr.Current().PlayingFor; got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}
}

func TestTracker_TrackChange(t *testing.T) {
	tr, sub := newTestTracker(t)

	tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	tr.Observe(song("Radiohead", "Idioteque"), 5*time.Second)
	tr.Observe(song("Aphex Twin", "Windowlicker"), time.Second)

	want := []music.Track{
		{Artist: "Radiohead", Title: "Idioteque"},
		{Artist: "Aphex Twin", Title: "Windowlicker"},
	}
	if diff := cmp.Diff(want, sub.nowPlaying); diff != "" {
		t.Errorf("now playing mismatch (-want +got):\n%s", diff)
	}
	if len(sub.scrobbles) != 0 {
		t.Error("skipped track should not be scrobbled")
	}
	if got := tr.Current().PlayingFor; got != 0 {
		t.Errorf("elapsed time leaked into the new track: %v", got)
	}
}

func TestTracker_NilObservationGoesIdle(t *testing.T) {
	tr, _ := newTestTracker(t)

	tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	tr.Observe(nil, time.Second)

	if tr.State() != StateIdle || tr.Current() != nil {
		t.Errorf("expected idle with no track, got %s %+v", tr.State(), tr.Current())
	}
}

func TestTracker_ReplayAfterReset(t *testing.T) {
	tr, sub := newTestTracker(t)

	tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	for i := 0; i < 10; i++ {
		tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	}
	tr.Reset()

	for i := 0; i < 11; i++ {
		tr.Observe(song("Radiohead", "Idioteque"), time.Second)
	}

	if len(sub.nowPlaying) != 2 || len(sub.scrobbles) != 2 {
		t.Errorf("expected a second announced and scrobbled play, got %d/%d", len(sub.nowPlaying), len(sub.scrobbles))
	}
}

func TestTracker_CurrentIsACopy(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.Observe(song("Radiohead", "Idioteque"), time.Second)

	cur := tr.Current()
	cur.PlayingFor = time.Hour

	if tr.Current().PlayingFor != 0 {
		t.Error("Current leaked internal state")
	}
}

func TestTrackerState_String(t *testing.T) {
	tests := map[TrackerState]string{
		StateIdle:        "idle",
		StateTracking:    "tracking",
		StateScrobbled:   "scrobbled",
		TrackerState(42): "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("TrackerState(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
