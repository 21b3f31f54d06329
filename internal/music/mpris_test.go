package music

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/google/go-cmp/cmp"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]dbus.Variant
		want  Metadata
	}{
		{
			name: "full metadata",
			input: map[string]dbus.Variant{
				"xesam:title":  dbus.MakeVariant("Windowlicker"),
				"xesam:artist": dbus.MakeVariant([]string{"Aphex Twin"}),
				"xesam:album":  dbus.MakeVariant("Windowlicker EP"),
				"mpris:length": dbus.MakeVariant(int64(367000000)),
			},
			want: Metadata{
				Title:   "Windowlicker",
				Artists: []string{"Aphex Twin"},
				Album:   "Windowlicker EP",
			},
		},
		{
			name: "artist as bare string",
			input: map[string]dbus.Variant{
				"xesam:title":  dbus.MakeVariant("Idioteque"),
				"xesam:artist": dbus.MakeVariant("Radiohead"),
			},
			want: Metadata{Title: "Idioteque", Artists: []string{"Radiohead"}},
		},
		{
			name: "title only",
			input: map[string]dbus.Variant{
				"xesam:title": dbus.MakeVariant("Radiohead - Idioteque"),
			},
			want: Metadata{Title: "Radiohead - Idioteque"},
		},
		{
			name: "wrong types ignored",
			input: map[string]dbus.Variant{
				"xesam:title":  dbus.MakeVariant(int32(7)),
				"xesam:artist": dbus.MakeVariant(int32(7)),
			},
			want: Metadata{},
		},
		{
			name:  "empty map",
			input: map[string]dbus.Variant{},
			want:  Metadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMetadata(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseMetadata() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePlaybackStatus(t *testing.T) {
	tests := map[string]PlayState{
		"Playing": StatePlaying,
		"Paused":  StatePaused,
		"Stopped": StateStopped,
		"playing": StateUnknown,
		"":        StateUnknown,
	}
	for input, want := range tests {
		if got := parsePlaybackStatus(input); got != want {
			t.Errorf("parsePlaybackStatus(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestPickActive(t *testing.T) {
	tests := []struct {
		name     string
		statuses []PlayState
		want     int
	}{
		{
			name:     "prefers playing",
			statuses: []PlayState{StatePaused, StateStopped, StatePlaying},
			want:     2,
		},
		{
			name:     "paused over stopped",
			statuses: []PlayState{StateStopped, StatePaused},
			want:     1,
		},
		{
			name:     "falls back to first",
			statuses: []PlayState{StateStopped, StateUnknown},
			want:     0,
		},
		{
			name:     "first playing wins",
			statuses: []PlayState{StatePlaying, StatePlaying},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickActive(tt.statuses); got != tt.want {
				t.Errorf("pickActive() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVolumeLevel(t *testing.T) {
	tests := []struct {
		percent int
		want    float64
		wantErr bool
	}{
		{percent: 0, want: 0},
		{percent: 50, want: 0.5},
		{percent: 100, want: 1},
		{percent: -1, wantErr: true},
		{percent: 101, wantErr: true},
	}

	for _, tt := range tests {
		got, err := volumeLevel(tt.percent)
		if tt.wantErr {
			if err == nil {
				t.Errorf("volumeLevel(%d) expected error", tt.percent)
			}
			continue
		}
		if err != nil {
			t.Errorf("volumeLevel(%d) unexpected error: %v", tt.percent, err)
			continue
		}
		if got != tt.want {
			t.Errorf("volumeLevel(%d) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}
