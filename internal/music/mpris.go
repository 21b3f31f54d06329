package music

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"

	dbusListNames    = "org.freedesktop.DBus.ListNames"
	dbusNameHasOwner = "org.freedesktop.DBus.NameHasOwner"
	dbusPropertyGet  = "org.freedesktop.DBus.Properties.Get"
	dbusPropertySet  = "org.freedesktop.DBus.Properties.Set"
)

// MPRISFinder discovers MPRIS2 players on the D-Bus session bus.
type MPRISFinder struct {
	conn *dbus.Conn
}

// NewMPRISFinder connects to the session bus.
func NewMPRISFinder() (*MPRISFinder, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MPRISFinder{conn: conn}, nil
}

// Close closes the bus connection
func (f *MPRISFinder) Close() error {
	return f.conn.Close()
}

// FindActive returns a playing player if there is one, then a paused one,
// then whichever player registered first.
func (f *MPRISFinder) FindActive(ctx context.Context) (Player, error) {
	var names []string
	if err := f.conn.BusObject().CallWithContext(ctx, dbusListNames, 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}

	var players []*mprisPlayer
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, &mprisPlayer{
				conn: f.conn,
				name: name,
				obj:  f.conn.Object(name, mprisPath),
			})
		}
	}
	if len(players) == 0 {
		return nil, ErrNoPlayer
	}

	statuses := make([]PlayState, len(players))
	for i, p := range players {
		status, err := p.Status(ctx)
		if err != nil {
			status = StateUnknown
		}
		statuses[i] = status
	}

	return players[pickActive(statuses)], nil
}

// pickActive returns the index of the preferred player given their states.
func pickActive(statuses []PlayState) int {
	for _, want := range []PlayState{StatePlaying, StatePaused} {
		for i, s := range statuses {
			if s == want {
				return i
			}
		}
	}
	return 0
}

type mprisPlayer struct {
	conn *dbus.Conn
	name string
	obj  dbus.BusObject
}

var (
	_ Player = (*mprisPlayer)(nil)
	_ Mixer  = (*mprisPlayer)(nil)
)

func (p *mprisPlayer) Name() string {
	return p.name
}

func (p *mprisPlayer) IsRunning(ctx context.Context) bool {
	var owned bool
	err := p.conn.BusObject().CallWithContext(ctx, dbusNameHasOwner, 0, p.name).Store(&owned)
	return err == nil && owned
}

func (p *mprisPlayer) Status(ctx context.Context) (PlayState, error) {
	v, err := p.property(ctx, "PlaybackStatus")
	if err != nil {
		return StateUnknown, err
	}
	s, ok := v.Value().(string)
	if !ok {
		return StateUnknown, fmt.Errorf("unexpected PlaybackStatus type %s", v.Signature())
	}
	return parsePlaybackStatus(s), nil
}

func (p *mprisPlayer) Metadata(ctx context.Context) (Metadata, error) {
	v, err := p.property(ctx, "Metadata")
	if err != nil {
		return Metadata{}, err
	}
	m, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return Metadata{}, fmt.Errorf("unexpected Metadata type %s", v.Signature())
	}
	return parseMetadata(m), nil
}

func (p *mprisPlayer) Play(ctx context.Context) error {
	return p.call(ctx, "Play")
}

func (p *mprisPlayer) Pause(ctx context.Context) error {
	return p.call(ctx, "Pause")
}

func (p *mprisPlayer) PlayPause(ctx context.Context) error {
	return p.call(ctx, "PlayPause")
}

func (p *mprisPlayer) Next(ctx context.Context) error {
	return p.call(ctx, "Next")
}

func (p *mprisPlayer) Previous(ctx context.Context) error {
	return p.call(ctx, "Previous")
}

func (p *mprisPlayer) SetShuffle(ctx context.Context, on bool) error {
	return p.setProperty(ctx, "Shuffle", dbus.MakeVariant(on))
}

func (p *mprisPlayer) SetVolume(ctx context.Context, percent int) error {
	level, err := volumeLevel(percent)
	if err != nil {
		return err
	}
	return p.setProperty(ctx, "Volume", dbus.MakeVariant(level))
}

// volumeLevel converts a 0-100 percentage to the 0.0-1.0 MPRIS scale.
func volumeLevel(percent int) (float64, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("volume %d out of range 0-100", percent)
	}
	return float64(percent) / 100, nil
}

func (p *mprisPlayer) call(ctx context.Context, method string) error {
	if err := p.obj.CallWithContext(ctx, mprisPlayerIface+"."+method, 0).Err; err != nil {
		return fmt.Errorf("%s %s: %w", p.name, method, err)
	}
	return nil
}

func (p *mprisPlayer) property(ctx context.Context, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := p.obj.CallWithContext(ctx, dbusPropertyGet, 0, mprisPlayerIface, name).Store(&v)
	if err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to read %s from %s: %w", name, p.name, err)
	}
	return v, nil
}

func (p *mprisPlayer) setProperty(ctx context.Context, name string, value dbus.Variant) error {
	if err := p.obj.CallWithContext(ctx, dbusPropertySet, 0, mprisPlayerIface, name, value).Err; err != nil {
		return fmt.Errorf("failed to set %s on %s: %w", name, p.name, err)
	}
	return nil
}

func parsePlaybackStatus(s string) PlayState {
	switch s {
	case "Playing":
		return StatePlaying
	case "Paused":
		return StatePaused
	case "Stopped":
		return StateStopped
	default:
		return StateUnknown
	}
}

// parseMetadata extracts the xesam fields we use from an MPRIS metadata map.
func parseMetadata(m map[string]dbus.Variant) Metadata {
	var md Metadata
	if v, ok := m["xesam:title"]; ok {
		md.Title, _ = v.Value().(string)
	}
	if v, ok := m["xesam:album"]; ok {
		md.Album, _ = v.Value().(string)
	}
	if v, ok := m["xesam:artist"]; ok {
		switch artists := v.Value().(type) {
		case []string:
			md.Artists = artists
		case string:
			// some players send a bare string
			if artists != "" {
				md.Artists = []string{artists}
			}
		}
	}
	return md
}
