package bluetooth

import (
	"log"
	"strings"

	"github.com/AJFrio/NodeNav-sub000/utils"
	"github.com/godbus/dbus/v5"
)

const placeholderField = "Unknown"

// mediaPlayer is a daemon-side player object associated with a connected
// device. Players appear and disappear independently of the device's
// connection state, often a few seconds after connecting.
type mediaPlayer struct {
	owner string // device address
	path  dbus.ObjectPath
	props map[string]dbus.Variant // last-known properties
	seen  bool                    // at least one property read succeeded
}

var mediaControlMethods = map[string]string{
	"play":     "Play",
	"pause":    "Pause",
	"stop":     "Stop",
	"next":     "Next",
	"previous": "Previous",
}

func placeholderMediaState() utils.MediaState {
	return utils.MediaState{
		Connected: false,
		Device:    "",
		IsPlaying: false,
		Track: utils.TrackInfo{
			Title:  placeholderField,
			Artist: placeholderField,
			Album:  placeholderField,
		},
	}
}

// registerPlayerLocked associates a player object with its owning device and,
// if nothing is active yet, promotes it. An unknown owner is transient (the
// daemon can surface the player before the device record), so it is logged
// and dropped rather than treated as an error. Caller holds m.mu.
// Returns true if the media snapshot changed.
func (m *Manager) registerPlayerLocked(path dbus.ObjectPath) bool {
	owner := m.ownerForPlayerPathLocked(path)
	if owner == "" {
		log.Printf("BT: media player %s has no known owning device, ignoring", path)
		return false
	}

	player := &mediaPlayer{owner: owner, path: path, props: make(map[string]dbus.Variant)}
	if props, err := m.bus.GetAll(path, BLUEZ_MEDIA_PLAYER_INTERFACE); err != nil {
		log.Printf("BT: could not read player %s properties yet: %v", path, err)
	} else {
		player.props = props
		player.seen = true
	}
	m.players[owner] = player
	log.Printf("BT: media player for %s at %s", owner, path)

	if m.active == "" {
		m.active = owner
		m.recomputeMediaStateLocked()
		return true
	}
	if m.active == owner {
		m.recomputeMediaStateLocked()
		return true
	}
	return false
}

// ownerForPlayerPathLocked resolves the owning device by object-path prefix:
// BlueZ nests players under their device, e.g. .../dev_XX_.../player0.
func (m *Manager) ownerForPlayerPathLocked(path dbus.ObjectPath) string {
	for _, dev := range m.devices {
		if strings.HasPrefix(string(path), string(dev.path)+"/") {
			return dev.info.Address
		}
	}
	return ""
}

func (m *Manager) playerByPathLocked(path dbus.ObjectPath) *mediaPlayer {
	for _, p := range m.players {
		if p.path == path {
			return p
		}
	}
	return nil
}

// applyPlayerChangesLocked merges a PropertiesChanged payload into the
// player's cache. Only changes for the active player recompute the snapshot;
// other players keep their cache fresh so a later hand-off is not stale.
// Caller holds m.mu. Returns true if the snapshot changed.
func (m *Manager) applyPlayerChangesLocked(path dbus.ObjectPath, changed map[string]dbus.Variant) bool {
	player := m.playerByPathLocked(path)
	if player == nil {
		return false
	}
	for k, v := range changed {
		player.props[k] = v
	}
	player.seen = true

	if player.owner == m.active {
		m.recomputeMediaStateLocked()
		return true
	}
	return false
}

// removePlayerLocked deletes the player for a device address. If it was the
// active one, the pointer is cleared and the snapshot falls back to the
// disconnected placeholder. No other player is promoted automatically; the
// next ConnectDevice or manual selection establishes a new active player.
// Caller holds m.mu. Returns true if the snapshot changed.
func (m *Manager) removePlayerLocked(owner string) bool {
	if _, ok := m.players[owner]; !ok {
		return false
	}
	delete(m.players, owner)
	log.Printf("BT: media player for %s gone", owner)

	if m.active == owner {
		m.active = ""
		m.recomputeMediaStateLocked()
		return true
	}
	return false
}

// SetActivePlayer points the media snapshot at the given device address, or
// clears it when address is empty. The snapshot is recomputed immediately;
// until the player's first property read succeeds the track fields carry
// placeholders.
func (m *Manager) SetActivePlayer(address string) {
	m.mu.Lock()
	m.active = address
	m.recomputeMediaStateLocked()
	m.mu.Unlock()
	m.broadcastMediaState()
}

// discoverPlayersFor scans the managed-object tree for a player object nested
// under the device and registers it. Called after a successful connect since
// the InterfacesAdded signal may predate our device record.
func (m *Manager) discoverPlayersFor(address string) {
	tree, err := m.bus.ManagedObjects()
	if err != nil {
		log.Printf("BT: media discovery for %s failed: %v", address, err)
		return
	}

	m.mu.Lock()
	dev, ok := m.devices[address]
	if !ok {
		m.mu.Unlock()
		return
	}
	prefix := string(dev.path) + "/"
	changed := false
	for path, ifaces := range tree {
		if _, isPlayer := ifaces[BLUEZ_MEDIA_PLAYER_INTERFACE]; !isPlayer {
			continue
		}
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		if m.registerPlayerLocked(path) {
			changed = true
		}
	}
	m.mu.Unlock()
	if changed {
		m.broadcastMediaState()
	}
}

// recomputeMediaStateLocked derives the snapshot from the active player's
// cached properties. Caller holds m.mu.
func (m *Manager) recomputeMediaStateLocked() {
	if m.active == "" {
		m.mediaState = placeholderMediaState()
		return
	}

	state := placeholderMediaState()
	state.Device = m.active

	player, ok := m.players[m.active]
	if !ok || !player.seen {
		m.mediaState = state
		return
	}

	state.Connected = true
	state.IsPlaying = variantString(player.props, "Status") == "playing"
	if pos, ok := variantUint32(player.props, "Position"); ok {
		state.Track.PositionSeconds = int(pos / 1000)
	}
	if v, ok := player.props["Track"]; ok {
		if track, ok := v.Value().(map[string]dbus.Variant); ok {
			if s := variantString(track, "Title"); s != "" {
				state.Track.Title = s
			}
			if s := variantString(track, "Artist"); s != "" {
				state.Track.Artist = s
			}
			if s := variantString(track, "Album"); s != "" {
				state.Track.Album = s
			}
			if d, ok := variantUint32(track, "Duration"); ok {
				state.Track.DurationSeconds = int(d / 1000)
			}
		}
	}
	m.mediaState = state
}

// GetMediaState returns the current media snapshot. When no player is active
// every field carries an explicit placeholder, so callers never null-check.
func (m *Manager) GetMediaState() utils.MediaState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mediaState
}

// SendMediaControl relays a transport command to the active player. Commands
// are never retried here: a failed skip must not turn into a double-skip.
func (m *Manager) SendMediaControl(command string) error {
	method, ok := mediaControlMethods[command]
	if !ok {
		return &MediaControlFailedError{Command: command, Err: errUnknownCommand}
	}

	m.mu.RLock()
	var path dbus.ObjectPath
	if m.active != "" {
		if player, ok := m.players[m.active]; ok {
			path = player.path
		}
	}
	m.mu.RUnlock()

	if path == "" {
		return &NoActivePlayerError{}
	}
	if err := m.bus.Call(path, BLUEZ_MEDIA_PLAYER_INTERFACE+"."+method); err != nil {
		return &MediaControlFailedError{Command: command, Err: err}
	}
	return nil
}

func (m *Manager) Play() error     { return m.SendMediaControl("play") }
func (m *Manager) Pause() error    { return m.SendMediaControl("pause") }
func (m *Manager) Next() error     { return m.SendMediaControl("next") }
func (m *Manager) Previous() error { return m.SendMediaControl("previous") }

// StopPlayback is named to avoid clashing with the manager lifecycle Stop.
func (m *Manager) StopPlayback() error { return m.SendMediaControl("stop") }
