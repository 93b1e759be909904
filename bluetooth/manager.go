package bluetooth

import (
	"log"
	"sync"
	"time"

	"github.com/AJFrio/NodeNav-sub000/utils"
	"github.com/godbus/dbus/v5"
)

// Options configures the manager at construction; values come from the
// daemon configuration, not runtime branching.
type Options struct {
	AdapterAlias string
	ScanWindow   time.Duration
}

const DefaultScanWindow = 30 * time.Second

// Manager reconciles the daemon's push notifications with the synchronous
// snapshot API the HTTP facade consumes. All notifications are handled by a
// single event loop; the mutating verbs synchronize with it through m.mu.
type Manager struct {
	bus Bus
	hub *utils.WebSocketHub

	adapter *adapterController

	mu         sync.RWMutex
	devices    map[string]*device      // keyed by hardware address
	players    map[string]*mediaPlayer // keyed by owner address
	active     string                  // owner address of the active player
	mediaState utils.MediaState

	running  bool
	stopped  bool
	stopChan chan struct{}
}

// NewManager wires a manager to the given bus backend. hub may be nil when no
// event boundary is wanted (tests, one-shot tools).
func NewManager(bus Bus, hub *utils.WebSocketHub, opts Options) *Manager {
	if opts.AdapterAlias == "" {
		opts.AdapterAlias = "NodeNav"
	}
	if opts.ScanWindow <= 0 {
		opts.ScanWindow = DefaultScanWindow
	}
	return &Manager{
		bus:        bus,
		hub:        hub,
		adapter:    newAdapterController(bus, opts.AdapterAlias, opts.ScanWindow),
		devices:    make(map[string]*device),
		players:    make(map[string]*mediaPlayer),
		mediaState: placeholderMediaState(),
		stopChan:   make(chan struct{}),
	}
}

// Initialize enumerates the daemon's objects, brings up the adapter, registers
// the pairing agent and seeds the registry. A missing adapter is fatal; a
// failed agent registration only degrades pairing and is logged.
func (m *Manager) Initialize() error {
	tree, err := m.bus.ManagedObjects()
	if err != nil {
		return &TransportError{Op: "GetManagedObjects", Err: err}
	}

	if err := m.adapter.initialize(tree); err != nil {
		return err
	}

	if err := registerAgent(m.bus); err != nil {
		log.Printf("BT: %v, pairing degrades to daemon defaults", err)
	} else {
		log.Printf("BT: pairing agent registered with capability %s", AGENT_CAPABILITY)
	}

	m.mu.Lock()
	for path, ifaces := range tree {
		if props, ok := ifaces[BLUEZ_DEVICE_INTERFACE]; ok {
			m.upsertDeviceLocked(path, props)
		}
	}
	// Players second, so prefix resolution sees every device.
	for path, ifaces := range tree {
		if _, ok := ifaces[BLUEZ_MEDIA_PLAYER_INTERFACE]; ok {
			m.registerPlayerLocked(path)
		}
	}
	count := len(m.devices)
	m.mu.Unlock()

	log.Printf("BT: initialized with %d known devices", count)
	return nil
}

// Start launches the notification loop. Handlers run strictly sequentially;
// one malformed notification is logged and must never halt the stream.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.running || m.stopped {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.eventLoop()
}

// Stop shuts the loop down and closes the bus. The manager is single-shot:
// once stopped it cannot be restarted, a later Start is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.stopped = true
	m.mu.Unlock()

	close(m.stopChan)
	if err := m.bus.Close(); err != nil {
		log.Printf("BT: closing bus: %v", err)
	}
}

func (m *Manager) eventLoop() {
	signals := m.bus.Signals()
	for {
		select {
		case <-m.stopChan:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			m.handleSignal(sig)
		}
	}
}

// handleSignal dispatches one bus notification. Reconciliation never returns
// an error outward; failures are logged and the stream continues.
func (m *Manager) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}
	switch sig.Name {
	case SIGNAL_INTERFACES_ADDED:
		if len(sig.Body) < 2 {
			return
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return
		}
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return
		}
		m.handleInterfacesAdded(path, ifaces)

	case SIGNAL_INTERFACES_REMOVED:
		if len(sig.Body) < 2 {
			return
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return
		}
		ifaces, ok := sig.Body[1].([]string)
		if !ok {
			return
		}
		m.handleInterfacesRemoved(path, ifaces)

	case SIGNAL_PROPERTIES_CHANGED:
		if len(sig.Body) < 2 {
			return
		}
		iface, ok := sig.Body[0].(string)
		if !ok {
			return
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok || len(changed) == 0 {
			return
		}
		m.handlePropertiesChanged(sig.Path, iface, changed)
	}
}

func (m *Manager) handleInterfacesAdded(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) {
	devicesChanged := false
	mediaChanged := false

	m.mu.Lock()
	if props, ok := ifaces[BLUEZ_DEVICE_INTERFACE]; ok {
		devicesChanged = m.upsertDeviceLocked(path, props)
	}
	if _, ok := ifaces[BLUEZ_MEDIA_PLAYER_INTERFACE]; ok {
		mediaChanged = m.registerPlayerLocked(path)
	}
	m.mu.Unlock()

	if devicesChanged {
		m.broadcastDevices()
	}
	if mediaChanged {
		m.broadcastMediaState()
	}
}

func (m *Manager) handleInterfacesRemoved(path dbus.ObjectPath, ifaces []string) {
	devicesChanged := false
	mediaChanged := false

	m.mu.Lock()
	for _, iface := range ifaces {
		switch iface {
		case BLUEZ_DEVICE_INTERFACE:
			if m.removeDeviceLocked(path) {
				devicesChanged = true
				mediaChanged = true
			}
		case BLUEZ_MEDIA_PLAYER_INTERFACE:
			if player := m.playerByPathLocked(path); player != nil {
				if m.removePlayerLocked(player.owner) {
					mediaChanged = true
				}
			}
		}
	}
	m.mu.Unlock()

	if devicesChanged {
		m.broadcastDevices()
	}
	if mediaChanged {
		m.broadcastMediaState()
	}
}

func (m *Manager) handlePropertiesChanged(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant) {
	switch iface {
	case BLUEZ_ADAPTER_INTERFACE:
		// Only the selected adapter feeds the snapshot; changes on other
		// adapters of a multi-radio host are ignored.
		if path != m.adapter.objectPath() {
			return
		}
		m.adapter.applyChanges(changed)
		m.broadcastAdapter()

	case BLUEZ_DEVICE_INTERFACE:
		m.mu.Lock()
		mutated := m.applyDeviceChangesLocked(path, changed)
		m.mu.Unlock()
		if mutated {
			m.broadcastDevices()
		}

	case BLUEZ_MEDIA_PLAYER_INTERFACE:
		m.mu.Lock()
		mutated := m.applyPlayerChangesLocked(path, changed)
		m.mu.Unlock()
		if mutated {
			m.broadcastMediaState()
		}
	}
}

// Scanning and adapter snapshot: thin delegation to the controller so the
// facade only ever talks to the manager.

func (m *Manager) StartScanning() error {
	return m.adapter.startScanning()
}

func (m *Manager) StopScanning() error {
	return m.adapter.stopScanning()
}

func (m *Manager) GetAdapterInfo() utils.AdapterInfo {
	return m.adapter.snapshot()
}

// Event boundary. All broadcasts are fire-and-forget; a nil hub disables them.

func (m *Manager) broadcastDevices() {
	if m.hub == nil {
		return
	}
	m.hub.Broadcast(utils.WebSocketEvent{
		Type:    "bluetooth/devices_changed",
		Payload: utils.DeviceListChangedPayload{Devices: m.GetDevices()},
	})
}

func (m *Manager) broadcastMediaState() {
	if m.hub == nil {
		return
	}
	m.hub.Broadcast(utils.WebSocketEvent{
		Type:    "media/state_update",
		Payload: utils.MediaStatePayload{State: m.GetMediaState()},
	})
}

func (m *Manager) broadcastAdapter() {
	if m.hub == nil {
		return
	}
	m.hub.Broadcast(utils.WebSocketEvent{
		Type:    "bluetooth/adapter_changed",
		Payload: utils.AdapterChangedPayload{Adapter: m.GetAdapterInfo()},
	})
}
