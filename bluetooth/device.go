package bluetooth

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/AJFrio/NodeNav-sub000/utils"
	"github.com/godbus/dbus/v5"
)

// device pairs the public record with the daemon-side object path. The path
// is internal-only and stripped from everything the API returns.
type device struct {
	path dbus.ObjectPath
	info utils.BluetoothDeviceInfo

	// raw signals kept for re-classification on later property changes
	icon  string
	class uint32
}

// shortLabel derives a display name from the address when the daemon reports
// none, e.g. "device-EE:FF".
func shortLabel(address string) string {
	if len(address) >= 5 {
		return "device-" + address[len(address)-5:]
	}
	return "device-" + address
}

// upsertDeviceLocked reconciles a full property set (startup enumeration or an
// InterfacesAdded notification) into the registry. Caller holds m.mu.
// Returns true if the record changed.
func (m *Manager) upsertDeviceLocked(path dbus.ObjectPath, props map[string]dbus.Variant) bool {
	address := variantString(props, "Address")
	if address == "" {
		address = deviceAddressFromPath(path)
	}
	if address == "" {
		log.Printf("BT: ignoring device object %s with no address", path)
		return false
	}

	dev, exists := m.devices[address]
	if !exists {
		dev = &device{path: path}
		m.devices[address] = dev
	}
	dev.path = path

	name := variantString(props, "Name")
	if name == "" {
		name = variantString(props, "Alias")
	}
	if name == "" {
		name = dev.info.Name
	}
	if name == "" {
		name = shortLabel(address)
	}

	if icon := variantString(props, "Icon"); icon != "" {
		dev.icon = icon
	}
	if class, ok := variantUint32(props, "Class"); ok {
		dev.class = class
	}

	prev := dev.info
	dev.info = utils.BluetoothDeviceInfo{
		Address:   address,
		Name:      name,
		Type:      classifyDevice(dev.icon, dev.class, name),
		Paired:    variantBool(props, "Paired"),
		Connected: variantBool(props, "Connected"),
		Trusted:   variantBool(props, "Trusted"),
		LastSeen:  time.Now().Unix(),
	}
	return !exists || prev != dev.info
}

// applyDeviceChangesLocked folds a PropertiesChanged payload into an existing
// record. Unknown paths are ignored: the daemon may emit changes for objects
// we have not enumerated yet, and the InterfacesAdded signal will follow.
// Caller holds m.mu. Returns true if a record changed.
func (m *Manager) applyDeviceChangesLocked(path dbus.ObjectPath, changed map[string]dbus.Variant) bool {
	dev := m.deviceByPathLocked(path)
	if dev == nil {
		return false
	}

	mutated := false
	if v, ok := changed["Name"]; ok {
		if s, ok := v.Value().(string); ok && s != "" {
			dev.info.Name = s
			mutated = true
		}
	}
	if v, ok := changed["Alias"]; ok {
		if s, ok := v.Value().(string); ok && s != "" && dev.info.Name == shortLabel(dev.info.Address) {
			dev.info.Name = s
			mutated = true
		}
	}
	if v, ok := changed["Paired"]; ok {
		dev.info.Paired, _ = v.Value().(bool)
		mutated = true
	}
	if v, ok := changed["Connected"]; ok {
		dev.info.Connected, _ = v.Value().(bool)
		mutated = true
	}
	if v, ok := changed["Trusted"]; ok {
		dev.info.Trusted, _ = v.Value().(bool)
		mutated = true
	}
	if v, ok := changed["Icon"]; ok {
		dev.icon, _ = v.Value().(string)
		mutated = true
	}
	if v, ok := changed["Class"]; ok {
		if c, ok := v.Value().(uint32); ok {
			dev.class = c
			mutated = true
		}
	}
	if mutated {
		dev.info.Type = classifyDevice(dev.icon, dev.class, dev.info.Name)
		dev.info.LastSeen = time.Now().Unix()
	}
	return mutated
}

// removeDeviceLocked drops the record whose bus handle matches, along with its
// media player. The active pointer may reference the address even when no
// player object ever appeared, so it is cleared on its own, not only through
// player removal. Caller holds m.mu. Returns true if anything was removed.
func (m *Manager) removeDeviceLocked(path dbus.ObjectPath) bool {
	dev := m.deviceByPathLocked(path)
	if dev == nil {
		return false
	}
	address := dev.info.Address
	delete(m.devices, address)
	if _, ok := m.players[address]; ok {
		delete(m.players, address)
		log.Printf("BT: media player for %s gone", address)
	}
	if m.active == address {
		m.active = ""
		m.recomputeMediaStateLocked()
	}
	log.Printf("BT: device %s removed", address)
	return true
}

func (m *Manager) deviceByPathLocked(path dbus.ObjectPath) *device {
	for _, dev := range m.devices {
		if dev.path == path {
			return dev
		}
	}
	return nil
}

// lookupDevice returns a copy of the record for address, or DeviceNotFoundError.
func (m *Manager) lookupDevice(address string) (device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dev, ok := m.devices[address]
	if !ok {
		return device{}, &DeviceNotFoundError{Address: address}
	}
	return *dev, nil
}

// refreshDevice re-reads a device's properties from the daemon and reconciles
// them. Used after any awaited daemon call: the registry may have mutated
// while the call was in flight, so the pre-call record cannot be trusted.
func (m *Manager) refreshDevice(address string) {
	m.mu.RLock()
	dev, ok := m.devices[address]
	var path dbus.ObjectPath
	if ok {
		path = dev.path
	}
	m.mu.RUnlock()
	if !ok {
		return
	}

	props, err := m.bus.GetAll(path, BLUEZ_DEVICE_INTERFACE)
	if err != nil {
		log.Printf("BT: could not refresh %s: %v", address, err)
		return
	}

	m.mu.Lock()
	changed := m.upsertDeviceLocked(path, props)
	m.mu.Unlock()
	if changed {
		m.broadcastDevices()
	}
}

// PairDevice bonds with a known device and then explicitly marks it trusted.
// Trust is not implied by pairing; skipping it would force re-confirmation on
// every reconnect.
func (m *Manager) PairDevice(address string) error {
	dev, err := m.lookupDevice(address)
	if err != nil {
		return err
	}
	if dev.info.Paired {
		return nil
	}

	if err := m.bus.Call(dev.path, BLUEZ_DEVICE_INTERFACE+".Pair"); err != nil {
		return &PairingFailedError{Address: address, Err: err}
	}
	if err := m.bus.Set(dev.path, BLUEZ_DEVICE_INTERFACE, "Trusted", true); err != nil {
		log.Printf("BT: could not trust %s after pairing: %v", address, err)
	}

	m.refreshDevice(address)
	log.Printf("BT: paired with %s", address)
	return nil
}

// ConnectDevice connects a known device and kicks off media-player discovery
// for it. If no player is active yet, the first player found for this device
// becomes active.
func (m *Manager) ConnectDevice(address string) error {
	dev, err := m.lookupDevice(address)
	if err != nil {
		return err
	}
	if dev.info.Connected {
		return nil
	}

	if err := m.bus.Call(dev.path, BLUEZ_DEVICE_INTERFACE+".Connect"); err != nil {
		return &ConnectionFailedError{Address: address, Op: "connect", Err: err}
	}

	m.refreshDevice(address)
	m.discoverPlayersFor(address)
	log.Printf("BT: connected to %s", address)
	return nil
}

func (m *Manager) DisconnectDevice(address string) error {
	dev, err := m.lookupDevice(address)
	if err != nil {
		return err
	}

	if err := m.bus.Call(dev.path, BLUEZ_DEVICE_INTERFACE+".Disconnect"); err != nil {
		return &ConnectionFailedError{Address: address, Op: "disconnect", Err: err}
	}

	m.refreshDevice(address)
	log.Printf("BT: disconnected from %s", address)
	return nil
}

// UnpairDevice removes the daemon-side pairing record. The disconnect first is
// best-effort; once the daemon-side removal succeeds the local record goes
// away regardless.
func (m *Manager) UnpairDevice(address string) error {
	dev, err := m.lookupDevice(address)
	if err != nil {
		return err
	}

	if err := m.bus.Call(dev.path, BLUEZ_DEVICE_INTERFACE+".Disconnect"); err != nil {
		log.Printf("BT: pre-unpair disconnect of %s failed: %v", address, err)
	}

	adapterPath := m.adapter.objectPath()
	if err := m.bus.Call(adapterPath, BLUEZ_ADAPTER_INTERFACE+".RemoveDevice", dev.path); err != nil {
		return &TransportError{Op: fmt.Sprintf("RemoveDevice %s", address), Err: err}
	}

	// The daemon also emits InterfacesRemoved, but drop the record now so
	// callers observe the removal synchronously.
	m.mu.Lock()
	removed := m.removeDeviceLocked(dev.path)
	m.mu.Unlock()
	if removed {
		m.broadcastDevices()
		m.broadcastMediaState()
	}
	return nil
}

// GetDevices returns the registry contents with bus handles stripped, sorted
// by address. Pure read, safe to poll.
func (m *Manager) GetDevices() []utils.BluetoothDeviceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]utils.BluetoothDeviceInfo, 0, len(m.devices))
	for _, dev := range m.devices {
		devices = append(devices, dev.info)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Address < devices[j].Address
	})
	return devices
}
