package bluetooth

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AJFrio/NodeNav-sub000/utils"
	"github.com/godbus/dbus/v5"
)

// adapterController owns the local radio: power/visibility settings and the
// bounded discovery window.
type adapterController struct {
	bus        Bus
	alias      string
	scanWindow time.Duration

	mu          sync.Mutex
	path        dbus.ObjectPath
	initialized bool
	info        utils.AdapterInfo
	scanTimer   *time.Timer
}

func newAdapterController(bus Bus, alias string, scanWindow time.Duration) *adapterController {
	return &adapterController{
		bus:        bus,
		alias:      alias,
		scanWindow: scanWindow,
	}
}

// initialize finds the first adapter in the managed-object tree and applies
// the startup settings. A missing adapter is fatal; an individual setting
// being rejected is not (restricted adapters reject some writes).
func (a *adapterController) initialize(tree ObjectTree) error {
	paths := make([]string, 0, len(tree))
	for p, ifaces := range tree {
		if _, ok := ifaces[BLUEZ_ADAPTER_INTERFACE]; ok {
			paths = append(paths, string(p))
		}
	}
	if len(paths) == 0 {
		return &AdapterNotFoundError{}
	}
	sort.Strings(paths)
	path := dbus.ObjectPath(paths[0])

	settings := []struct {
		prop  string
		value interface{}
	}{
		{"Powered", true},
		{"Discoverable", true},
		{"Pairable", true},
		{"Alias", a.alias},
	}
	for _, s := range settings {
		if err := a.bus.Set(path, BLUEZ_ADAPTER_INTERFACE, s.prop, s.value); err != nil {
			log.Printf("BT: could not set adapter %s=%v: %v", s.prop, s.value, err)
		}
	}

	props, err := a.bus.GetAll(path, BLUEZ_ADAPTER_INTERFACE)
	if err != nil {
		// Fall back to the enumeration snapshot taken before the writes.
		log.Printf("BT: could not re-read adapter properties: %v", err)
		props = tree[path][BLUEZ_ADAPTER_INTERFACE]
	}

	a.mu.Lock()
	a.path = path
	a.initialized = true
	a.info = utils.AdapterInfo{
		Initialized:  true,
		Address:      variantString(props, "Address"),
		Alias:        variantString(props, "Alias"),
		Powered:      variantBool(props, "Powered"),
		Discoverable: variantBool(props, "Discoverable"),
		Pairable:     variantBool(props, "Pairable"),
		Discovering:  variantBool(props, "Discovering"),
	}
	a.mu.Unlock()

	log.Printf("BT: adapter %s ready at %s", a.info.Address, path)
	return nil
}

func (a *adapterController) startScanning() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return &AdapterNotFoundError{}
	}
	if a.info.Discovering || a.scanTimer != nil {
		return &AlreadyScanningError{}
	}
	if err := a.bus.Call(a.path, BLUEZ_ADAPTER_INTERFACE+".StartDiscovery"); err != nil {
		return &TransportError{Op: "StartDiscovery", Err: err}
	}
	a.info.Discovering = true
	a.scanTimer = time.AfterFunc(a.scanWindow, func() {
		if err := a.stopScanning(); err != nil {
			log.Printf("BT: scan auto-stop failed: %v", err)
		}
	})
	log.Printf("BT: discovery started, auto-stop in %s", a.scanWindow)
	return nil
}

func (a *adapterController) stopScanning() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return &AdapterNotFoundError{}
	}
	if a.scanTimer != nil {
		a.scanTimer.Stop()
		a.scanTimer = nil
	}
	err := a.bus.Call(a.path, BLUEZ_ADAPTER_INTERFACE+".StopDiscovery")
	if err != nil && !isNoDiscoveryError(err) {
		return &TransportError{Op: "StopDiscovery", Err: err}
	}
	a.info.Discovering = false
	return nil
}

// isNoDiscoveryError reports whether err is the daemon telling us no discovery
// is in progress, which stopScanning treats as a no-op.
func isNoDiscoveryError(err error) bool {
	if dbusErr, ok := err.(dbus.Error); ok {
		if dbusErr.Name == "org.bluez.Error.NotReady" {
			return true
		}
		for _, body := range dbusErr.Body {
			if s, ok := body.(string); ok && strings.Contains(s, "No discovery started") {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), "No discovery started")
}

// applyChanges folds a PropertiesChanged payload into the cached snapshot.
func (a *adapterController) applyChanges(changed map[string]dbus.Variant) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if v, ok := changed["Powered"]; ok {
		a.info.Powered, _ = v.Value().(bool)
	}
	if v, ok := changed["Discoverable"]; ok {
		a.info.Discoverable, _ = v.Value().(bool)
	}
	if v, ok := changed["Pairable"]; ok {
		a.info.Pairable, _ = v.Value().(bool)
	}
	if v, ok := changed["Discovering"]; ok {
		a.info.Discovering, _ = v.Value().(bool)
	}
	if v, ok := changed["Alias"]; ok {
		a.info.Alias, _ = v.Value().(string)
	}
}

// snapshot returns the cached adapter record. Before initialize succeeds it
// returns a sentinel "uninitialized" record instead of failing, so the HTTP
// facade can report adapter absence gracefully.
func (a *adapterController) snapshot() utils.AdapterInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return utils.AdapterInfo{Initialized: false}
	}
	return a.info
}

func (a *adapterController) objectPath() dbus.ObjectPath {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path
}
