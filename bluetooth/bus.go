package bluetooth

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// ObjectTree mirrors the shape returned by ObjectManager.GetManagedObjects:
// object path -> interface name -> property name -> value.
type ObjectTree map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Bus is the boundary to the platform Bluetooth daemon. The production
// implementation talks to BlueZ over the system D-Bus; tests substitute an
// in-memory fake. The backend is selected once at process start.
type Bus interface {
	ManagedObjects() (ObjectTree, error)
	GetAll(path dbus.ObjectPath, iface string) (map[string]dbus.Variant, error)
	Get(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error)
	Set(path dbus.ObjectPath, iface, prop string, value interface{}) error
	Call(path dbus.ObjectPath, method string, args ...interface{}) error
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	Signals() <-chan *dbus.Signal
	Close() error
}

// SystemBus implements Bus against BlueZ on the system D-Bus.
type SystemBus struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
}

func NewSystemBus() (*SystemBus, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	// Quick check that BlueZ is actually on the bus.
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == BLUEZ_BUS_NAME {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("%s not on system bus, is bluetooth.service running?", BLUEZ_BUS_NAME)
	}

	matches := [][]dbus.MatchOption{
		{dbus.WithMatchInterface(DBUS_OBJECT_MANAGER_INTERFACE), dbus.WithMatchMember("InterfacesAdded")},
		{dbus.WithMatchInterface(DBUS_OBJECT_MANAGER_INTERFACE), dbus.WithMatchMember("InterfacesRemoved")},
		{dbus.WithMatchInterface(DBUS_PROPERTIES_INTERFACE), dbus.WithMatchMember("PropertiesChanged"), dbus.WithMatchPathNamespace(BLUEZ_MANAGER_PATH)},
	}
	for _, m := range matches {
		if err := conn.AddMatchSignal(m...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("add match signal: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, 64)
	conn.Signal(signals)

	return &SystemBus{conn: conn, signals: signals}, nil
}

func (b *SystemBus) ManagedObjects() (ObjectTree, error) {
	var objects ObjectTree
	obj := b.conn.Object(BLUEZ_BUS_NAME, "/")
	if err := obj.Call(DBUS_OBJECT_MANAGER_INTERFACE+".GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func (b *SystemBus) GetAll(path dbus.ObjectPath, iface string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	obj := b.conn.Object(BLUEZ_BUS_NAME, path)
	if err := obj.Call(DBUS_PROPERTIES_INTERFACE+".GetAll", 0, iface).Store(&props); err != nil {
		return nil, err
	}
	return props, nil
}

func (b *SystemBus) Get(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	var v dbus.Variant
	obj := b.conn.Object(BLUEZ_BUS_NAME, path)
	err := obj.Call(DBUS_PROPERTIES_INTERFACE+".Get", 0, iface, prop).Store(&v)
	return v, err
}

func (b *SystemBus) Set(path dbus.ObjectPath, iface, prop string, value interface{}) error {
	obj := b.conn.Object(BLUEZ_BUS_NAME, path)
	return obj.Call(DBUS_PROPERTIES_INTERFACE+".Set", 0, iface, prop, dbus.MakeVariant(value)).Err
}

func (b *SystemBus) Call(path dbus.ObjectPath, method string, args ...interface{}) error {
	obj := b.conn.Object(BLUEZ_BUS_NAME, path)
	return obj.Call(method, 0, args...).Err
}

// Export publishes v on the bus together with introspection data so BlueZ can
// discover its methods.
func (b *SystemBus) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	if err := b.conn.Export(v, path, iface); err != nil {
		return err
	}
	node := &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    iface,
				Methods: introspect.Methods(v),
			},
		},
	}
	return b.conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable")
}

func (b *SystemBus) Signals() <-chan *dbus.Signal {
	return b.signals
}

func (b *SystemBus) Close() error {
	return b.conn.Close()
}

// deviceAddressFromPath extracts a hardware address from a BlueZ device object
// path like /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func deviceAddressFromPath(path dbus.ObjectPath) string {
	s := string(path)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(s[idx+5:], "_", ":")
}

// variant helpers

func variantString(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func variantBool(props map[string]dbus.Variant, key string) bool {
	if v, ok := props[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

func variantUint32(props map[string]dbus.Variant, key string) (uint32, bool) {
	if v, ok := props[key]; ok {
		if u, ok := v.Value().(uint32); ok {
			return u, true
		}
	}
	return 0, false
}
