package bluetooth

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

// fakeBus is an in-memory Bus for tests. State transitions the real daemon
// would perform (flipping Connected after Connect, publishing a player object)
// are scripted per test through the onCall hook.
type fakeBus struct {
	mu      sync.Mutex
	objects ObjectTree
	signals chan *dbus.Signal

	calls   []string // "<path> <method>"
	sets    []string // "<path> <prop>"
	exports []string

	onCall    func(path dbus.ObjectPath, method string) error
	setErr    map[string]error // keyed by property name
	getAllErr map[string]error // keyed by object path
	exportErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		objects:   make(ObjectTree),
		signals:   make(chan *dbus.Signal, 16),
		setErr:    make(map[string]error),
		getAllErr: make(map[string]error),
	}
}

func (b *fakeBus) addObject(path dbus.ObjectPath, iface string, props map[string]dbus.Variant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; !ok {
		b.objects[path] = make(map[string]map[string]dbus.Variant)
	}
	if props == nil {
		props = make(map[string]dbus.Variant)
	}
	b.objects[path][iface] = props
}

func (b *fakeBus) removeObject(path dbus.ObjectPath) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
}

func (b *fakeBus) setObjectProp(path dbus.ObjectPath, iface, prop string, value interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; !ok {
		b.objects[path] = make(map[string]map[string]dbus.Variant)
	}
	if _, ok := b.objects[path][iface]; !ok {
		b.objects[path][iface] = make(map[string]dbus.Variant)
	}
	b.objects[path][iface][prop] = dbus.MakeVariant(value)
}

func (b *fakeBus) callCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == method || len(c) > len(method) && c[len(c)-len(method):] == method {
			n++
		}
	}
	return n
}

func (b *fakeBus) ManagedObjects() (ObjectTree, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree := make(ObjectTree, len(b.objects))
	for path, ifaces := range b.objects {
		tree[path] = make(map[string]map[string]dbus.Variant, len(ifaces))
		for iface, props := range ifaces {
			copied := make(map[string]dbus.Variant, len(props))
			for k, v := range props {
				copied[k] = v
			}
			tree[path][iface] = copied
		}
	}
	return tree, nil
}

func (b *fakeBus) GetAll(path dbus.ObjectPath, iface string) (map[string]dbus.Variant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.getAllErr[string(path)]; ok {
		return nil, err
	}
	ifaces, ok := b.objects[path]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", path)
	}
	props, ok := ifaces[iface]
	if !ok {
		return nil, fmt.Errorf("no such interface on %s: %s", path, iface)
	}
	copied := make(map[string]dbus.Variant, len(props))
	for k, v := range props {
		copied[k] = v
	}
	return copied, nil
}

func (b *fakeBus) Get(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	props, err := b.GetAll(path, iface)
	if err != nil {
		return dbus.Variant{}, err
	}
	v, ok := props[prop]
	if !ok {
		return dbus.Variant{}, fmt.Errorf("no such property: %s", prop)
	}
	return v, nil
}

func (b *fakeBus) Set(path dbus.ObjectPath, iface, prop string, value interface{}) error {
	b.mu.Lock()
	b.sets = append(b.sets, fmt.Sprintf("%s %s", path, prop))
	err := b.setErr[prop]
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.setObjectProp(path, iface, prop, value)
	return nil
}

func (b *fakeBus) Call(path dbus.ObjectPath, method string, args ...interface{}) error {
	b.mu.Lock()
	b.calls = append(b.calls, fmt.Sprintf("%s %s", path, method))
	hook := b.onCall
	b.mu.Unlock()

	if hook != nil {
		return hook(path, method)
	}
	return nil
}

func (b *fakeBus) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exportErr != nil {
		return b.exportErr
	}
	b.exports = append(b.exports, fmt.Sprintf("%s %s", path, iface))
	return nil
}

func (b *fakeBus) Signals() <-chan *dbus.Signal {
	return b.signals
}

func (b *fakeBus) Close() error {
	return nil
}

// signal constructors

func sigInterfacesAdded(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Name: SIGNAL_INTERFACES_ADDED,
		Path: path,
		Body: []interface{}{path, ifaces},
	}
}

func sigInterfacesRemoved(path dbus.ObjectPath, ifaces []string) *dbus.Signal {
	return &dbus.Signal{
		Name: SIGNAL_INTERFACES_REMOVED,
		Path: path,
		Body: []interface{}{path, ifaces},
	}
}

func sigPropertiesChanged(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Name: SIGNAL_PROPERTIES_CHANGED,
		Path: path,
		Body: []interface{}{iface, changed, []string{}},
	}
}

// property-map helpers

func adapterProps(address string) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Address":      dbus.MakeVariant(address),
		"Alias":        dbus.MakeVariant("NodeNav"),
		"Powered":      dbus.MakeVariant(true),
		"Discoverable": dbus.MakeVariant(true),
		"Pairable":     dbus.MakeVariant(true),
		"Discovering":  dbus.MakeVariant(false),
	}
}

func deviceProps(address, name string, paired, connected bool) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Address":   dbus.MakeVariant(address),
		"Name":      dbus.MakeVariant(name),
		"Paired":    dbus.MakeVariant(paired),
		"Connected": dbus.MakeVariant(connected),
		"Trusted":   dbus.MakeVariant(false),
	}
}

func playerProps(status, title, artist, album string, durationMs, positionMs uint32) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Status":   dbus.MakeVariant(status),
		"Position": dbus.MakeVariant(positionMs),
		"Track": dbus.MakeVariant(map[string]dbus.Variant{
			"Title":    dbus.MakeVariant(title),
			"Artist":   dbus.MakeVariant(artist),
			"Album":    dbus.MakeVariant(album),
			"Duration": dbus.MakeVariant(durationMs),
		}),
	}
}
