// Package lights tracks addressable peripheral lighting units that register
// themselves over the dashboard WebSocket.
package lights

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hello is the registration message a light unit sends after connecting.
type Hello struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Pixels int    `json:"pixels"`
}

// Unit is a registered light unit. The ID is assigned by the daemon and is
// the handle for all later addressing.
type Unit struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	Pixels       int    `json:"pixels"`
	RegisteredAt int64  `json:"registeredAt"`
}

type Registry struct {
	mu    sync.RWMutex
	units map[string]Unit
}

func NewRegistry() *Registry {
	return &Registry{units: make(map[string]Unit)}
}

// Register admits a unit and assigns it an ID. Units that reconnect register
// again and get a fresh ID; there is no persistence across daemon restarts.
func (r *Registry) Register(hello Hello) Unit {
	unit := Unit{
		ID:           uuid.NewString(),
		Name:         hello.Name,
		Kind:         hello.Kind,
		Pixels:       hello.Pixels,
		RegisteredAt: time.Now().Unix(),
	}
	if unit.Name == "" {
		unit.Name = "light-" + unit.ID[:8]
	}

	r.mu.Lock()
	r.units[unit.ID] = unit
	r.mu.Unlock()

	log.Printf("LIGHTS: registered %s (%s, %d pixels)", unit.Name, unit.Kind, unit.Pixels)
	return unit
}

// Remove drops a unit, typically when its socket closes.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[id]; !ok {
		return false
	}
	delete(r.units, id)
	log.Printf("LIGHTS: removed %s", id)
	return true
}

func (r *Registry) Get(id string) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	unit, ok := r.units[id]
	return unit, ok
}

// List returns all registered units sorted by registration time, then ID.
func (r *Registry) List() []Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	units := make([]Unit, 0, len(r.units))
	for _, u := range r.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].RegisteredAt != units[j].RegisteredAt {
			return units[i].RegisteredAt < units[j].RegisteredAt
		}
		return units[i].ID < units[j].ID
	})
	return units
}
