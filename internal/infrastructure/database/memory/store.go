// Package memory backs the registry and telemetry repositories with
// in-process maps. Both views share one mutex, so lifecycle transitions
// and their telemetry cascades are atomic exactly like the postgres
// transactions they stand in for. Used for the no-database mode and as
// the test double.
package memory

import (
	"sync"

	"lxcloud/internal/domain/registry"
	"lxcloud/internal/domain/telemetry"

	"github.com/google/uuid"
)

type Store struct {
	mu          sync.Mutex
	controllers map[string]*registry.Controller  // keyed by serial number
	screens     map[string]*registry.Screen      // keyed by serial number
	telemetry   map[uuid.UUID][]*telemetry.Record // keyed by screen ID
}

func NewStore() *Store {
	return &Store{
		controllers: make(map[string]*registry.Controller),
		screens:     make(map[string]*registry.Screen),
		telemetry:   make(map[uuid.UUID][]*telemetry.Record),
	}
}

func (s *Store) Registry() registry.Repository {
	return &registryView{store: s}
}

func (s *Store) Telemetry() telemetry.Repository {
	return &telemetryView{store: s}
}

func copyController(c *registry.Controller) *registry.Controller {
	out := *c
	return &out
}

func copyScreen(sc *registry.Screen) *registry.Screen {
	out := *sc
	return &out
}

func copyRecord(r *telemetry.Record) *telemetry.Record {
	out := *r
	return &out
}
