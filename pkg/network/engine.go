// Package network maintains the per-owner co-occurrence graph: node and
// edge construction from resolved documents, centrality metrics, and the
// bounded projection served to clients.
package network

import (
	"sync"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/store"
)

// graphTypes are the entity types that participate in the graph. Dates
// co-occur with everything and would drown the structure, so they are
// kept out of it.
var graphTypes = map[common.EntityType]bool{
	common.EntityTypePerson:   true,
	common.EntityTypeOrg:      true,
	common.EntityTypeCourt:    true,
	common.EntityTypeLocation: true,
}

// Engine serializes graph writes per owner. Mutation for one owner holds
// that owner's write lock; reads take the read lock, and different
// owners never contend.
type Engine struct {
	store store.Storage

	mu    sync.Mutex
	locks map[common.Owner]*sync.RWMutex
}

func NewEngine(s store.Storage) *Engine {
	return &Engine{
		store: s,
		locks: make(map[common.Owner]*sync.RWMutex),
	}
}

func (e *Engine) ownerLock(owner common.Owner) *sync.RWMutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[owner]
	if !ok {
		l = &sync.RWMutex{}
		e.locks[owner] = l
	}
	return l
}
