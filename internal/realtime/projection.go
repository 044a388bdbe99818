package realtime

import (
	"sync"

	"github.com/quickshop/quickshop-backend/internal/app/model"
)

// storedDelta is the latest recorded change for one product. A delete
// is remembered as a tombstone so a stale fetch cannot resurrect the row.
type storedDelta struct {
	patch   ProductPatch
	deleted bool
}

// ProjectionStore accumulates product change events and overlays them
// onto data fetched before the events arrived. Updates are kept per
// product id with last-write-wins; inserts are kept as an ordered list
// of full records, newest first.
type ProjectionStore struct {
	mu      sync.RWMutex
	updates map[uint]storedDelta
	inserts []model.Product
}

func NewProjectionStore() *ProjectionStore {
	return &ProjectionStore{
		updates: make(map[uint]storedDelta),
	}
}

// RecordUpdate stores the patch for a product, replacing any earlier
// delta for the same id
func (s *ProjectionStore) RecordUpdate(productID uint, patch ProductPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[productID] = storedDelta{patch: patch}
}

// RecordDelete marks a product as deleted
func (s *ProjectionStore) RecordDelete(productID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[productID] = storedDelta{deleted: true}
}

// RecordInsert prepends a newly created product to the insert list.
// A second insert with the same id replaces the first in place.
func (s *ProjectionStore) RecordInsert(product model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.inserts {
		if s.inserts[i].ID == product.ID {
			s.inserts[i] = product
			return
		}
	}
	s.inserts = append([]model.Product{product}, s.inserts...)
}

// Apply dispatches one event into the store
func (s *ProjectionStore) Apply(event ProductEvent) {
	switch event.Type {
	case EventInsert:
		if event.Product != nil {
			s.RecordInsert(*event.Product)
		}
	case EventUpdate:
		if event.Patch != nil {
			s.RecordUpdate(event.ProductID, *event.Patch)
		}
	case EventDelete:
		s.RecordDelete(event.ProductID)
	}
}

// Project returns the product with any recorded delta applied. It
// returns nil when the product has been deleted since the base record
// was fetched.
func (s *ProjectionStore) Project(base model.Product) *model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delta, ok := s.updates[base.ID]
	if !ok {
		return &base
	}
	if delta.deleted {
		return nil
	}
	delta.patch.ApplyTo(&base)
	return &base
}

// OverlayList projects every product in the fetched list, drops deleted
// rows, and prepends recorded inserts that the fetch did not already
// contain. Inserts themselves are projected too, so an insert followed
// by an update shows the updated record.
func (s *ProjectionStore) OverlayList(fetched []model.Product) []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uint]bool, len(fetched))
	result := make([]model.Product, 0, len(fetched)+len(s.inserts))

	for _, ins := range s.inserts {
		if containsID(fetched, ins.ID) {
			continue
		}
		if projected := s.projectLocked(ins); projected != nil {
			result = append(result, *projected)
			seen[ins.ID] = true
		}
	}

	for _, p := range fetched {
		if seen[p.ID] {
			continue
		}
		if projected := s.projectLocked(p); projected != nil {
			result = append(result, *projected)
		}
	}

	return result
}

// Len reports how many deltas and inserts are currently held
func (s *ProjectionStore) Len() (updates, inserts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.updates), len(s.inserts)
}

// Reset discards all recorded deltas and inserts
func (s *ProjectionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = make(map[uint]storedDelta)
	s.inserts = nil
}

// projectLocked is Project without taking the lock; callers hold s.mu
func (s *ProjectionStore) projectLocked(base model.Product) *model.Product {
	delta, ok := s.updates[base.ID]
	if !ok {
		return &base
	}
	if delta.deleted {
		return nil
	}
	delta.patch.ApplyTo(&base)
	return &base
}

func containsID(products []model.Product, id uint) bool {
	for _, p := range products {
		if p.ID == id {
			return true
		}
	}
	return false
}
