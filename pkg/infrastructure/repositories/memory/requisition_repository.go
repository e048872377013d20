package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// RequisitionRepository provides in-memory requisition storage with
// optimistic versioning
type RequisitionRepository struct {
	mutex        sync.RWMutex
	requisitions map[string]*entities.Requisition
}

// NewRequisitionRepository creates a new in-memory requisition repository
func NewRequisitionRepository() *RequisitionRepository {
	return &RequisitionRepository{
		requisitions: make(map[string]*entities.Requisition),
	}
}

// Verify interface compliance
var _ repositories.RequisitionRepository = (*RequisitionRepository)(nil)

// Get returns a copy of the stored requisition
func (r *RequisitionRepository) Get(ctx context.Context, id string) (*entities.Requisition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stored, exists := r.requisitions[id]
	if !exists {
		return nil, fmt.Errorf("requisition %s: %w", id, entities.ErrNotFound)
	}
	return stored.Clone(), nil
}

// Save stores a copy of requisition if its version matches the stored one
func (r *RequisitionRepository) Save(ctx context.Context, requisition *entities.Requisition) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current := 0
	if stored, exists := r.requisitions[requisition.ID]; exists {
		current = stored.Version
	}
	if requisition.Version != current {
		return fmt.Errorf("requisition %s saved at version %d, have %d: %w",
			requisition.ID, current, requisition.Version, entities.ErrConcurrentModification)
	}

	requisition.Version++
	r.requisitions[requisition.ID] = requisition.Clone()
	return nil
}

// List returns copies of all requisitions ordered by reference
func (r *RequisitionRepository) List(ctx context.Context) ([]*entities.Requisition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	requisitions := make([]*entities.Requisition, 0, len(r.requisitions))
	for _, stored := range r.requisitions {
		requisitions = append(requisitions, stored.Clone())
	}
	sort.Slice(requisitions, func(i, j int) bool {
		return requisitions[i].Reference < requisitions[j].Reference
	})
	return requisitions, nil
}
