package repositories

import (
	"context"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// RequisitionRepository stores requisitions.
//
// Save must reject a requisition whose Version does not match the stored one
// with an error wrapping entities.ErrConcurrentModification, and bump Version
// on success. Get returns a copy the caller may mutate freely
type RequisitionRepository interface {
	Get(ctx context.Context, id string) (*entities.Requisition, error)
	Save(ctx context.Context, requisition *entities.Requisition) error
	List(ctx context.Context) ([]*entities.Requisition, error)
}
