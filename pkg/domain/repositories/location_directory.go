package repositories

import (
	"context"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// LocationDirectory provides read access to inventory locations.
// Implementations return an error wrapping entities.ErrNotFound for unknown ids
type LocationDirectory interface {
	GetLocation(ctx context.Context, id entities.LocationID) (*entities.Location, error)
	ListLocations(ctx context.Context) ([]*entities.Location, error)
}
