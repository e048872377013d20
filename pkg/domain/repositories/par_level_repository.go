package repositories

import (
	"context"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// ParLevelRepository provides replenishment settings per location
type ParLevelRepository interface {
	ListParLevels(ctx context.Context, locationID entities.LocationID) ([]*entities.ParLevel, error)
	ListParLocations(ctx context.Context) ([]entities.LocationID, error)
}
