package memory

import (
	"context"
	"sort"

	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// ParLevelRepository provides in-memory PAR settings
type ParLevelRepository struct {
	byLocation map[entities.LocationID][]entities.ParLevel
}

// NewParLevelRepository creates a new in-memory PAR level repository
func NewParLevelRepository() *ParLevelRepository {
	return &ParLevelRepository{
		byLocation: make(map[entities.LocationID][]entities.ParLevel),
	}
}

// Verify interface compliance
var _ repositories.ParLevelRepository = (*ParLevelRepository)(nil)

// LoadParLevels loads PAR settings into the repository
func (r *ParLevelRepository) LoadParLevels(levels []*entities.ParLevel) error {
	for _, level := range levels {
		r.AddParLevel(*level)
	}
	return nil
}

// AddParLevel adds PAR settings for a product at a location
func (r *ParLevelRepository) AddParLevel(level entities.ParLevel) {
	r.byLocation[level.LocationID] = append(r.byLocation[level.LocationID], level)
}

// ListParLevels returns the PAR settings of a location
func (r *ParLevelRepository) ListParLevels(ctx context.Context, locationID entities.LocationID) ([]*entities.ParLevel, error) {
	stored := r.byLocation[locationID]
	levels := make([]*entities.ParLevel, 0, len(stored))
	for i := range stored {
		level := stored[i]
		levels = append(levels, &level)
	}
	return levels, nil
}

// ListParLocations returns every location with PAR settings, sorted
func (r *ParLevelRepository) ListParLocations(ctx context.Context) ([]entities.LocationID, error) {
	locations := make([]entities.LocationID, 0, len(r.byLocation))
	for locationID := range r.byLocation {
		locations = append(locations, locationID)
	}
	sort.Slice(locations, func(i, j int) bool {
		return locations[i] < locations[j]
	})
	return locations, nil
}
