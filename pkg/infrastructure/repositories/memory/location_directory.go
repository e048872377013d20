package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// LocationDirectory provides in-memory location storage
type LocationDirectory struct {
	locations    []entities.Location
	locationsMap map[entities.LocationID]int
}

// NewLocationDirectory creates a new in-memory location directory
func NewLocationDirectory(expectedLocations int) *LocationDirectory {
	return &LocationDirectory{
		locations:    make([]entities.Location, 0, expectedLocations),
		locationsMap: make(map[entities.LocationID]int, expectedLocations),
	}
}

// Verify interface compliance
var _ repositories.LocationDirectory = (*LocationDirectory)(nil)

// LoadLocations loads locations into the directory
func (d *LocationDirectory) LoadLocations(locations []*entities.Location) error {
	for _, location := range locations {
		d.AddLocation(*location)
	}
	return nil
}

// AddLocation adds or replaces a location
func (d *LocationDirectory) AddLocation(location entities.Location) {
	if index, exists := d.locationsMap[location.ID]; exists {
		d.locations[index] = location
		return
	}
	d.locationsMap[location.ID] = len(d.locations)
	d.locations = append(d.locations, location)
}

// GetLocation returns a location by id
func (d *LocationDirectory) GetLocation(ctx context.Context, id entities.LocationID) (*entities.Location, error) {
	index, exists := d.locationsMap[id]
	if !exists {
		return nil, fmt.Errorf("location %s: %w", id, entities.ErrNotFound)
	}
	location := d.locations[index]
	return &location, nil
}

// ListLocations returns all locations ordered by code
func (d *LocationDirectory) ListLocations(ctx context.Context) ([]*entities.Location, error) {
	locations := make([]*entities.Location, 0, len(d.locations))
	for i := range d.locations {
		location := d.locations[i]
		locations = append(locations, &location)
	}
	sort.Slice(locations, func(i, j int) bool {
		return locations[i].Code < locations[j].Code
	})
	return locations, nil
}
