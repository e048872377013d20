package entities

import "fmt"

// LocationID identifies an inventory location
type LocationID string

// LocationCategory drives both fulfillment classification and approval bypass
type LocationCategory int

const (
	TrackedInventory LocationCategory = iota
	DirectExpense
	Consignment
)

// String method for LocationCategory enum
func (c LocationCategory) String() string {
	switch c {
	case TrackedInventory:
		return "TrackedInventory"
	case DirectExpense:
		return "DirectExpense"
	case Consignment:
		return "Consignment"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is one of the known categories
func (c LocationCategory) Valid() bool {
	switch c {
	case TrackedInventory, DirectExpense, Consignment:
		return true
	default:
		return false
	}
}

// ParseLocationCategory converts a textual category tag into a LocationCategory
func ParseLocationCategory(s string) (LocationCategory, error) {
	switch s {
	case "TrackedInventory", "tracked-inventory", "inventory", "tracked":
		return TrackedInventory, nil
	case "DirectExpense", "direct-expense", "direct":
		return DirectExpense, nil
	case "Consignment", "consignment":
		return Consignment, nil
	default:
		return TrackedInventory, fmt.Errorf("invalid location category: %s", s)
	}
}

// Location is a read-only reference record owned by the location directory
type Location struct {
	ID       LocationID
	Code     string
	Name     string
	Category LocationCategory
}

// NewLocation creates a validated Location
func NewLocation(id LocationID, code, name string, category LocationCategory) (*Location, error) {
	if id == "" {
		return nil, fmt.Errorf("location id cannot be empty")
	}
	if code == "" {
		return nil, fmt.Errorf("location code cannot be empty")
	}
	if !category.Valid() {
		return nil, fmt.Errorf("invalid location category %d for %s", category, id)
	}

	return &Location{
		ID:       id,
		Code:     code,
		Name:     name,
		Category: category,
	}, nil
}
