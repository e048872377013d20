package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestStockLevel_Available(t *testing.T) {
	tests := []struct {
		name          string
		onHand        int64
		reserved      int64
		expected      int64
		overcommitted bool
	}{
		{"nothing reserved", 60, 0, 60, false},
		{"partly reserved", 60, 15, 45, false},
		{"fully reserved", 60, 60, 0, false},
		{"reservations exceed on hand", 10, 25, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := NewStockLevel("FLOUR", "MAIN", decimal.NewFromInt(tt.onHand), decimal.NewFromInt(tt.reserved))
			if err != nil {
				t.Fatalf("Failed to create stock level: %v", err)
			}
			if !level.Available().Equal(decimal.NewFromInt(tt.expected)) {
				t.Errorf("Available() = %s, want %d", level.Available(), tt.expected)
			}
			if level.Overcommitted() != tt.overcommitted {
				t.Errorf("Overcommitted() = %t, want %t", level.Overcommitted(), tt.overcommitted)
			}
		})
	}
}

func TestParLevel_Clamp(t *testing.T) {
	par, err := NewParLevel("FLOUR", "KITCHEN", decimal.NewFromInt(40), decimal.NewFromInt(10), decimal.NewFromInt(10), decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("Failed to create par level: %v", err)
	}

	tests := []struct {
		in, want int64
	}{
		{35, 30},
		{5, 10},
		{20, 20},
	}
	for _, tt := range tests {
		if got := par.Clamp(decimal.NewFromInt(tt.in)); !got.Equal(decimal.NewFromInt(tt.want)) {
			t.Errorf("Clamp(%d) = %s, want %d", tt.in, got, tt.want)
		}
	}

	unbounded := ParLevel{MinOrderQty: decimal.NewFromInt(10)}
	if got := unbounded.Clamp(decimal.NewFromInt(500)); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected zero max to be unbounded, got %s", got)
	}

	if _, err := NewParLevel("FLOUR", "KITCHEN", decimal.NewFromInt(40), decimal.NewFromInt(10), decimal.NewFromInt(20), decimal.NewFromInt(5)); err == nil {
		t.Error("Expected error when max order quantity is below min")
	}
}

func TestNewLocation_Validation(t *testing.T) {
	if _, err := NewLocation("MAIN", "MS01", "Main Store", TrackedInventory); err != nil {
		t.Fatalf("Expected valid location, got %v", err)
	}
	if _, err := NewLocation("", "MS01", "Main Store", TrackedInventory); err == nil {
		t.Error("Expected error for empty location id")
	}
	if _, err := NewLocation("MAIN", "MS01", "Main Store", LocationCategory(9)); err == nil {
		t.Error("Expected error for unknown category")
	}

	for _, tag := range []string{"tracked-inventory", "direct-expense", "consignment"} {
		if _, err := ParseLocationCategory(tag); err != nil {
			t.Errorf("Expected %s to parse, got %v", tag, err)
		}
	}
}
