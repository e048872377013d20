package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// Scenario file names inside a scenario directory
const (
	LocationsFile    = "locations.csv"
	ProductsFile     = "products.csv"
	StockFile        = "stock.csv"
	ParLevelsFile    = "par_levels.csv"
	RequisitionsFile = "requisitions.csv"
)

// Loader handles loading scenario data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// Scenario is the full content of a scenario directory
type Scenario struct {
	Locations    []*entities.Location
	Products     []*entities.Product
	Stock        []*entities.StockLevel
	ParLevels    []*entities.ParLevel
	Requisitions []*RequisitionRow
}

// RequisitionRow is one line of a scripted requisition. Rows sharing a key
// belong to the same requisition
type RequisitionRow struct {
	Key          string
	Source       entities.LocationID
	Destination  entities.LocationID
	Requester    string
	Department   string
	ProductID    entities.ProductID
	Quantity     decimal.Decimal
	ApproverRole string
	ApprovedQty  decimal.NullDecimal
	LineSourceID entities.LocationID
}

// LoadScenario loads every scenario file in dir. Locations, products and
// stock are required; PAR levels and requisitions are optional
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	scenario := &Scenario{}
	var err error

	if scenario.Locations, err = l.LoadLocations(filepath.Join(dir, LocationsFile)); err != nil {
		return nil, err
	}
	if scenario.Products, err = l.LoadProducts(filepath.Join(dir, ProductsFile)); err != nil {
		return nil, err
	}
	if scenario.Stock, err = l.LoadStock(filepath.Join(dir, StockFile)); err != nil {
		return nil, err
	}

	if scenario.ParLevels, err = l.LoadParLevels(filepath.Join(dir, ParLevelsFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if scenario.Requisitions, err = l.LoadRequisitions(filepath.Join(dir, RequisitionsFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return scenario, nil
}

// LoadLocations loads locations from a CSV file
func (l *Loader) LoadLocations(filename string) ([]*entities.Location, error) {
	records, err := readRecords(filename, "locations", []string{"id", "code", "name", "category"})
	if err != nil {
		return nil, err
	}

	locations := make([]*entities.Location, 0, len(records))
	for i, record := range records {
		category, err := entities.ParseLocationCategory(strings.TrimSpace(record[3]))
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: %w", i+2, err)
		}
		location, err := entities.NewLocation(entities.LocationID(record[0]), record[1], record[2], category)
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: %w", i+2, err)
		}
		locations = append(locations, location)
	}
	return locations, nil
}

// LoadProducts loads products from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	records, err := readRecords(filename, "products", []string{"id", "name", "unit", "default_cost"})
	if err != nil {
		return nil, err
	}

	products := make([]*entities.Product, 0, len(records))
	for i, record := range records {
		cost, err := parseDecimal("default_cost", record[3])
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		product, err := entities.NewProduct(entities.ProductID(record[0]), record[1], record[2], cost)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// LoadStock loads stock levels from a CSV file
func (l *Loader) LoadStock(filename string) ([]*entities.StockLevel, error) {
	records, err := readRecords(filename, "stock", []string{"product_id", "location_id", "on_hand", "reserved"})
	if err != nil {
		return nil, err
	}

	levels := make([]*entities.StockLevel, 0, len(records))
	for i, record := range records {
		onHand, err := parseDecimal("on_hand", record[2])
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		reserved, err := parseOptionalDecimal("reserved", record[3])
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		level, err := entities.NewStockLevel(entities.ProductID(record[0]), entities.LocationID(record[1]), onHand, reserved.Decimal)
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// LoadParLevels loads PAR settings from a CSV file. An empty max_order_qty
// means unbounded
func (l *Loader) LoadParLevels(filename string) ([]*entities.ParLevel, error) {
	header := []string{"product_id", "location_id", "par_level", "reorder_point", "min_order_qty", "max_order_qty"}
	records, err := readRecords(filename, "PAR levels", header)
	if err != nil {
		return nil, err
	}

	levels := make([]*entities.ParLevel, 0, len(records))
	for i, record := range records {
		values := make([]decimal.Decimal, 4)
		for j := range values {
			v, err := parseOptionalDecimal(header[j+2], record[j+2])
			if err != nil {
				return nil, fmt.Errorf("PAR levels CSV row %d: %w", i+2, err)
			}
			values[j] = v.Decimal
		}

		level, err := entities.NewParLevel(
			entities.ProductID(record[0]),
			entities.LocationID(record[1]),
			values[0], values[1], values[2], values[3],
		)
		if err != nil {
			return nil, fmt.Errorf("PAR levels CSV row %d: %w", i+2, err)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// LoadRequisitions loads scripted requisition lines from a CSV file
func (l *Loader) LoadRequisitions(filename string) ([]*RequisitionRow, error) {
	header := []string{"requisition", "source", "destination", "requester", "department", "product_id", "quantity", "approver_role", "approved_qty", "line_source"}
	records, err := readRecords(filename, "requisitions", header)
	if err != nil {
		return nil, err
	}

	rows := make([]*RequisitionRow, 0, len(records))
	for i, record := range records {
		qty, err := parseDecimal("quantity", record[6])
		if err != nil {
			return nil, fmt.Errorf("requisitions CSV row %d: %w", i+2, err)
		}
		approved, err := parseOptionalDecimal("approved_qty", record[8])
		if err != nil {
			return nil, fmt.Errorf("requisitions CSV row %d: %w", i+2, err)
		}
		if record[0] == "" {
			return nil, fmt.Errorf("requisitions CSV row %d: requisition key cannot be empty", i+2)
		}

		rows = append(rows, &RequisitionRow{
			Key:          record[0],
			Source:       entities.LocationID(record[1]),
			Destination:  entities.LocationID(record[2]),
			Requester:    record[3],
			Department:   record[4],
			ProductID:    entities.ProductID(record[5]),
			Quantity:     qty,
			ApproverRole: record[7],
			ApprovedQty:  approved,
			LineSourceID: entities.LocationID(record[9]),
		})
	}
	return rows, nil
}

// readRecords opens filename, checks the header and returns the data rows
// with surrounding whitespace trimmed
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comment = '#'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
		for j := range record {
			record[j] = strings.TrimSpace(record[j])
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, value)
	}
	return d, nil
}

func parseOptionalDecimal(field, value string) (decimal.NullDecimal, error) {
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseDecimal(field, value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
