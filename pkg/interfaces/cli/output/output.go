package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/application/services/orchestration"
	"github.com/vsinha/storereq/pkg/application/services/replenishment"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/services"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	Elapsed   time.Duration
}

// DocumentsFile is the file written by the csv format
const DocumentsFile = "documents.csv"

// RunReport is the JSON rendering of a scenario run
type RunReport struct {
	Summary      SummaryView       `json:"summary"`
	Requisitions []RequisitionView `json:"requisitions"`
}

type SummaryView struct {
	Requisitions     int `json:"requisitions"`
	Issued           int `json:"issued"`
	Bypassed         int `json:"bypassed"`
	Failed           int `json:"failed"`
	Transfers        int `json:"transfers"`
	Issues           int `json:"issues"`
	PurchaseRequests int `json:"purchase_requests"`
}

type RequisitionView struct {
	Key       string         `json:"key"`
	ID        string         `json:"id,omitempty"`
	Reference string         `json:"reference,omitempty"`
	Status    string         `json:"status,omitempty"`
	Stage     string         `json:"stage,omitempty"`
	Bypassed  bool           `json:"bypassed"`
	Error     string         `json:"error,omitempty"`
	Documents []DocumentView `json:"documents,omitempty"`
}

type DocumentView struct {
	Type            string     `json:"type"`
	Reference       string     `json:"reference"`
	VendorLiability bool       `json:"vendor_liability,omitempty"`
	Lines           []LineView `json:"lines"`
}

type LineView struct {
	LineID    string `json:"line_id"`
	ProductID string `json:"product_id"`
	Quantity  string `json:"quantity"`
	Source    string `json:"source,omitempty"`
}

// NewRunReport converts orchestration outcomes into their report form
func NewRunReport(outcomes []*dto.ScriptOutcome) RunReport {
	summary := orchestration.Summarize(outcomes)
	report := RunReport{
		Summary: SummaryView{
			Requisitions:     summary.Requisitions,
			Issued:           summary.Issued,
			Bypassed:         summary.Bypassed,
			Failed:           summary.Failed,
			Transfers:        summary.Documents[entities.DocumentTransfer],
			Issues:           summary.Documents[entities.DocumentIssue],
			PurchaseRequests: summary.Documents[entities.DocumentPurchaseRequest],
		},
		Requisitions: make([]RequisitionView, 0, len(outcomes)),
	}

	for _, outcome := range outcomes {
		view := RequisitionView{Key: outcome.Key, Bypassed: outcome.Bypassed}
		if r := outcome.Requisition; r != nil {
			view.ID = r.ID
			view.Reference = r.Reference
			view.Status = r.Status.String()
			view.Stage = r.Stage.String()
		}
		if outcome.Err != nil {
			view.Error = outcome.Err.Error()
		}
		if outcome.Issue != nil {
			view.Documents = DocumentViews(outcome.Issue.Documents)
		}
		report.Requisitions = append(report.Requisitions, view)
	}
	return report
}

// DocumentViews converts generated documents for rendering
func DocumentViews(docs []entities.GeneratedDocument) []DocumentView {
	views := make([]DocumentView, 0, len(docs))
	for _, doc := range docs {
		view := DocumentView{
			Type:            doc.Type.String(),
			Reference:       doc.Reference,
			VendorLiability: doc.VendorLiability,
			Lines:           make([]LineView, 0, len(doc.Lines)),
		}
		for _, line := range doc.Lines {
			view.Lines = append(view.Lines, LineView{
				LineID:    line.LineID,
				ProductID: string(line.ProductID),
				Quantity:  line.Quantity.String(),
				Source:    string(line.SourceLocationID),
			})
		}
		views = append(views, view)
	}
	return views
}

// GenerateRun writes the result of a scenario run in the configured format
func GenerateRun(w io.Writer, outcomes []*dto.ScriptOutcome, config Config) error {
	report := NewRunReport(outcomes)

	switch config.Format {
	case "text":
		return generateRunText(w, report, config)
	case "json":
		return writeJSON(w, report)
	case "csv":
		return generateRunCSV(w, report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateRunText(w io.Writer, report RunReport, config Config) error {
	s := report.Summary
	fmt.Fprintf(w, "📊 Requisition Run Summary\n")
	fmt.Fprintf(w, "==========================\n\n")
	fmt.Fprintf(w, "Requisitions: %d (issued %d, bypassed %d, failed %d)\n",
		s.Requisitions, s.Issued, s.Bypassed, s.Failed)
	fmt.Fprintf(w, "Documents: %d transfers, %d issues, %d purchase requests\n",
		s.Transfers, s.Issues, s.PurchaseRequests)
	if config.Verbose {
		fmt.Fprintf(w, "Run Time: %v\n", config.Elapsed)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-14s %-14s %-12s %-10s %s\n", "Key", "Reference", "Status", "Stage", "Notes")
	fmt.Fprintf(w, "%-14s %-14s %-12s %-10s %s\n", "--------------", "--------------", "------------", "----------", "-----")
	for _, r := range report.Requisitions {
		notes := ""
		switch {
		case r.Error != "":
			notes = "⚠️  " + r.Error
		case r.Bypassed:
			notes = "approval bypassed"
		}
		fmt.Fprintf(w, "%-14s %-14s %-12s %-10s %s\n", r.Key, r.Reference, r.Status, r.Stage, notes)
	}
	fmt.Fprintln(w)

	if s.Transfers+s.Issues+s.PurchaseRequests == 0 {
		return nil
	}

	fmt.Fprintf(w, "📋 Generated Documents:\n")
	fmt.Fprintf(w, "%-14s %-16s %-14s %-6s %-10s %-10s %s\n",
		"Document", "Type", "Requisition", "Line", "Product", "Quantity", "Source")
	fmt.Fprintf(w, "%-14s %-16s %-14s %-6s %-10s %-10s %s\n",
		"--------------", "----------------", "--------------", "------", "----------", "----------", "------")
	for _, r := range report.Requisitions {
		for _, doc := range r.Documents {
			docType := doc.Type
			if doc.VendorLiability {
				docType += "*"
			}
			for _, line := range doc.Lines {
				fmt.Fprintf(w, "%-14s %-16s %-14s %-6s %-10s %-10s %s\n",
					doc.Reference, docType, r.Reference, line.LineID, line.ProductID, line.Quantity, line.Source)
			}
		}
	}
	fmt.Fprintln(w)
	return nil
}

func generateRunCSV(w io.Writer, report RunReport, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, DocumentsFile)
	if err := writeDocumentsCSV(report, filename); err != nil {
		return fmt.Errorf("failed to write documents CSV: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(w, "💾 CSV results saved to: %s\n", filename)
	}
	return nil
}

func writeDocumentsCSV(report RunReport, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"document", "type", "vendor_liability", "requisition", "line_id", "product_id", "quantity", "source"}); err != nil {
		return err
	}
	for _, r := range report.Requisitions {
		for _, doc := range r.Documents {
			for _, line := range doc.Lines {
				record := []string{
					doc.Reference,
					doc.Type,
					fmt.Sprintf("%t", doc.VendorLiability),
					r.Reference,
					line.LineID,
					line.ProductID,
					line.Quantity,
					line.Source,
				}
				if err := writer.Write(record); err != nil {
					return err
				}
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// GenerateSuggestions writes replenishment suggestions grouped by location
func GenerateSuggestions(w io.Writer, suggestions map[entities.LocationID][]entities.ReplenishmentSuggestion, config Config) error {
	locations := make([]entities.LocationID, 0, len(suggestions))
	for locationID := range suggestions {
		locations = append(locations, locationID)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i] < locations[j] })

	switch config.Format {
	case "json":
		ordered := make([]entities.ReplenishmentSuggestion, 0)
		for _, locationID := range locations {
			ordered = append(ordered, suggestions[locationID]...)
		}
		return writeJSON(w, ordered)
	case "text":
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}

	if len(locations) == 0 {
		fmt.Fprintf(w, "✅ Every location is above its reorder points\n")
		return nil
	}

	fmt.Fprintf(w, "📦 Replenishment Suggestions:\n")
	fmt.Fprintf(w, "%-12s %-10s %-10s %-10s %-10s %-10s\n",
		"Location", "Product", "Current", "Reorder", "PAR", "Suggested")
	fmt.Fprintf(w, "%-12s %-10s %-10s %-10s %-10s %-10s\n",
		"------------", "----------", "----------", "----------", "----------", "----------")
	for _, locationID := range locations {
		for _, s := range suggestions[locationID] {
			fmt.Fprintf(w, "%-12s %-10s %-10s %-10s %-10s %-10s\n",
				s.LocationID, s.ProductID, s.CurrentStock, s.ReorderPoint, s.ParLevel, s.SuggestedQty)
		}
		fmt.Fprintf(w, "%-12s %-10s %-10s %-10s %-10s %-10s\n",
			"", "total", "", "", "", replenishment.TotalSuggested(suggestions[locationID]))
	}
	fmt.Fprintln(w)
	return nil
}

// ReferenceView is the rendering of a parsed document code
type ReferenceView struct {
	Code     string `json:"code"`
	Valid    bool   `json:"valid"`
	Prefix   string `json:"prefix,omitempty"`
	Year     int    `json:"year,omitempty"`
	Month    int    `json:"month,omitempty"`
	Sequence int64  `json:"sequence,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewReferenceView parses code with sequencer for display
func NewReferenceView(sequencer *services.ReferenceSequencer, code string) ReferenceView {
	ref, err := sequencer.Parse(code)
	if err != nil {
		return ReferenceView{Code: code, Error: err.Error()}
	}
	return ReferenceView{
		Code:     code,
		Valid:    true,
		Prefix:   ref.Prefix,
		Year:     ref.Year,
		Month:    ref.Month,
		Sequence: ref.Sequence,
	}
}

// GenerateReferences writes parsed document codes
func GenerateReferences(w io.Writer, views []ReferenceView, config Config) error {
	switch config.Format {
	case "json":
		return writeJSON(w, views)
	case "text":
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}

	fmt.Fprintf(w, "%-18s %-8s %-6s %-6s %-10s\n", "Code", "Prefix", "Year", "Month", "Sequence")
	fmt.Fprintf(w, "%-18s %-8s %-6s %-6s %-10s\n", "------------------", "--------", "------", "------", "----------")
	for _, v := range views {
		if !v.Valid {
			fmt.Fprintf(w, "%-18s ❌ %s\n", v.Code, v.Error)
			continue
		}
		fmt.Fprintf(w, "%-18s %-8s %-6d %-6d %-10d\n", v.Code, v.Prefix, v.Year, v.Month, v.Sequence)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}
