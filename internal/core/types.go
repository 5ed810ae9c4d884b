package core

import (
	"context"
	"strings"
	"time"
)

// Source returns the raw delimited text of one spreadsheet tab.
// Implementations return a *TransportError for network failures and
// ErrEmptySource for an empty body.
type Source interface {
	Fetch(ctx context.Context, partition string) (string, error)
}

// Store is the persistent catalog.
type Store interface {
	// PriorPrices returns identifier -> priceWithTax for every stored product.
	PriorPrices(ctx context.Context) (map[string]float64, error)

	// HasColumn reports whether the products table has the named column.
	HasColumn(ctx context.Context, column string) (bool, error)

	// UpsertProducts writes products keyed by identifier, setting only the
	// given columns. The write is atomic per call.
	UpsertProducts(ctx context.Context, products []Product, columns []string) error

	// DeleteAll removes every product and returns the number removed.
	DeleteAll(ctx context.Context) (int64, error)
}

// RawRow is one parsed source line.
type RawRow []string

// Field names a canonical product attribute a header can resolve to.
type Field string

const (
	FieldIdentifier   Field = "identifier"
	FieldName         Field = "name"
	FieldType         Field = "type"
	FieldThickness    Field = "thickness"
	FieldWidth        Field = "width"
	FieldLength       Field = "length"
	FieldColor        Field = "color"
	FieldUse          Field = "use"
	FieldNetPrice     Field = "net_price"
	FieldSupplierCost Field = "supplier_cost"
	FieldPriceWithTax Field = "price_with_tax"
	FieldProfit       Field = "profit"
	FieldStock        Field = "stock"
	FieldSupplier     Field = "supplier"
)

// RequiredFields must resolve for a partition to contribute records.
var RequiredFields = []Field{FieldIdentifier, FieldName, FieldNetPrice}

// ColumnMap maps canonical fields to zero-based column indexes for one
// partition's header. It is built once and never modified afterwards.
type ColumnMap map[Field]int

// Has reports whether the field resolved to a column.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Cell returns the trimmed value of field f in row, or "" when the field is
// unmapped or the row is too short.
func (m ColumnMap) Cell(row RawRow, f Field) string {
	idx, ok := m[f]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Product is the canonical catalog record.
type Product struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Type       string `json:"type"`
	Thickness  string `json:"thickness"`
	Width      string `json:"width"`
	Length     string `json:"length"`
	Color      string `json:"color"`
	Use        string `json:"use"`

	SupplierCost  float64 `json:"supplierCost"`
	NetPrice      float64 `json:"netPrice"`
	PriceWithTax  float64 `json:"priceWithTax"`
	Profit        float64 `json:"profit"`
	MarginPercent float64 `json:"marginPercent"`

	Stock    int    `json:"stock"`
	Supplier string `json:"supplier"`

	SourcePartition string `json:"sourcePartition"`
	OriginalOrder   int    `json:"originalOrder"`

	EligibleForWeb       bool     `json:"eligibleForWeb"`
	IneligibilityReasons []string `json:"ineligibilityReasons"`

	PriorPrice         *float64 `json:"priorPrice,omitempty"`
	PriceChanged       bool     `json:"priceChanged"`
	PriceChangePercent float64  `json:"priceChangePercent"`
}

// SyncPhase is the stage a run is in.
type SyncPhase string

const (
	PhaseIdle          SyncPhase = "idle"
	PhaseFetching      SyncPhase = "fetching"
	PhaseParsing       SyncPhase = "parsing"
	PhaseValidating    SyncPhase = "validating"
	PhaseDeduplicating SyncPhase = "deduplicating"
	PhaseCommitting    SyncPhase = "committing"
	PhaseReporting     SyncPhase = "reporting"
)

// PartitionStatus is the outcome of one partition.
type PartitionStatus string

const (
	PartitionProcessed       PartitionStatus = "processed"
	PartitionDuplicate       PartitionStatus = "skipped_duplicate"
	PartitionSourceError     PartitionStatus = "source_error"
	PartitionStructuralError PartitionStatus = "structural_error"
	PartitionEmpty           PartitionStatus = "empty"
)

// SyncRequest is the trigger input.
type SyncRequest struct {
	// Partitions restricts the run to these tabs; empty means the configured set.
	Partitions []string `json:"partitions,omitempty"`

	// ClearFirst deletes the whole catalog before committing.
	ClearFirst bool `json:"clearFirst,omitempty"`

	// DryRun runs every stage except the store writes.
	DryRun bool `json:"dryRun,omitempty"`
}

// SyncStatus is a snapshot of the service for status endpoints.
type SyncStatus struct {
	Running     bool       `json:"running"`
	RunID       string     `json:"runId,omitempty"`
	Phase       SyncPhase  `json:"phase"`
	Partition   string     `json:"partition,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	LastRunID   string     `json:"lastRunId,omitempty"`
	LastSuccess *bool      `json:"lastSuccess,omitempty"`
	LastMessage string     `json:"lastMessage,omitempty"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
}

// PartitionReport is the outcome of one partition within a run.
type PartitionReport struct {
	Partition   string          `json:"partition"`
	Category    string          `json:"category"`
	Status      PartitionStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	Code        string          `json:"code,omitempty"`
	DuplicateOf string          `json:"duplicateOf,omitempty"`

	// Columns maps each resolved field to the header text it matched.
	Columns   map[Field]string `json:"columns,omitempty"`
	HeaderRow int              `json:"headerRow,omitempty"`

	SourceRows   int `json:"sourceRows"`
	ParsedRows   int `json:"parsedRows"`
	RejectedRows int `json:"rejectedRows"`
	Eligible     int `json:"eligible"`
	Ineligible   int `json:"ineligible"`
	PriceChanges int `json:"priceChanges"`
	Committed    int `json:"committed"`
	Failed       int `json:"failed"`

	// RowErrors holds the first rejected rows; RowErrorCount counts all of them.
	RowErrors        []string       `json:"rowErrors,omitempty"`
	RowErrorCount    int            `json:"rowErrorCount,omitempty"`
	RejectionReasons map[string]int `json:"rejectionReasons,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`

	FetchMs int64 `json:"fetchMs"`
}

// RunReport is the result of one synchronization run.
type RunReport struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	RunID      string    `json:"runId"`
	DryRun     bool      `json:"dryRun"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`

	Statistics  RunStatistics               `json:"statistics"`
	Partitions  map[string]*PartitionReport `json:"partitions"`
	Order       []string                    `json:"partitionOrder"`
	BatchErrors []string                    `json:"batchErrors,omitempty"`
	Warnings    []string                    `json:"warnings,omitempty"`
}

// WarningCount counts every warning surfaced in the report.
func (r *RunReport) WarningCount() int {
	n := len(r.Warnings) + len(r.BatchErrors)
	for _, p := range r.Partitions {
		n += len(p.Warnings) + p.RowErrorCount
		if p.Error != "" {
			n++
		}
	}
	return n
}
