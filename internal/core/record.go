package core

import (
	"fmt"
	"math"
	"regexp"
)

// RecordRules configures how rows become products.
type RecordRules struct {
	// TaxRate derives priceWithTax from netPrice when the sheet has none.
	TaxRate float64

	// IdentifierMinDigits is the minimum length of a numeric identifier.
	IdentifierMinDigits int

	// SupplierFallback is used when a row names no supplier.
	SupplierFallback string

	// Category is assigned to every product of the partition.
	Category string

	Eligibility EligibilityRules
}

// RecordBuilder turns the data rows of one partition into products.
type RecordBuilder struct {
	partition string
	cols      ColumnMap
	rules     RecordRules
	idPattern *regexp.Regexp
}

// NewRecordBuilder returns a builder for rows resolved by cols.
func NewRecordBuilder(partition string, cols ColumnMap, rules RecordRules) *RecordBuilder {
	digits := rules.IdentifierMinDigits
	if digits < 1 {
		digits = 1
	}
	return &RecordBuilder{
		partition: partition,
		cols:      cols,
		rules:     rules,
		idPattern: regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d,}$`, digits)),
	}
}

// Build converts one data row. order is the row's position among the
// partition's data rows (1-based) and becomes OriginalOrder. A row without
// a valid identifier cannot be keyed in the store and yields a *RowError.
func (b *RecordBuilder) Build(row RawRow, order int) (Product, error) {
	cell := func(f Field) string { return CleanCell(b.cols.Cell(row, f)) }

	id := cell(FieldIdentifier)
	if id == "" {
		return Product{}, &RowError{Row: order, Reason: "missing identifier"}
	}
	if !b.idPattern.MatchString(id) {
		return Product{}, &RowError{Row: order, Value: id, Reason: fmt.Sprintf("identifier must be numeric with at least %d digits", b.rules.IdentifierMinDigits)}
	}

	p := Product{
		Identifier:      id,
		Name:            cell(FieldName),
		Category:        b.rules.Category,
		Type:            cell(FieldType),
		Thickness:       NormalizeThickness(cell(FieldThickness)),
		Width:           NormalizeDimension(cell(FieldWidth)),
		Length:          NormalizeDimension(cell(FieldLength)),
		Color:           cell(FieldColor),
		Use:             cell(FieldUse),
		SupplierCost:    nonNegative(ParseCurrency(cell(FieldSupplierCost))),
		NetPrice:        nonNegative(ParseCurrency(cell(FieldNetPrice))),
		Stock:           ParseStock(cell(FieldStock)),
		Supplier:        cell(FieldSupplier),
		SourcePartition: b.partition,
		OriginalOrder:   order,
	}
	if p.Supplier == "" {
		p.Supplier = b.rules.SupplierFallback
	}

	p.PriceWithTax = nonNegative(ParseCurrency(cell(FieldPriceWithTax)))
	if p.PriceWithTax <= 0 {
		p.PriceWithTax = math.Round(p.NetPrice * (1 + b.rules.TaxRate))
	}

	p.Profit = ParseCurrency(cell(FieldProfit))
	if p.Profit <= 0 && p.SupplierCost > 0 {
		p.Profit = p.PriceWithTax - p.SupplierCost
	}
	if p.PriceWithTax > 0 {
		p.MarginPercent = round2(p.Profit / p.PriceWithTax * 100)
	}

	p.EligibleForWeb, p.IneligibilityReasons = CheckEligibility(p, b.rules.Eligibility)
	return p, nil
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
