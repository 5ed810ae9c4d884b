package core

// schema.go describes the products table as seen by the engine and adapts
// writes to the columns the store actually has.
//
// Stores add feature columns (supplier, for one) through migrations that
// may lag behind a deploy. Rather than failing every chunk on an unknown
// column, the adapter checks optional columns once per commit and leaves
// missing ones out of the write.

import (
	"context"
	"fmt"
	"strings"
)

// Products table columns written by the engine. created_at and updated_at
// are maintained by the store.
const (
	ColIdentifier           = "identifier"
	ColName                 = "name"
	ColCategory             = "category"
	ColType                 = "type"
	ColThickness            = "thickness"
	ColWidth                = "width"
	ColLength               = "length"
	ColColor                = "color"
	ColUse                  = "use_case"
	ColSupplierCost         = "supplier_cost"
	ColNetPrice             = "net_price"
	ColPriceWithTax         = "price_with_tax"
	ColProfit               = "profit"
	ColMarginPercent        = "margin_percent"
	ColStock                = "stock"
	ColSupplier             = "supplier"
	ColSourcePartition      = "source_partition"
	ColOriginalOrder        = "original_order"
	ColEligibleForWeb       = "eligible_for_web"
	ColIneligibilityReasons = "ineligibility_reasons"
	ColPriorPrice           = "prior_price"
	ColPriceChanged         = "price_changed"
	ColPriceChangePercent   = "price_change_percent"
)

// ProductColumns lists every writable column in table order. The
// identifier is always first.
var ProductColumns = []string{
	ColIdentifier, ColName, ColCategory, ColType, ColThickness, ColWidth,
	ColLength, ColColor, ColUse, ColSupplierCost, ColNetPrice, ColPriceWithTax,
	ColProfit, ColMarginPercent, ColStock, ColSupplier, ColSourcePartition,
	ColOriginalOrder, ColEligibleForWeb, ColIneligibilityReasons, ColPriorPrice,
	ColPriceChanged, ColPriceChangePercent,
}

// ReasonSeparator joins ineligibility reasons in the store.
const ReasonSeparator = "; "

// ColumnValue returns p's value for a products column. It panics on an
// unknown column, which is a programming error.
func ColumnValue(p *Product, column string) any {
	switch column {
	case ColIdentifier:
		return p.Identifier
	case ColName:
		return p.Name
	case ColCategory:
		return p.Category
	case ColType:
		return p.Type
	case ColThickness:
		return p.Thickness
	case ColWidth:
		return p.Width
	case ColLength:
		return p.Length
	case ColColor:
		return p.Color
	case ColUse:
		return p.Use
	case ColSupplierCost:
		return p.SupplierCost
	case ColNetPrice:
		return p.NetPrice
	case ColPriceWithTax:
		return p.PriceWithTax
	case ColProfit:
		return p.Profit
	case ColMarginPercent:
		return p.MarginPercent
	case ColStock:
		return p.Stock
	case ColSupplier:
		return p.Supplier
	case ColSourcePartition:
		return p.SourcePartition
	case ColOriginalOrder:
		return p.OriginalOrder
	case ColEligibleForWeb:
		return p.EligibleForWeb
	case ColIneligibilityReasons:
		return strings.Join(p.IneligibilityReasons, ReasonSeparator)
	case ColPriorPrice:
		return p.PriorPrice
	case ColPriceChanged:
		return p.PriceChanged
	case ColPriceChangePercent:
		return p.PriceChangePercent
	}
	panic(fmt.Sprintf("core: unknown products column %q", column))
}

// SchemaAdapter decides which columns a commit writes.
type SchemaAdapter struct {
	store    Store
	optional []string
}

// NewSchemaAdapter returns an adapter probing the given optional columns.
func NewSchemaAdapter(store Store, optional []string) *SchemaAdapter {
	return &SchemaAdapter{store: store, optional: optional}
}

// WriteColumns checks every optional column and returns the columns to
// write, the optional columns left out, and a note per failed check. A
// failed check counts as absent.
func (a *SchemaAdapter) WriteColumns(ctx context.Context) (columns, stripped, notes []string) {
	drop := make(map[string]bool)
	for _, col := range a.optional {
		col = strings.ToLower(strings.TrimSpace(col))
		if col == "" || col == ColIdentifier {
			continue
		}
		if !isProductColumn(col) {
			notes = append(notes, fmt.Sprintf("optional column %q is not a product column; ignored", col))
			continue
		}
		ok, err := a.store.HasColumn(ctx, col)
		if err != nil {
			notes = append(notes, fmt.Sprintf("could not check column %q, writing without it: %v", col, err))
		}
		if err != nil || !ok {
			drop[col] = true
			stripped = append(stripped, col)
		}
	}

	columns = make([]string, 0, len(ProductColumns))
	for _, col := range ProductColumns {
		if !drop[col] {
			columns = append(columns, col)
		}
	}
	return columns, stripped, notes
}

func isProductColumn(col string) bool {
	for _, c := range ProductColumns {
		if c == col {
			return true
		}
	}
	return false
}
