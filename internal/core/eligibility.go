package core

// eligibility.go decides whether a product may be shown in the web catalog.
//
// Every predicate runs and every failure is reported, in a fixed order, so
// the report can explain all problems with a row at once. Ineligible
// products are still persisted; the flag only controls web visibility.

import (
	"fmt"
	"strings"
)

// DefaultMinStock is the stock threshold for web eligibility.
const DefaultMinStock = 10

// Ineligibility reasons. The stock reason is formatted with the threshold.
const (
	ReasonMissingName       = "missing name"
	ReasonMissingIdentifier = "missing identifier"
	ReasonNoPrice           = "price must be greater than zero"
	ReasonMissingType       = "missing type"
	ReasonMissingDimensions = "width and length are required for this category"
)

// EligibilityRules configures CheckEligibility.
type EligibilityRules struct {
	// MinStock is the fewest units in stock for a product to be listed.
	MinStock int

	// DimensionCategories lists categories whose products need width and length.
	DimensionCategories []string
}

// requiresDimensions reports whether category is in the dimension set,
// ignoring case.
func (r EligibilityRules) requiresDimensions(category string) bool {
	for _, c := range r.DimensionCategories {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(category)) {
			return true
		}
	}
	return false
}

// LowStockReason is the reason reported for stock below minStock.
func LowStockReason(minStock int) string {
	return fmt.Sprintf("stock below minimum of %d units", minStock)
}

// CheckEligibility evaluates p against the web listing predicates.
// The product is eligible iff the returned reasons are empty.
func CheckEligibility(p Product, rules EligibilityRules) (bool, []string) {
	reasons := []string{}

	if strings.TrimSpace(p.Name) == "" {
		reasons = append(reasons, ReasonMissingName)
	}
	if strings.TrimSpace(p.Identifier) == "" {
		reasons = append(reasons, ReasonMissingIdentifier)
	}
	if p.NetPrice <= 0 && p.PriceWithTax <= 0 {
		reasons = append(reasons, ReasonNoPrice)
	}
	if p.Stock < rules.MinStock {
		reasons = append(reasons, LowStockReason(rules.MinStock))
	}
	// Category always comes from the tab name, so only the sheet's own
	// type column can be missing.
	if strings.TrimSpace(p.Type) == "" {
		reasons = append(reasons, ReasonMissingType)
	}
	if rules.requiresDimensions(p.Category) && (!hasDimension(p.Width) || !hasDimension(p.Length)) {
		reasons = append(reasons, ReasonMissingDimensions)
	}

	return len(reasons) == 0, reasons
}

// hasDimension reports whether a normalized measurement is present and
// greater than zero. "0mm" and "0,0m" count as missing.
func hasDimension(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	v, ok := ParseDimensionValue(strings.TrimRight(strings.ToLower(s), "cm "))
	return !ok || v > 0
}
