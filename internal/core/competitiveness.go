package core

import (
	"sort"
	"strings"
)

// SpecKey is the technical specification shared by competing products.
type SpecKey struct {
	Type      string `json:"type"`
	Thickness string `json:"thickness"`
	Color     string `json:"color"`
	Width     string `json:"width"`
	Length    string `json:"length"`
}

func (k SpecKey) String() string {
	return strings.Join([]string{k.Type, k.Thickness, k.Color, k.Width, k.Length}, "|")
}

// SupplierOffer is one supplier's best cost within a group.
type SupplierOffer struct {
	Supplier     string  `json:"supplier"`
	Identifier   string  `json:"identifier"`
	Cost         float64 `json:"cost"`
	Delta        float64 `json:"delta"`
	DeltaPercent float64 `json:"deltaPercent"`
}

// CompetitivenessGroup is a specification offered by several suppliers.
type CompetitivenessGroup struct {
	Spec               SpecKey         `json:"spec"`
	CheapestSupplier   string          `json:"cheapestSupplier"`
	CheapestIdentifier string          `json:"cheapestIdentifier"`
	CheapestCost       float64         `json:"cheapestCost"`
	Offers             []SupplierOffer `json:"offers"`
}

// CompetitivenessSummary lists every competing group.
type CompetitivenessSummary struct {
	Groups  int                    `json:"groups"`
	Offers  int                    `json:"offers"`
	Entries []CompetitivenessGroup `json:"entries"`
}

// specKey folds a product's specification for grouping. Dimensions go
// through FormatDimension so "1.05" and "1,05m" compare equal.
func specKey(p *Product) SpecKey {
	fold := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return SpecKey{
		Type:      fold(p.Type),
		Thickness: fold(FormatDimension(p.Thickness)),
		Color:     fold(p.Color),
		Width:     fold(FormatDimension(p.Width)),
		Length:    fold(FormatDimension(p.Length)),
	}
}

// comparableCost is what a product costs the business: the supplier cost
// when known, else the net price.
func comparableCost(p *Product) float64 {
	if p.SupplierCost > 0 {
		return p.SupplierCost
	}
	return p.NetPrice
}

// AnalyzeCompetitiveness groups products by specification and, for every
// group with at least two suppliers, names the cheapest supplier and each
// other supplier's cost delta. Products without a type or a cost are left
// out.
func AnalyzeCompetitiveness(products []Product) CompetitivenessSummary {
	groups := make(map[string]map[string]SupplierOffer)
	specs := make(map[string]SpecKey)

	for i := range products {
		p := &products[i]
		cost := comparableCost(p)
		if strings.TrimSpace(p.Type) == "" || cost <= 0 {
			continue
		}
		key := specKey(p)
		ks := key.String()
		specs[ks] = key
		if groups[ks] == nil {
			groups[ks] = make(map[string]SupplierOffer)
		}
		supplier := strings.TrimSpace(p.Supplier)
		if cur, ok := groups[ks][supplier]; !ok || cost < cur.Cost {
			groups[ks][supplier] = SupplierOffer{Supplier: supplier, Identifier: p.Identifier, Cost: cost}
		}
	}

	summary := CompetitivenessSummary{Entries: []CompetitivenessGroup{}}
	for _, ks := range sortedKeys(groups) {
		bySupplier := groups[ks]
		if len(bySupplier) < 2 {
			continue
		}

		offers := make([]SupplierOffer, 0, len(bySupplier))
		for _, o := range bySupplier {
			offers = append(offers, o)
		}
		sort.Slice(offers, func(i, j int) bool {
			if offers[i].Cost != offers[j].Cost {
				return offers[i].Cost < offers[j].Cost
			}
			return offers[i].Supplier < offers[j].Supplier
		})

		best := offers[0]
		for i := range offers {
			offers[i].Delta = round2(offers[i].Cost - best.Cost)
			offers[i].DeltaPercent = round2(offers[i].Delta / best.Cost * 100)
		}

		summary.Entries = append(summary.Entries, CompetitivenessGroup{
			Spec:               specs[ks],
			CheapestSupplier:   best.Supplier,
			CheapestIdentifier: best.Identifier,
			CheapestCost:       best.Cost,
			Offers:             offers,
		})
		summary.Groups++
		summary.Offers += len(offers)
	}
	return summary
}
