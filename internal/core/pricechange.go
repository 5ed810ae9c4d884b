package core

// PriceChange is the comparison of a product's price with the stored one.
type PriceChange struct {
	Prior   *float64
	Changed bool
	Percent float64
}

// DetectPriceChange compares newPrice with the prior stored price. seen is
// false for identifiers not yet in the store, in which case prior counts
// as 0. Changed is exact inequality; Percent is relative to prior and is 0
// when prior is not positive.
func DetectPriceChange(newPrice, prior float64, seen bool) PriceChange {
	if !seen {
		prior = 0
	}
	pc := PriceChange{Changed: newPrice != prior}
	if seen {
		p := prior
		pc.Prior = &p
	}
	if prior > 0 {
		pc.Percent = round2((newPrice - prior) / prior * 100)
	}
	return pc
}

// ApplyPriceChanges annotates products with their price change against
// priors and returns how many changed against a stored price. First-seen
// products are flagged as changed but not counted.
func ApplyPriceChanges(products []Product, priors map[string]float64) int {
	changed := 0
	for i := range products {
		prior, seen := priors[products[i].Identifier]
		pc := DetectPriceChange(products[i].PriceWithTax, prior, seen)
		products[i].PriorPrice = pc.Prior
		products[i].PriceChanged = pc.Changed
		products[i].PriceChangePercent = pc.Percent
		if seen && pc.Changed {
			changed++
		}
	}
	return changed
}
