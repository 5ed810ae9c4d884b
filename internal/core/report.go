package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// RunStatistics aggregates a run.
type RunStatistics struct {
	Partitions PartitionCounts `json:"partitions"`

	SourceRows   int `json:"sourceRows"`
	ParsedRows   int `json:"parsedRows"`
	RejectedRows int `json:"rejectedRows"`
	Submitted    int `json:"submitted"`
	Committed    int `json:"committed"`
	Failed       int `json:"failed"`
	PriceChanges int `json:"priceChanges"`

	// RejectionReasons counts rejected rows by reason.
	RejectionReasons map[string]int `json:"rejectionReasons"`

	Totals          Totals                 `json:"totals"`
	Eligibility     EligibilityBreakdown   `json:"eligibility"`
	Competitiveness CompetitivenessSummary `json:"competitiveness"`
}

// PartitionCounts counts partitions by outcome.
type PartitionCounts struct {
	Requested  int `json:"requested"`
	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
	Empty      int `json:"empty"`
}

// Totals are inventory-weighted money totals: each product's supplier
// cost, tax-inclusive price and profit multiplied by its stock.
type Totals struct {
	Stock   int             `json:"stock"`
	Cost    decimal.Decimal `json:"cost"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// EligibilityBreakdown counts web eligibility across the committed set.
type EligibilityBreakdown struct {
	Eligible   int                          `json:"eligible"`
	Ineligible int                          `json:"ineligible"`
	Reasons    map[string]int               `json:"reasons"`
	ByCategory map[string]CategoryBreakdown `json:"byCategory"`
}

// CategoryBreakdown counts eligibility within one category.
type CategoryBreakdown struct {
	Eligible   int `json:"eligible"`
	Ineligible int `json:"ineligible"`
}

// BuildStatistics aggregates the deduplicated product set and partition
// outcomes. It has no side effects.
func BuildStatistics(products []Product, partitions []*PartitionReport, commit CommitResult) RunStatistics {
	st := RunStatistics{
		RejectionReasons: make(map[string]int),
		Submitted:        commit.Submitted,
		Committed:        commit.Committed,
		Failed:           commit.Failed,
		Eligibility: EligibilityBreakdown{
			Reasons:    make(map[string]int),
			ByCategory: make(map[string]CategoryBreakdown),
		},
	}

	st.Partitions.Requested = len(partitions)
	for _, pr := range partitions {
		switch pr.Status {
		case PartitionProcessed:
			st.Partitions.Processed++
		case PartitionDuplicate:
			st.Partitions.Duplicates++
			// its rows are already counted under the partition it repeats
			continue
		case PartitionEmpty:
			st.Partitions.Empty++
		default:
			st.Partitions.Failed++
		}
		st.SourceRows += pr.SourceRows
		st.ParsedRows += pr.ParsedRows
		st.RejectedRows += pr.RejectedRows
		for reason, n := range pr.RejectionReasons {
			st.RejectionReasons[reason] += n
		}
	}

	cost, revenue, profit := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range products {
		p := &products[i]
		stock := decimal.NewFromInt(int64(p.Stock))
		st.Totals.Stock += p.Stock
		cost = cost.Add(decimal.NewFromFloat(p.SupplierCost).Mul(stock))
		revenue = revenue.Add(decimal.NewFromFloat(p.PriceWithTax).Mul(stock))
		profit = profit.Add(decimal.NewFromFloat(p.Profit).Mul(stock))

		if p.PriorPrice != nil && p.PriceChanged {
			st.PriceChanges++
		}

		cat := st.Eligibility.ByCategory[p.Category]
		if p.EligibleForWeb {
			st.Eligibility.Eligible++
			cat.Eligible++
		} else {
			st.Eligibility.Ineligible++
			cat.Ineligible++
			for _, r := range p.IneligibilityReasons {
				st.Eligibility.Reasons[r]++
			}
		}
		st.Eligibility.ByCategory[p.Category] = cat
	}
	st.Totals.Cost = cost.Round(2)
	st.Totals.Revenue = revenue.Round(2)
	st.Totals.Profit = profit.Round(2)

	st.Competitiveness = AnalyzeCompetitiveness(products)
	return st
}

// Summary renders the one-line run message.
func Summary(committed, submitted, warnings int, dryRun bool) string {
	verb := "synchronized"
	if dryRun {
		verb = "validated (dry run)"
	}
	return fmt.Sprintf("%d of %d products %s, %d warnings", committed, submitted, verb, warnings)
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
