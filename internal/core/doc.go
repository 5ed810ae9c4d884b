// Package core provides the catalog synchronization engine.
//
// This package holds all domain logic independent of any transport or
// storage technology. It reads raw delimited text per spreadsheet tab
// ("partition") through a [Source], turns it into canonical [Product]
// records and commits them through a [Store]. The HTTP surface, the
// scheduler and tests all drive it through [Service.Sync].
//
// # Pipeline
//
// A run flows strictly forward, one partition at a time:
//
//  1. Fetch: raw text for every requested tab, in parallel with a bounded
//     number of workers and a per-tab deadline.
//  2. Parse: [ParseRecords] splits the text into rows, honoring quotes and
//     line breaks inside quoted fields.
//  3. Resolve: [ColumnResolver.ResolveHeader] finds the header row and maps it to a
//     [ColumnMap] by fuzzy header matching.
//  4. Build: [RecordBuilder] normalizes locale-formatted values into a
//     [Product], assigns the category from the tab name and checks
//     eligibility with [CheckEligibility].
//  5. Detect: [DetectPriceChange] compares each price against the prior
//     catalog loaded once per run.
//  6. Deduplicate: [PartitionDeduper] skips tabs that repeat an earlier
//     tab's identifier set.
//  7. Commit: [Batcher] upserts chunks of records, isolating failures per
//     chunk and dropping optional columns the store does not have.
//  8. Report: [BuildStatistics] and [AnalyzeCompetitiveness] summarize the
//     run into a [RunReport].
//
// # Error Handling
//
// Failures never escape their stage. A failed fetch, a broken header or a
// bad row becomes report data; only a run with nothing to commit reports
// success=false. Technical errors are mapped to support codes with
// [MapError]:
//
//   - SRC001-SRC004: Source errors (unreachable, timeout, empty, too large)
//   - STR001-STR002: Structure errors (short header, missing columns)
//   - ROW001-ROW002: Row errors (identifier format, missing identifier)
//   - DB001-DB006: Store errors (connection, timeout, schema, constraints, locks)
//   - RUN001-RUN002: Run errors (already running, nothing to commit)
package core
