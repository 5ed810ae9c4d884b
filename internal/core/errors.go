package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptySource is returned when a tab's text is empty or whitespace.
	ErrEmptySource = errors.New("source returned no data")

	// ErrSourceTooLarge is returned when a tab exceeds the size cap.
	ErrSourceTooLarge = errors.New("source too large")

	// ErrSyncInProgress is returned when a run is triggered while another
	// is still active in this process.
	ErrSyncInProgress = errors.New("a catalog sync is already running")

	// ErrNoCommittableRecords marks a run in which no partition produced a
	// record to commit.
	ErrNoCommittableRecords = errors.New("no partition produced committable records")
)

// TransportError is a failed or timed-out fetch of a partition.
type TransportError struct {
	Partition  string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %q: unexpected status %d", e.Partition, e.StatusCode)
	}
	return fmt.Sprintf("fetch %q: %v", e.Partition, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StructuralError is a header that cannot be mapped to the product schema.
type StructuralError struct {
	Partition string
	Columns   int
	Missing   []Field
}

func (e *StructuralError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("partition %q: header has %d columns, need at least %d", e.Partition, e.Columns, MinHeaderColumns)
	}
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("partition %q: missing required columns: %s", e.Partition, strings.Join(names, ", "))
}

// RowError is a single source row that could not become a product.
// Row is the 1-based position among the partition's data rows.
type RowError struct {
	Row    int
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d: %s (%q)", e.Row, e.Reason, e.Value)
}

// PersistenceError is a failed chunk write.
type PersistenceError struct {
	Chunk int
	Size  int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chunk %d (%d products): %v", e.Chunk, e.Size, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
