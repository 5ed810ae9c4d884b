package core

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

func numberedProducts(n int) []Product {
	out := make([]Product, n)
	for i := range out {
		out[i] = Product{Identifier: fmt.Sprintf("%06d", i+1), PriceWithTax: float64(i + 1)}
	}
	return out
}

func TestBatcher_CommitAll(t *testing.T) {
	store := newMemStore()
	b := NewBatcher(store, nil, BatchOptions{Size: 20})

	res := b.Commit(context.Background(), numberedProducts(45))
	if res.Submitted != 45 || res.Committed != 45 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Chunks != 3 {
		t.Errorf("Chunks = %d, want 3", res.Chunks)
	}
	if got := len(store.ids()); got != 45 {
		t.Errorf("stored = %d, want 45", got)
	}
}

func TestBatcher_FailedChunkIsIsolated(t *testing.T) {
	store := newMemStore()
	store.failChunk[2] = true
	b := NewBatcher(store, nil, BatchOptions{Size: 20})

	res := b.Commit(context.Background(), numberedProducts(50))

	if res.Failed != 20 {
		t.Errorf("Failed = %d, want exactly the failed chunk's 20", res.Failed)
	}
	if res.Committed != 30 {
		t.Errorf("Committed = %d, want 30", res.Committed)
	}
	if res.FailedChunks != 1 || len(res.Errors) != 1 {
		t.Errorf("FailedChunks = %d, Errors = %v", res.FailedChunks, res.Errors)
	}
	if !strings.Contains(res.Errors[0], "chunk 2 (20 products)") {
		t.Errorf("error = %q", res.Errors[0])
	}
	if !res.FailedIdentifier("000021") || res.FailedIdentifier("000001") || res.FailedIdentifier("000041") {
		t.Error("FailedIdentifier does not match the failed chunk")
	}
	if got := len(store.ids()); got != 30 {
		t.Errorf("stored = %d, want 30", got)
	}
}

func TestBatcher_Idempotent(t *testing.T) {
	store := newMemStore()
	b := NewBatcher(store, nil, BatchOptions{Size: 7})
	products := numberedProducts(15)

	b.Commit(context.Background(), products)
	first := store.ids()
	b.Commit(context.Background(), products)

	if !reflect.DeepEqual(first, store.ids()) {
		t.Error("second commit changed the stored identifiers")
	}
	for _, p := range products {
		if store.rows[p.Identifier].PriceWithTax != p.PriceWithTax {
			t.Errorf("product %s changed", p.Identifier)
		}
	}
}

func TestDedupeByIdentifier(t *testing.T) {
	in := []Product{
		{Identifier: "1111", Name: "old"},
		{Identifier: "2222", Name: "b"},
		{Identifier: "1111", Name: "new"},
	}
	got := DedupeByIdentifier(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Identifier != "1111" || got[0].Name != "new" {
		t.Errorf("got[0] = %+v, want last 1111 in first position", got[0])
	}
	if got[1].Identifier != "2222" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestBatcher_StripsMissingOptionalColumn(t *testing.T) {
	store := newMemStore()
	store.missing[ColSupplier] = true
	b := NewBatcher(store, NewSchemaAdapter(store, []string{"supplier"}), BatchOptions{Size: 10})

	res := b.Commit(context.Background(), numberedProducts(5))
	if res.Committed != 5 {
		t.Fatalf("Committed = %d, want 5 (errors %v)", res.Committed, res.Errors)
	}
	if !reflect.DeepEqual(res.Stripped, []string{ColSupplier}) {
		t.Errorf("Stripped = %v", res.Stripped)
	}
	for _, col := range store.written[0] {
		if col == ColSupplier {
			t.Error("supplier column was written")
		}
	}
}

func TestBatcher_ColumnCheckErrorStripsColumn(t *testing.T) {
	store := newMemStore()
	store.columnErr = fmt.Errorf("permission denied for information_schema")
	b := NewBatcher(store, NewSchemaAdapter(store, []string{"supplier"}), BatchOptions{})

	res := b.Commit(context.Background(), numberedProducts(3))
	if res.Committed != 3 {
		t.Errorf("Committed = %d, want 3", res.Committed)
	}
	if len(res.Notes) != 1 || !strings.Contains(res.Notes[0], "supplier") {
		t.Errorf("Notes = %v", res.Notes)
	}
}

func TestBatcher_CancelledContextFailsRemainder(t *testing.T) {
	store := newMemStore()
	b := NewBatcher(store, nil, BatchOptions{Size: 2, Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := b.Commit(ctx, numberedProducts(5))
	if res.Committed+res.Failed != 5 {
		t.Errorf("committed %d + failed %d != 5", res.Committed, res.Failed)
	}
	if res.Failed == 0 {
		t.Error("expected the remainder to be reported failed")
	}
}

func TestNewBatcher_Clamps(t *testing.T) {
	b := NewBatcher(newMemStore(), nil, BatchOptions{Size: 10000})
	if b.opts.Size != MaxBatchSize {
		t.Errorf("Size = %d, want %d", b.opts.Size, MaxBatchSize)
	}
	b = NewBatcher(newMemStore(), nil, BatchOptions{})
	if b.opts.Size != DefaultBatchSize || b.opts.ChunkTimeout != DefaultChunkTimeout {
		t.Errorf("defaults = %+v", b.opts)
	}
}
