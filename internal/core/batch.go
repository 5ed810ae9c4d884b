package core

// batch.go commits products to the store in fixed-size chunks.
//
// A chunk is one UpsertProducts call with its own deadline. A failed chunk
// is counted and recorded, and the next chunk proceeds; nothing a single
// chunk does can abort the commit. Chunks are paced by a token bucket so
// a large catalog does not saturate the store.

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/catalogsync/internal/logging"
)

// Batch defaults.
const (
	DefaultBatchSize    = 20
	MaxBatchSize        = 500
	DefaultChunkTimeout = 10 * time.Second
)

// BatchOptions configures a Batcher.
type BatchOptions struct {
	// Size is the number of products per chunk (default 20, max 500).
	Size int

	// ChunkTimeout bounds each chunk write (default 10s).
	ChunkTimeout time.Duration

	// Delay is the minimum spacing between chunk writes; 0 disables pacing.
	Delay time.Duration
}

// CommitResult accumulates the outcome of a commit.
type CommitResult struct {
	Submitted    int      `json:"submitted"`
	Committed    int      `json:"committed"`
	Failed       int      `json:"failed"`
	Chunks       int      `json:"chunks"`
	FailedChunks int      `json:"failedChunks"`
	Errors       []string `json:"errors,omitempty"`
	Columns      []string `json:"-"`
	Stripped     []string `json:"strippedColumns,omitempty"`
	Notes        []string `json:"notes,omitempty"`

	failed map[string]struct{}
}

// FailedIdentifier reports whether the product with id was in a failed chunk.
func (r *CommitResult) FailedIdentifier(id string) bool {
	_, ok := r.failed[id]
	return ok
}

// Batcher writes products through a Store in chunks.
type Batcher struct {
	store   Store
	schema  *SchemaAdapter
	opts    BatchOptions
	limiter *rate.Limiter
}

// NewBatcher returns a batcher. schema may be nil to write every column.
func NewBatcher(store Store, schema *SchemaAdapter, opts BatchOptions) *Batcher {
	if opts.Size <= 0 {
		opts.Size = DefaultBatchSize
	}
	if opts.Size > MaxBatchSize {
		opts.Size = MaxBatchSize
	}
	if opts.ChunkTimeout <= 0 {
		opts.ChunkTimeout = DefaultChunkTimeout
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Batcher{
		store:   store,
		schema:  schema,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// DedupeByIdentifier keeps one product per identifier: the last occurrence
// wins, placed where the identifier first appeared.
func DedupeByIdentifier(products []Product) []Product {
	pos := make(map[string]int, len(products))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if i, ok := pos[p.Identifier]; ok {
			out[i] = p
			continue
		}
		pos[p.Identifier] = len(out)
		out = append(out, p)
	}
	return out
}

// Commit upserts products chunk by chunk and reports what was written.
func (b *Batcher) Commit(ctx context.Context, products []Product) CommitResult {
	logger := logging.FromContext(ctx)
	records := DedupeByIdentifier(products)
	res := CommitResult{
		Submitted: len(records),
		failed:    make(map[string]struct{}),
	}
	if len(records) == 0 {
		return res
	}

	if b.schema != nil {
		res.Columns, res.Stripped, res.Notes = b.schema.WriteColumns(ctx)
	} else {
		res.Columns = ProductColumns
	}
	if len(res.Stripped) > 0 {
		logger.Warn("writing without optional columns", "columns", res.Stripped)
	}

	for start := 0; start < len(records); start += b.opts.Size {
		end := min(start+b.opts.Size, len(records))
		chunk := records[start:end]
		res.Chunks++

		if err := b.limiter.Wait(ctx); err != nil {
			b.fail(&res, records[start:], &PersistenceError{Chunk: res.Chunks, Size: len(records) - start, Err: fmt.Errorf("commit interrupted: %w", err)})
			logger.Warn("commit interrupted", "chunk", res.Chunks, "remaining", len(records)-start, "error", err)
			break
		}

		chunkStart := time.Now()
		if err := b.writeChunk(ctx, chunk, res.Columns); err != nil {
			b.fail(&res, chunk, &PersistenceError{Chunk: res.Chunks, Size: len(chunk), Err: err})
			logger.Error("chunk write failed",
				"chunk", res.Chunks,
				"size", len(chunk),
				"error", err,
			)
			continue
		}

		res.Committed += len(chunk)
		logger.Debug("chunk committed",
			"chunk", res.Chunks,
			"size", len(chunk),
			"duration_ms", time.Since(chunkStart).Milliseconds(),
		)
	}

	return res
}

func (b *Batcher) writeChunk(ctx context.Context, chunk []Product, columns []string) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.ChunkTimeout)
	defer cancel()
	return b.store.UpsertProducts(ctx, chunk, columns)
}

func (b *Batcher) fail(res *CommitResult, chunk []Product, err *PersistenceError) {
	res.Failed += len(chunk)
	res.FailedChunks++
	res.Errors = append(res.Errors, err.Error())
	for _, p := range chunk {
		res.failed[p.Identifier] = struct{}{}
	}
}
