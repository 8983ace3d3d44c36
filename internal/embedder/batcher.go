package embedder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// DefaultBatchSize is the number of texts embedded per worker task.
const DefaultBatchSize = 10

// ProgressFunc reports embedding progress after each completed sub-batch.
type ProgressFunc func(done, total int)

// Batcher fans a large embedding workload out over a worker pool while
// preserving input order. Any sub-batch failure fails the whole run; a
// partially embedded corpus would silently degrade search results.
type Batcher struct {
	emb       Embedder
	pool      *ants.Pool
	batchSize int
}

// NewBatcher creates a batcher running at most workers concurrent
// provider calls.
func NewBatcher(emb Embedder, workers, batchSize int) (*Batcher, error) {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Batcher{emb: emb, pool: pool, batchSize: batchSize}, nil
}

// EmbedAll embeds texts and returns unit-normalized vectors in input order.
// progress may be nil.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string, progress ProgressFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]float32, len(texts))
	var done atomic.Int64
	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}

			vectors, err := b.emb.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				fail(fmt.Errorf("embed batch [%d:%d]: %w", start, end, err))
				return
			}
			if len(vectors) != end-start {
				fail(fmt.Errorf("embed batch [%d:%d]: provider returned %d vectors for %d texts",
					start, end, len(vectors), end-start))
				return
			}
			for i, v := range vectors {
				results[start+i] = NormalizeVector(v)
			}

			if progress != nil {
				progress(int(done.Add(int64(end-start))), len(texts))
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit embed batch: %w", submitErr))
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// Close releases the worker pool.
func (b *Batcher) Close() {
	b.pool.Release()
}
