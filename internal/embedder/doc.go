// Package embedder generates vector embeddings for file content and
// search queries.
//
// Two providers are supported: a local Ollama server (default, no
// credentials needed) and the OpenAI embeddings API. Both sit behind the
// Embedder interface and share an LRU cache keyed by content hash, so
// re-scanning unchanged files does not re-embed them.
//
// # Basic Usage
//
//	emb, err := embedder.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vectors, err := emb.EmbedBatch(ctx, []string{"query text"})
//
// # Batch Processing
//
// Scans embed thousands of texts at once. Batcher spreads the work over a
// bounded worker pool, keeps results in input order, and L2-normalizes
// every vector so cosine similarity reduces to a dot product:
//
//	b, _ := embedder.NewBatcher(emb, runtime.NumCPU(), embedder.DefaultBatchSize)
//	defer b.Close()
//	vectors, err := b.EmbedAll(ctx, texts, func(done, total int) {
//	    log.Printf("embedded %d/%d", done, total)
//	})
//
// A failed sub-batch aborts the whole run. Partial embeddings are worse
// than no embeddings: files indexed without vectors silently vanish from
// semantic search.
//
// # Retry Behavior
//
// Provider calls retry up to MaxRetries times with exponential backoff,
// except on context cancellation.
package embedder
