// Package searcher orchestrates multi-signal file search.
//
// A query flows through four stages:
//
//  1. Parse: structured filters (type:pdf, .md, from:2024-01-01, by:alice)
//     are pulled out of the raw text, leaving free-text terms.
//  2. Classify: the query is assigned an intent (keyword, natural
//     language, recent activity, file type, author, folder, date) which
//     selects a weight profile.
//  3. Fan out: four prongs run concurrently against storage, each
//     over-fetching twice the requested limit:
//     - vector: embed the terms and run nearest-neighbor search
//     - text: FTS5 BM25 match over extracted content
//     - folder: folder name lookup
//     - metadata: structured filters over the files table
//  4. Fuse: per-file prong scores are combined with the intent's weights.
//     Files matched by both vector and text search get the hybrid boost.
//     Directories holding two or more matched files are synthesized into
//     folder results.
//
// A failed prong degrades the result set rather than failing the search.
// The search errors only when every prong fails.
//
// Query embeddings are cached in an LRU keyed by query hash, so repeated
// and refined searches skip the embedding round-trip.
package searcher
