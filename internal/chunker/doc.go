// Package chunker prepares files for embedding.
//
// Every file yields one metadata string describing its name and location,
// plus zero or more fixed-size word chunks of its extracted content. The
// metadata string guarantees that binary and media files, which have no
// extractable text, are still reachable by semantic search.
//
// # Basic Usage
//
//	units, perFile := chunker.Build([]chunker.FileText{
//	    {Path: "/home/u/docs/plan.md", Content: text},
//	})
//	// units is the flat list to embed; perFile[0] indexes units
//
// # Chunking Strategy
//
// Content is split on whitespace into windows of ChunkWordCount words.
// Chunks of MinChunkChars characters or fewer are dropped since they embed
// poorly and add noise to nearest-neighbor results.
package chunker
