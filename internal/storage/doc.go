// Package storage provides persistence for indexed filesystem data.
//
// Two interchangeable backends implement the Store interface:
//
//   - SQLiteStore: everything embedded in one SQLite database, including
//     chunk embeddings as float32 blobs and an FTS5 index.
//   - QdrantStore: file and folder metadata stay in SQLite while chunk
//     embeddings live in a Qdrant collection with cosine distance.
//
// # Database Schema
//
// Tables:
//   - files: file metadata, extracted content, and importance score
//   - folders: directory metadata with aggregated scores
//   - file_vectors: chunk embeddings (SQLite backend only)
//   - files_fts: FTS5 index over file names and content
//   - path_rules, folder_rules, extension_rules, filename_rules
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.filescope/filescope.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	id, err := store.InsertFile(ctx, &storage.File{
//	    Name:      "report.pdf",
//	    Extension: "pdf",
//	    Path:      "/data/report.pdf",
//	    Category:  types.CategoryDocument,
//	    Score:     7.5,
//	})
//
// InsertFile checks path existence case-insensitively before writing and
// returns ErrAlreadyExists for duplicates, so rescans are idempotent.
//
// # Transactions
//
// Scans batch writes in transactions so a file row and its chunk vectors
// land atomically:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	id, _ := tx.InsertFile(ctx, file)
//	for _, chunk := range chunks {
//	    tx.InsertVector(ctx, id, chunk.Text, chunk.Vector)
//	}
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// On the Qdrant backend vector inserts inside a transaction are buffered
// and flushed after the metadata commit.
//
// # Search
//
//	hits, err := store.VectorSearch(ctx, queryVector, 20)   // cosine distance asc
//	text, err := store.TextSearch(ctx, "quarterly report", 20) // bm25
//	meta, err := store.MetadataSearch(ctx, storage.MetadataFilters{
//	    Extensions: []string{"pdf"},
//	}, 20)
//
// Vector hits are deduplicated per file, keeping the best chunk.
//
// # Build Tags
//
// The SQLite backend supports two build configurations:
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Includes sqlite-vec extension for fast vector operations
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Pure Go vector operations (slower)
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
