package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// searchVector performs vector similarity search over file chunk embeddings.
// Hits are deduplicated per file, keeping the lowest-distance chunk.
func searchVector(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]VectorHit, error) {
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, db, queryVector, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, db, queryVector, limit)
}

// searchVectorOptimized uses the sqlite-vec extension for SQL-based vector
// similarity search with per-file deduplication at the database layer.
func searchVectorOptimized(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]VectorHit, error) {
	if limit <= 0 {
		return []VectorHit{}, nil
	}

	queryVectorBlob := serializeVector(queryVector)

	// vec_distance_cosine returns distance (lower is better). The inner
	// ranking picks the best chunk per file before applying LIMIT.
	query := `
		SELECT file_id, chunk_text, distance FROM (
			SELECT
				v.file_id,
				v.chunk_text,
				vec_distance_cosine(v.vector, ?) AS distance,
				ROW_NUMBER() OVER (
					PARTITION BY v.file_id
					ORDER BY vec_distance_cosine(v.vector, ?)
				) AS rn
			FROM file_vectors v
			WHERE v.dimension = ?
		)
		WHERE rn = 1
		ORDER BY distance ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query,
		queryVectorBlob, queryVectorBlob, len(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorHit, 0, limit)
	for rows.Next() {
		var hit VectorHit
		if err := rows.Scan(&hit.FileID, &hit.ChunkText, &hit.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}

// searchVectorFallback performs vector search using Go-based cosine distance
// computation. Used when sqlite-vec is not available (purego builds).
func searchVectorFallback(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]VectorHit, error) {
	if limit <= 0 {
		return []VectorHit{}, nil
	}

	rows, err := db.QueryContext(ctx,
		"SELECT file_id, chunk_text, vector FROM file_vectors WHERE dimension = ?",
		len(queryVector))
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// Best chunk per file
	best := make(map[int64]VectorHit)
	for rows.Next() {
		var fileID int64
		var chunkText string
		var vectorBlob []byte
		if err := rows.Scan(&fileID, &chunkText, &vectorBlob); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		distance := 1.0 - cosineSimilarity(queryVector, vector)
		if existing, ok := best[fileID]; !ok || distance < existing.Distance {
			best[fileID] = VectorHit{FileID: fileID, ChunkText: chunkText, Distance: distance}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]VectorHit, 0, len(best))
	for _, hit := range best {
		results = append(results, hit)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// searchText performs BM25 full-text search over file names and content
// using FTS5.
func searchText(ctx context.Context, db *sql.DB, query string, limit int) ([]TextHit, error) {
	if limit <= 0 {
		return []TextHit{}, nil
	}

	// Sanitize query for FTS5
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("empty search query")
	}

	sqlQuery := `
		SELECT
			f.id,
			bm25(files_fts) AS score,
			snippet(files_fts, 1, '', '', '...', 12) AS snip
		FROM files_fts
		INNER JOIN files f ON files_fts.rowid = f.id
		WHERE files_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, sqlQuery, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextHit, 0, limit)
	for rows.Next() {
		var hit TextHit
		if err := rows.Scan(&hit.FileID, &hit.BM25Score, &hit.Snippet); err != nil {
			return nil, err
		}

		// Convert BM25 score (negative, lower is better) to positive
		// normalized score. BM25 scores are typically in range [-50, 0].
		hit.BM25Score = 1.0 / (1.0 + math.Abs(hit.BM25Score)/50.0)
		results = append(results, hit)
	}
	return results, rows.Err()
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FTS5 operator pattern for escaping Boolean operators
var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery sanitizes a search query for FTS5 to prevent injection attacks.
// Escapes special FTS5 operators and characters that could be used for SQL injection.
func sanitizeFTSQuery(query string) string {
	if query == "" {
		return ""
	}

	// Replace special characters that have meaning in FTS5
	replacer := strings.NewReplacer(
		`"`, `\"`, // Quote
		`*`, `\*`, // Wildcard
		`(`, `\(`, // Grouping
		`)`, `\)`, // Grouping
	)
	escaped := replacer.Replace(query)

	// Escape Boolean operators to prevent injection
	escaped = ftsOperatorPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		return `\` + match
	})

	return escaped
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
