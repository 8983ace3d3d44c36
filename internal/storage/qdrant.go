package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements the Store interface with file and folder metadata
// in SQLite and chunk embeddings in a Qdrant collection. Text and metadata
// search delegate to the embedded store; only the vector path differs.
type QdrantStore struct {
	meta       *SQLiteStore
	client     *qdrant.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

// QdrantConfig configures the external vector backend.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	Dimension  int
}

// upsertBatchSize caps points per Upsert call.
const upsertBatchSize = 1000

// NewQdrantStore opens the SQLite metadata store at dbPath and connects to
// Qdrant, creating the collection if needed.
func NewQdrantStore(dbPath string, cfg QdrantConfig, logger *slog.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	meta, err := NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		_ = meta.Close()
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	s := &QdrantStore{
		meta:       meta,
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		logger:     logger,
	}
	if err := s.ensureCollection(context.Background()); err != nil {
		_ = meta.Close()
		return nil, err
	}
	return s, nil
}

// ensureCollection creates the collection when missing and validates the
// vector size when present.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		s.logger.Info("creating collection", "collection", s.collection, "vector_size", s.dimension)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}
	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}
	if int(params.Size) != s.dimension {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", s.dimension, params.Size)
	}
	return nil
}

// Close closes the metadata store. The Qdrant client holds no local state
// worth flushing.
func (s *QdrantStore) Close() error {
	return s.meta.Close()
}

// DB exposes the metadata database so the rules tables can share it.
func (s *QdrantStore) DB() *sql.DB {
	return s.meta.DB()
}

// Metadata operations delegate to the embedded store

func (s *QdrantStore) InsertFile(ctx context.Context, file *File) (int64, error) {
	return s.meta.InsertFile(ctx, file)
}

func (s *QdrantStore) FileExists(ctx context.Context, path string) (bool, error) {
	return s.meta.FileExists(ctx, path)
}

func (s *QdrantStore) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return s.meta.GetFileByID(ctx, fileID)
}

func (s *QdrantStore) GetFilesByIDs(ctx context.Context, fileIDs []int64) ([]*File, error) {
	return s.meta.GetFilesByIDs(ctx, fileIDs)
}

func (s *QdrantStore) CountFiles(ctx context.Context) (int, error) {
	return s.meta.CountFiles(ctx)
}

func (s *QdrantStore) UpsertFolder(ctx context.Context, folder *Folder) (int64, error) {
	return s.meta.UpsertFolder(ctx, folder)
}

func (s *QdrantStore) GetFolderByPath(ctx context.Context, path string) (*Folder, error) {
	return s.meta.GetFolderByPath(ctx, path)
}

func (s *QdrantStore) SearchFoldersByName(ctx context.Context, name string, limit int) ([]*Folder, error) {
	return s.meta.SearchFoldersByName(ctx, name, limit)
}

func (s *QdrantStore) UpdateFolderScores(ctx context.Context) error {
	return s.meta.UpdateFolderScores(ctx)
}

func (s *QdrantStore) CountFolders(ctx context.Context) (int, error) {
	return s.meta.CountFolders(ctx)
}

func (s *QdrantStore) TextSearch(ctx context.Context, query string, limit int) ([]TextHit, error) {
	return s.meta.TextSearch(ctx, query, limit)
}

func (s *QdrantStore) MetadataSearch(ctx context.Context, filters MetadataFilters, limit int) ([]*File, error) {
	return s.meta.MetadataSearch(ctx, filters, limit)
}

// Vector operations

// InsertVector upserts a single chunk embedding as a Qdrant point.
func (s *QdrantStore) InsertVector(ctx context.Context, fileID int64, chunkText string, vector []float32) error {
	return s.upsertPoints(ctx, []*qdrant.PointStruct{chunkPoint(fileID, chunkText, vector)})
}

func chunkPoint(fileID int64, chunkText string, vector []float32) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(uuid.NewString()),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"file_id":    fileID,
			"chunk_text": chunkText,
		}),
	}
}

func (s *QdrantStore) upsertPoints(ctx context.Context, points []*qdrant.PointStruct) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points[start:end],
		})
		if err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}
	return nil
}

// VectorSearch queries the collection and deduplicates hits per file,
// keeping the lowest-distance chunk. Qdrant returns per-chunk points, so the
// query over-fetches before deduplication.
func (s *QdrantStore) VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]VectorHit, error) {
	if limit <= 0 {
		return []VectorHit{}, nil
	}

	fetch := uint64(limit * 2)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &fetch,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	seen := make(map[int64]struct{}, limit)
	results := make([]VectorHit, 0, limit)
	for _, point := range scoredPoints {
		fileID, chunkText := pointPayload(point.Payload)
		if fileID == 0 {
			continue
		}
		// Points arrive ordered by score, so the first hit per file is
		// also its best chunk.
		if _, ok := seen[fileID]; ok {
			continue
		}
		seen[fileID] = struct{}{}

		results = append(results, VectorHit{
			FileID:    fileID,
			ChunkText: chunkText,
			Distance:  1.0 - float64(point.Score),
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func pointPayload(payload map[string]*qdrant.Value) (fileID int64, chunkText string) {
	if payload == nil {
		return 0, ""
	}
	if v, ok := payload["file_id"]; ok {
		fileID = v.GetIntegerValue()
	}
	if v, ok := payload["chunk_text"]; ok {
		chunkText = v.GetStringValue()
	}
	return fileID, chunkText
}

// Status operations

func (s *QdrantStore) Status(ctx context.Context) (*Status, error) {
	status, err := s.meta.Status(ctx)
	if err != nil {
		return nil, err
	}
	status.Backend = "qdrant"

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}
	if info.PointsCount != nil {
		status.VectorsCount = int(*info.PointsCount)
	}
	return status, nil
}

// Transactions

// BeginTx starts a metadata transaction. Qdrant has no transactions, so
// vector inserts are buffered and flushed after the metadata commit
// succeeds. A commit that fails during the flush leaves metadata persisted
// with vectors missing; the existence pre-check makes a retried batch safe.
func (s *QdrantStore) BeginTx(ctx context.Context) (Tx, error) {
	metaTx, err := s.meta.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &qdrantTx{store: s, metaTx: metaTx, ctx: ctx}, nil
}

type qdrantTx struct {
	store   *QdrantStore
	metaTx  Tx
	ctx     context.Context
	pending []*qdrant.PointStruct
}

func (t *qdrantTx) Commit() error {
	if err := t.metaTx.Commit(); err != nil {
		return err
	}
	if len(t.pending) == 0 {
		return nil
	}
	if err := t.store.upsertPoints(t.ctx, t.pending); err != nil {
		return err
	}
	t.pending = nil
	return nil
}

func (t *qdrantTx) Rollback() error {
	t.pending = nil
	return t.metaTx.Rollback()
}

func (t *qdrantTx) InsertFile(ctx context.Context, file *File) (int64, error) {
	return t.metaTx.InsertFile(ctx, file)
}

func (t *qdrantTx) FileExists(ctx context.Context, path string) (bool, error) {
	return t.metaTx.FileExists(ctx, path)
}

func (t *qdrantTx) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return t.metaTx.GetFileByID(ctx, fileID)
}

func (t *qdrantTx) GetFilesByIDs(ctx context.Context, fileIDs []int64) ([]*File, error) {
	return t.metaTx.GetFilesByIDs(ctx, fileIDs)
}

func (t *qdrantTx) CountFiles(ctx context.Context) (int, error) {
	return t.metaTx.CountFiles(ctx)
}

func (t *qdrantTx) UpsertFolder(ctx context.Context, folder *Folder) (int64, error) {
	return t.metaTx.UpsertFolder(ctx, folder)
}

func (t *qdrantTx) GetFolderByPath(ctx context.Context, path string) (*Folder, error) {
	return t.metaTx.GetFolderByPath(ctx, path)
}

func (t *qdrantTx) SearchFoldersByName(ctx context.Context, name string, limit int) ([]*Folder, error) {
	return t.metaTx.SearchFoldersByName(ctx, name, limit)
}

func (t *qdrantTx) UpdateFolderScores(ctx context.Context) error {
	return t.metaTx.UpdateFolderScores(ctx)
}

func (t *qdrantTx) CountFolders(ctx context.Context) (int, error) {
	return t.metaTx.CountFolders(ctx)
}

// InsertVector buffers the point until Commit.
func (t *qdrantTx) InsertVector(ctx context.Context, fileID int64, chunkText string, vector []float32) error {
	t.pending = append(t.pending, chunkPoint(fileID, chunkText, vector))
	return nil
}

func (t *qdrantTx) VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]VectorHit, error) {
	return t.store.VectorSearch(ctx, queryVector, limit)
}

func (t *qdrantTx) TextSearch(ctx context.Context, query string, limit int) ([]TextHit, error) {
	return t.metaTx.TextSearch(ctx, query, limit)
}

func (t *qdrantTx) MetadataSearch(ctx context.Context, filters MetadataFilters, limit int) ([]*File, error) {
	return t.metaTx.MetadataSearch(ctx, filters, limit)
}

func (t *qdrantTx) Status(ctx context.Context) (*Status, error) {
	return t.store.Status(ctx)
}

func (t *qdrantTx) Close() error {
	return nil
}

func (t *qdrantTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}
