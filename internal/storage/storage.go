package storage

import (
	"context"
	"time"

	"github.com/filescope/filescope/pkg/types"
)

// Store defines the interface for persisting and querying indexed filesystem
// data. Two realizations exist: SQLiteStore keeps everything embedded, and
// QdrantStore keeps metadata in SQLite while vectors live in a Qdrant
// collection.
type Store interface {
	// File operations
	InsertFile(ctx context.Context, file *File) (int64, error)
	FileExists(ctx context.Context, path string) (bool, error)
	GetFileByID(ctx context.Context, fileID int64) (*File, error)
	GetFilesByIDs(ctx context.Context, fileIDs []int64) ([]*File, error)
	CountFiles(ctx context.Context) (int, error)

	// Folder operations
	UpsertFolder(ctx context.Context, folder *Folder) (int64, error)
	GetFolderByPath(ctx context.Context, path string) (*Folder, error)
	SearchFoldersByName(ctx context.Context, name string, limit int) ([]*Folder, error)
	UpdateFolderScores(ctx context.Context) error
	CountFolders(ctx context.Context) (int, error)

	// Embedding operations
	InsertVector(ctx context.Context, fileID int64, chunkText string, vector []float32) error

	// Search operations
	VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]VectorHit, error)
	TextSearch(ctx context.Context, query string, limit int) ([]TextHit, error)
	MetadataSearch(ctx context.Context, filters MetadataFilters, limit int) ([]*File, error)

	// Status operations
	Status(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a storage transaction
type Tx interface {
	Commit() error
	Rollback() error
	Store // Embed Store interface for transaction operations
}

// File represents an indexed filesystem entry
type File struct {
	ID               int64
	Name             string
	Extension        string
	Path             string // Absolute; unique, compared case-insensitively
	Content          string // Extracted text, may be empty
	Author           *string
	FileSize         int64
	Category         types.FileCategory
	ContentProcessed bool
	Score            float64 // Importance score in [0, 10]
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastAccessed     time.Time
}

// Folder represents a directory observed during discovery
type Folder struct {
	ID             int64
	Name           string
	Path           string // Absolute, unique
	ParentFolderID *int64
	FileCount      int
	FolderSize     int64
	Score          float64 // Mean of contained file scores
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAccessed   time.Time
}

// MetadataFilters narrows metadata search to structured attributes. Zero
// values mean "no constraint".
type MetadataFilters struct {
	NameQuery  string // Substring match on file name
	Author     string // Substring match on author
	Extensions []string
	DateFrom   *time.Time
	DateTo     *time.Time
	MinSize    *int64
	MaxSize    *int64
}

// Empty reports whether no filter is set.
func (f MetadataFilters) Empty() bool {
	return f.NameQuery == "" && f.Author == "" && len(f.Extensions) == 0 &&
		f.DateFrom == nil && f.DateTo == nil &&
		f.MinSize == nil && f.MaxSize == nil
}

// VectorHit is a result from vector similarity search. Hits are deduplicated
// per file, keeping the lowest-distance chunk.
type VectorHit struct {
	FileID    int64
	ChunkText string
	Distance  float64 // Cosine distance, lower is better
}

// TextHit is a result from full-text search
type TextHit struct {
	FileID    int64
	BM25Score float64 // Normalized to (0, 1], higher is better
	Snippet   string
}

// Status contains statistics about the index
type Status struct {
	FilesCount   int
	FoldersCount int
	VectorsCount int
	IndexSizeMB  float64
	Backend      string
}
