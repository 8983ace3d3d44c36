package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filescope/filescope/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	// Use in-memory database for testing
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func testFile(path string) *File {
	return &File{
		Name:             "report.pdf",
		Extension:        "pdf",
		Path:             path,
		Content:          "quarterly revenue summary",
		FileSize:         2048,
		Category:         types.CategoryDocument,
		ContentProcessed: true,
		Score:            7.5,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	assert.NotNil(t, store)
	assert.NotNil(t, store.db)
}

func TestClose(t *testing.T) {
	store := setupTestDB(t)
	err := store.Close()
	assert.NoError(t, err)
}

func TestInsertFile(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	file := testFile("/data/report.pdf")

	id, err := store.InsertFile(ctx, file)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	assert.Equal(t, id, file.ID)

	retrieved, err := store.GetFileByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", retrieved.Name)
	assert.Equal(t, "/data/report.pdf", retrieved.Path)
	assert.Equal(t, types.CategoryDocument, retrieved.Category)
	assert.InDelta(t, 7.5, retrieved.Score, 0.001)
	assert.True(t, retrieved.ContentProcessed)
}

func TestInsertFile_Duplicate(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	_, err := store.InsertFile(ctx, testFile("/data/report.pdf"))
	require.NoError(t, err)

	_, err = store.InsertFile(ctx, testFile("/data/report.pdf"))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestInsertFile_DuplicateCaseInsensitive(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	_, err := store.InsertFile(ctx, testFile("/data/Report.PDF"))
	require.NoError(t, err)

	// Same path with different casing must be rejected
	_, err = store.InsertFile(ctx, testFile("/data/report.pdf"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	count, err := store.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFileExists(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	exists, err := store.FileExists(ctx, "/data/report.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.InsertFile(ctx, testFile("/data/report.pdf"))
	require.NoError(t, err)

	exists, err = store.FileExists(ctx, "/DATA/REPORT.PDF")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetFileByID_NotFound(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	_, err := store.GetFileByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetFilesByIDs(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	id1, err := store.InsertFile(ctx, testFile("/data/a.pdf"))
	require.NoError(t, err)
	id2, err := store.InsertFile(ctx, testFile("/data/b.pdf"))
	require.NoError(t, err)

	files, err := store.GetFilesByIDs(ctx, []int64{id1, id2, 999})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	empty, err := store.GetFilesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpsertFolder(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	folder := &Folder{Name: "projects", Path: "/data/projects"}

	id, err := store.UpsertFolder(ctx, folder)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	// Upsert of the same path keeps the row
	again := &Folder{Name: "projects", Path: "/data/projects"}
	id2, err := store.UpsertFolder(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	count, err := store.CountFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertFolder_ParentLinkage(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	parentID, err := store.UpsertFolder(ctx, &Folder{Name: "data", Path: "/data"})
	require.NoError(t, err)

	child := &Folder{Name: "projects", Path: "/data/projects", ParentFolderID: &parentID}
	_, err = store.UpsertFolder(ctx, child)
	require.NoError(t, err)

	retrieved, err := store.GetFolderByPath(ctx, "/data/projects")
	require.NoError(t, err)
	require.NotNil(t, retrieved.ParentFolderID)
	assert.Equal(t, parentID, *retrieved.ParentFolderID)
}

func TestSearchFoldersByName(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	_, err := store.UpsertFolder(ctx, &Folder{Name: "projects", Path: "/data/projects"})
	require.NoError(t, err)
	_, err = store.UpsertFolder(ctx, &Folder{Name: "archive", Path: "/data/archive"})
	require.NoError(t, err)

	folders, err := store.SearchFoldersByName(ctx, "PROJ", 10)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "projects", folders[0].Name)
}

func TestUpdateFolderScores(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	_, err := store.UpsertFolder(ctx, &Folder{Name: "docs", Path: "/data/docs"})
	require.NoError(t, err)

	scores := []float64{2.0, 4.0, 6.0}
	for i, score := range scores {
		file := testFile("/data/docs/file" + string(rune('a'+i)) + ".pdf")
		file.Score = score
		file.FileSize = 100
		_, err := store.InsertFile(ctx, file)
		require.NoError(t, err)
	}

	require.NoError(t, store.UpdateFolderScores(ctx))

	folder, err := store.GetFolderByPath(ctx, "/data/docs")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, folder.Score, 0.001)
	assert.Equal(t, 3, folder.FileCount)
	assert.Equal(t, int64(300), folder.FolderSize)

	// Running again must not change anything
	require.NoError(t, store.UpdateFolderScores(ctx))
	folder, err = store.GetFolderByPath(ctx, "/data/docs")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, folder.Score, 0.001)
}

func TestUpdateFolderScores_EmptyFolder(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	_, err := store.UpsertFolder(ctx, &Folder{Name: "empty", Path: "/data/empty"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateFolderScores(ctx))

	folder, err := store.GetFolderByPath(ctx, "/data/empty")
	require.NoError(t, err)
	assert.Zero(t, folder.Score)
	assert.Zero(t, folder.FileCount)
}

func TestMetadataSearch(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	pdf := testFile("/data/report.pdf")
	_, err := store.InsertFile(ctx, pdf)
	require.NoError(t, err)

	md := testFile("/data/notes.md")
	md.Name = "notes.md"
	md.Extension = "md"
	md.FileSize = 10
	_, err = store.InsertFile(ctx, md)
	require.NoError(t, err)

	t.Run("by extension", func(t *testing.T) {
		files, err := store.MetadataSearch(ctx, MetadataFilters{Extensions: []string{".PDF"}}, 10)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "report.pdf", files[0].Name)
	})

	t.Run("by name substring", func(t *testing.T) {
		files, err := store.MetadataSearch(ctx, MetadataFilters{NameQuery: "notes"}, 10)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "notes.md", files[0].Name)
	})

	t.Run("by size", func(t *testing.T) {
		minSize := int64(100)
		files, err := store.MetadataSearch(ctx, MetadataFilters{MinSize: &minSize}, 10)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "report.pdf", files[0].Name)
	})

	t.Run("by date excludes all", func(t *testing.T) {
		past := time.Now().Add(-24 * time.Hour)
		files, err := store.MetadataSearch(ctx, MetadataFilters{DateTo: &past}, 10)
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestTextSearch(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	file := testFile("/data/report.pdf")
	file.Content = "quarterly revenue grew in the fourth quarter"
	_, err := store.InsertFile(ctx, file)
	require.NoError(t, err)

	other := testFile("/data/recipe.md")
	other.Name = "recipe.md"
	other.Extension = "md"
	other.Content = "two cups of flour and one egg"
	_, err = store.InsertFile(ctx, other)
	require.NoError(t, err)

	hits, err := store.TextSearch(ctx, "revenue", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, file.ID, hits[0].FileID)
	assert.Greater(t, hits[0].BM25Score, 0.0)
	assert.LessOrEqual(t, hits[0].BM25Score, 1.0)
}

func TestVectorSearch_RoundTrip(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	id1, err := store.InsertFile(ctx, testFile("/data/a.pdf"))
	require.NoError(t, err)
	id2, err := store.InsertFile(ctx, testFile("/data/b.pdf"))
	require.NoError(t, err)

	require.NoError(t, store.InsertVector(ctx, id1, "first chunk of text here", []float32{1, 0, 0}))
	require.NoError(t, store.InsertVector(ctx, id1, "second chunk of text here", []float32{0.9, 0.1, 0}))
	require.NoError(t, store.InsertVector(ctx, id2, "unrelated chunk of text here", []float32{0, 1, 0}))

	hits, err := store.VectorSearch(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2) // deduplicated per file

	assert.Equal(t, id1, hits[0].FileID)
	assert.InDelta(t, 0.0, hits[0].Distance, 0.001)
	assert.Equal(t, id2, hits[1].FileID)
	assert.Greater(t, hits[1].Distance, hits[0].Distance)
}

func TestVectorSearch_ZeroLimit(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	hits, err := store.VectorSearch(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTransaction_CommitAndRollback(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	t.Run("commit persists file and vectors", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		id, err := tx.InsertFile(ctx, testFile("/data/committed.pdf"))
		require.NoError(t, err)
		require.NoError(t, tx.InsertVector(ctx, id, "a chunk of committed text", []float32{1, 0, 0}))
		require.NoError(t, tx.Commit())

		exists, err := store.FileExists(ctx, "/data/committed.pdf")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("rollback discards everything", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		_, err = tx.InsertFile(ctx, testFile("/data/discarded.pdf"))
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		exists, err := store.FileExists(ctx, "/data/discarded.pdf")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("nested transactions rejected", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
	})
}

func TestStatus(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	id, err := store.InsertFile(ctx, testFile("/data/report.pdf"))
	require.NoError(t, err)
	_, err = store.UpsertFolder(ctx, &Folder{Name: "data", Path: "/data"})
	require.NoError(t, err)
	require.NoError(t, store.InsertVector(ctx, id, "a chunk worth of text here", []float32{1, 0, 0}))

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.FilesCount)
	assert.Equal(t, 1, status.FoldersCount)
	assert.Equal(t, 1, status.VectorsCount)
	assert.Contains(t, status.Backend, "sqlite")
}
