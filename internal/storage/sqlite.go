package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/filescope/filescope/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying database handle so rule tables can share the
// same connection and migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStore) querier() querier {
	return s.db
}

// File operations

const fileColumns = `id, name, extension, path, content, author, file_size,
       category, content_processed, score, created_at, updated_at, last_accessed`

// insertFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) insertFileWithQuerier(ctx context.Context, q querier, file *File) (int64, error) {
	// Path uniqueness is case-insensitive. Check before inserting so a
	// duplicate surfaces as ErrAlreadyExists rather than a constraint error.
	exists, err := s.fileExistsWithQuerier(ctx, q, file.Path)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("file %s: %w", file.Path, ErrAlreadyExists)
	}

	query := `
		INSERT INTO files (name, extension, path, content, author, file_size,
		                   category, content_processed, score, created_at, updated_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	lastAccessed := file.LastAccessed
	if lastAccessed.IsZero() {
		lastAccessed = now
	}
	result, err := q.ExecContext(ctx, query,
		file.Name, file.Extension, file.Path, file.Content, file.Author,
		file.FileSize, string(file.Category), file.ContentProcessed, file.Score,
		now, now, lastAccessed)
	if err != nil {
		return 0, fmt.Errorf("failed to insert file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	file.ID = id
	file.CreatedAt = now
	file.UpdatedAt = now
	return id, nil
}

func (s *SQLiteStore) InsertFile(ctx context.Context, file *File) (int64, error) {
	return s.insertFileWithQuerier(ctx, s.querier(), file)
}

// fileExistsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) fileExistsWithQuerier(ctx context.Context, q querier, path string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM files WHERE path = ? COLLATE NOCASE LIMIT 1", path).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) FileExists(ctx context.Context, path string) (bool, error) {
	return s.fileExistsWithQuerier(ctx, s.querier(), path)
}

func scanFile(scan func(dest ...interface{}) error) (*File, error) {
	var file File
	var author sql.NullString
	var category string
	var lastAccessed sql.NullTime
	err := scan(
		&file.ID, &file.Name, &file.Extension, &file.Path, &file.Content,
		&author, &file.FileSize, &category, &file.ContentProcessed, &file.Score,
		&file.CreatedAt, &file.UpdatedAt, &lastAccessed,
	)
	if err != nil {
		return nil, err
	}
	if author.Valid {
		file.Author = &author.String
	}
	file.Category = types.FileCategory(category)
	if lastAccessed.Valid {
		file.LastAccessed = lastAccessed.Time
	}
	return &file, nil
}

// getFileByIDWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getFileByIDWithQuerier(ctx context.Context, q querier, fileID int64) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ?`
	row := q.QueryRowContext(ctx, query, fileID)
	file, err := scanFile(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *SQLiteStore) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return s.getFileByIDWithQuerier(ctx, s.querier(), fileID)
}

// getFilesByIDsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getFilesByIDsWithQuerier(ctx context.Context, q querier, fileIDs []int64) ([]*File, error) {
	if len(fileIDs) == 0 {
		return []*File{}, nil
	}

	placeholders := make([]string, len(fileIDs))
	args := make([]interface{}, len(fileIDs))
	for i, id := range fileIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT ` + fileColumns + ` FROM files WHERE id IN (` +
		strings.Join(placeholders, ",") + `)`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*File, 0, len(fileIDs))
	for rows.Next() {
		file, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) GetFilesByIDs(ctx context.Context, fileIDs []int64) ([]*File, error) {
	return s.getFilesByIDsWithQuerier(ctx, s.querier(), fileIDs)
}

func (s *SQLiteStore) CountFiles(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&count)
	return count, err
}

// Folder operations

const folderColumns = `id, name, path, parent_folder_id, file_count, folder_size,
       score, created_at, updated_at, last_accessed`

// upsertFolderWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) upsertFolderWithQuerier(ctx context.Context, q querier, folder *Folder) (int64, error) {
	query := `
		INSERT INTO folders (name, path, parent_folder_id, file_count, folder_size,
		                     score, created_at, updated_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			parent_folder_id = COALESCE(excluded.parent_folder_id, folders.parent_folder_id),
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	lastAccessed := folder.LastAccessed
	if lastAccessed.IsZero() {
		lastAccessed = now
	}
	var parentID interface{}
	if folder.ParentFolderID != nil {
		parentID = *folder.ParentFolderID
	}
	err := q.QueryRowContext(ctx, query,
		folder.Name, folder.Path, parentID, folder.FileCount, folder.FolderSize,
		folder.Score, now, now, lastAccessed).Scan(&folder.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert folder: %w", err)
	}
	folder.UpdatedAt = now
	return folder.ID, nil
}

func (s *SQLiteStore) UpsertFolder(ctx context.Context, folder *Folder) (int64, error) {
	return s.upsertFolderWithQuerier(ctx, s.querier(), folder)
}

func scanFolder(scan func(dest ...interface{}) error) (*Folder, error) {
	var folder Folder
	var parentID sql.NullInt64
	var lastAccessed sql.NullTime
	err := scan(
		&folder.ID, &folder.Name, &folder.Path, &parentID, &folder.FileCount,
		&folder.FolderSize, &folder.Score, &folder.CreatedAt, &folder.UpdatedAt,
		&lastAccessed,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		folder.ParentFolderID = &id
	}
	if lastAccessed.Valid {
		folder.LastAccessed = lastAccessed.Time
	}
	return &folder, nil
}

// getFolderByPathWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getFolderByPathWithQuerier(ctx context.Context, q querier, path string) (*Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE path = ?`
	row := q.QueryRowContext(ctx, query, path)
	folder, err := scanFolder(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *SQLiteStore) GetFolderByPath(ctx context.Context, path string) (*Folder, error) {
	return s.getFolderByPathWithQuerier(ctx, s.querier(), path)
}

// searchFoldersByNameWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) searchFoldersByNameWithQuerier(ctx context.Context, q querier, name string, limit int) ([]*Folder, error) {
	if limit <= 0 {
		return []*Folder{}, nil
	}
	query := `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE name LIKE ? COLLATE NOCASE
		ORDER BY score DESC, file_count DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, "%"+name+"%", limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	folders := make([]*Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows.Scan)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

func (s *SQLiteStore) SearchFoldersByName(ctx context.Context, name string, limit int) ([]*Folder, error) {
	return s.searchFoldersByNameWithQuerier(ctx, s.querier(), name, limit)
}

// UpdateFolderScores recomputes every folder's score as the mean score of the
// files under its path, together with file_count and folder_size. Runs in one
// transaction so rankings never observe a half-updated state. Folders with no
// files keep score 0. Idempotent.
func (s *SQLiteStore) UpdateFolderScores(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// The path prefix match uses the folder path plus separator so that
	// /data/report does not collect files under /data/reports.
	query := `
		UPDATE folders SET
			score = COALESCE((
				SELECT ROUND(AVG(f.score), 1) FROM files f
				WHERE f.path LIKE folders.path || '/%'
				   OR f.path LIKE folders.path || '\%'
			), 0),
			file_count = (
				SELECT COUNT(*) FROM files f
				WHERE f.path LIKE folders.path || '/%'
				   OR f.path LIKE folders.path || '\%'
			),
			folder_size = COALESCE((
				SELECT SUM(f.file_size) FROM files f
				WHERE f.path LIKE folders.path || '/%'
				   OR f.path LIKE folders.path || '\%'
			), 0),
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to update folder scores: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) CountFolders(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders").Scan(&count)
	return count, err
}

// Embedding operations

// insertVectorWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) insertVectorWithQuerier(ctx context.Context, q querier, fileID int64, chunkText string, vector []float32) error {
	query := `
		INSERT INTO file_vectors (file_id, chunk_text, vector, dimension, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		fileID, chunkText, serializeVector(vector), len(vector), time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert vector: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertVector(ctx context.Context, fileID int64, chunkText string, vector []float32) error {
	return s.insertVectorWithQuerier(ctx, s.querier(), fileID, chunkText, vector)
}

// Search operations

func (s *SQLiteStore) VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]VectorHit, error) {
	// Implementation moved to separate file for clarity
	return searchVector(ctx, s.db, queryVector, limit)
}

func (s *SQLiteStore) TextSearch(ctx context.Context, query string, limit int) ([]TextHit, error) {
	// Implementation moved to separate file for clarity
	return searchText(ctx, s.db, query, limit)
}

// metadataSearchWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) metadataSearchWithQuerier(ctx context.Context, q querier, filters MetadataFilters, limit int) ([]*File, error) {
	if limit <= 0 {
		return []*File{}, nil
	}

	query := `SELECT ` + fileColumns + ` FROM files WHERE 1=1`
	args := []interface{}{}

	if filters.NameQuery != "" {
		query += " AND name LIKE ? COLLATE NOCASE"
		args = append(args, "%"+filters.NameQuery+"%")
	}
	if filters.Author != "" {
		query += " AND author LIKE ? COLLATE NOCASE"
		args = append(args, "%"+filters.Author+"%")
	}
	if len(filters.Extensions) > 0 {
		query += " AND lower(extension) IN ("
		for i, ext := range filters.Extensions {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, strings.ToLower(strings.TrimPrefix(ext, ".")))
		}
		query += ")"
	}
	if filters.DateFrom != nil {
		query += " AND updated_at >= ?"
		args = append(args, *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query += " AND updated_at <= ?"
		args = append(args, *filters.DateTo)
	}
	if filters.MinSize != nil {
		query += " AND file_size >= ?"
		args = append(args, *filters.MinSize)
	}
	if filters.MaxSize != nil {
		query += " AND file_size <= ?"
		args = append(args, *filters.MaxSize)
	}

	query += " ORDER BY score DESC, updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute metadata search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := make([]*File, 0)
	for rows.Next() {
		file, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) MetadataSearch(ctx context.Context, filters MetadataFilters, limit int) ([]*File, error) {
	return s.metadataSearchWithQuerier(ctx, s.querier(), filters, limit)
}

// Status operations

func (s *SQLiteStore) Status(ctx context.Context) (*Status, error) {
	status := &Status{Backend: "sqlite (" + BuildMode + ")"}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&status.FilesCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders").Scan(&status.FoldersCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_vectors").Scan(&status.VectorsCount); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = math.Round(float64(pageCount*pageSize)/(1024*1024)*100) / 100
	}

	return status, nil
}

// Transaction implementations

// Write operations use the internal helper that uses querier()

func (t *sqliteTx) InsertFile(ctx context.Context, file *File) (int64, error) {
	return t.store.insertFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) FileExists(ctx context.Context, path string) (bool, error) {
	return t.store.fileExistsWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return t.store.getFileByIDWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) GetFilesByIDs(ctx context.Context, fileIDs []int64) ([]*File, error) {
	return t.store.getFilesByIDsWithQuerier(ctx, t.querier(), fileIDs)
}

func (t *sqliteTx) CountFiles(ctx context.Context) (int, error) {
	return t.store.CountFiles(ctx)
}

func (t *sqliteTx) UpsertFolder(ctx context.Context, folder *Folder) (int64, error) {
	return t.store.upsertFolderWithQuerier(ctx, t.querier(), folder)
}

func (t *sqliteTx) GetFolderByPath(ctx context.Context, path string) (*Folder, error) {
	return t.store.getFolderByPathWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) SearchFoldersByName(ctx context.Context, name string, limit int) ([]*Folder, error) {
	return t.store.searchFoldersByNameWithQuerier(ctx, t.querier(), name, limit)
}

func (t *sqliteTx) UpdateFolderScores(ctx context.Context) error {
	return errors.New("folder score update must run outside a transaction")
}

func (t *sqliteTx) CountFolders(ctx context.Context) (int, error) {
	return t.store.CountFolders(ctx)
}

func (t *sqliteTx) InsertVector(ctx context.Context, fileID int64, chunkText string, vector []float32) error {
	return t.store.insertVectorWithQuerier(ctx, t.querier(), fileID, chunkText, vector)
}

func (t *sqliteTx) VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]VectorHit, error) {
	return t.store.VectorSearch(ctx, queryVector, limit)
}

func (t *sqliteTx) TextSearch(ctx context.Context, query string, limit int) ([]TextHit, error) {
	return t.store.TextSearch(ctx, query, limit)
}

func (t *sqliteTx) MetadataSearch(ctx context.Context, filters MetadataFilters, limit int) ([]*File, error) {
	return t.store.metadataSearchWithQuerier(ctx, t.querier(), filters, limit)
}

func (t *sqliteTx) Status(ctx context.Context) (*Status, error) {
	return t.store.Status(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
