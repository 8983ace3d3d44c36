package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/filescope/filescope/internal/chunker"
	"github.com/filescope/filescope/internal/config"
	"github.com/filescope/filescope/internal/embedder"
	"github.com/filescope/filescope/internal/extractor"
	"github.com/filescope/filescope/internal/rules"
	"github.com/filescope/filescope/internal/scoring"
	"github.com/filescope/filescope/internal/storage"
	"github.com/filescope/filescope/internal/walker"
	"github.com/filescope/filescope/pkg/types"
)

// ErrScanInProgress is returned when a scan is requested while another is
// running.
var ErrScanInProgress = errors.New("a scan is already in progress")

// persistBatchSize is the number of files committed per transaction.
const persistBatchSize = 1000

// Mode selects the discovery strategy.
type Mode string

const (
	// ModeRules walks only the included-path roots, applying the full
	// rule set.
	ModeRules Mode = "rules"

	// ModeAllRoots walks every filesystem root, applying only the
	// exclusion rules. Files found this way are indexed metadata-only.
	ModeAllRoots Mode = "all_roots"
)

// Stats summarizes a completed scan.
type Stats struct {
	FilesDiscovered int
	FilesIndexed    int
	FilesSkipped    int // already indexed
	FilesFailed     int // extraction failed, indexed metadata-only
	FoldersIndexed  int
	UnitsEmbedded   int
	Duration        time.Duration
	Errors          []string
}

// Scanner coordinates the indexing pipeline:
// discover -> extract -> score -> chunk -> embed -> persist -> score folders.
type Scanner struct {
	store  storage.Store
	rules  *rules.Store
	emb    embedder.Embedder
	cfg    *config.Config
	logger *slog.Logger
	lock   ScanLock
}

// New creates a Scanner.
func New(store storage.Store, ruleStore *rules.Store, emb embedder.Embedder, cfg *config.Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		store:  store,
		rules:  ruleStore,
		emb:    emb,
		cfg:    cfg,
		logger: logger,
	}
}

// Scanning reports whether a scan is currently running.
func (s *Scanner) Scanning() bool {
	return s.lock.Held()
}

// Scan runs the full pipeline. Only one scan may run at a time; concurrent
// calls fail fast with ErrScanInProgress. Extraction failures degrade
// individual files to metadata-only indexing, but an embedding failure
// aborts the scan since a partially embedded index silently corrupts
// search quality.
func (s *Scanner) Scan(ctx context.Context, mode Mode, progress types.ProgressFunc) (*Stats, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrScanInProgress
	}
	defer s.lock.Release()

	start := time.Now()
	stats := &Stats{}

	ruleSet, err := s.rules.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	// Discovery
	folderPaths := make(map[string]bool)
	opts := []walker.Option{
		walker.WithLogger(s.logger),
		walker.WithProgress(progress),
		walker.WithFolderFunc(func(path string) error {
			folderPaths[path] = true
			return nil
		}),
	}
	if s.cfg.MaxDepth > 0 {
		opts = append(opts, walker.WithMaxDepth(s.cfg.MaxDepth))
	}
	w := walker.New(ruleSet, opts...)

	var found []walker.FoundFile
	switch mode {
	case ModeRules:
		found, err = w.WalkRuleScoped(ctx)
	case ModeAllRoots:
		found, err = w.WalkAllRoots(ctx)
	default:
		return nil, fmt.Errorf("unknown scan mode %q", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	stats.FilesDiscovered = len(found)
	s.logger.Info("discovery complete", "mode", mode, "files", len(found))

	// Drop files that are already indexed.
	fresh := make([]walker.FoundFile, 0, len(found))
	for _, f := range found {
		exists, err := s.store.FileExists(ctx, f.Path)
		if err != nil {
			return nil, fmt.Errorf("check existing file: %w", err)
		}
		if exists {
			stats.FilesSkipped++
			continue
		}
		fresh = append(fresh, f)
	}

	// Extraction and scoring
	files, err := s.extractAll(ctx, fresh, ruleSet, stats, progress)
	if err != nil {
		return nil, err
	}

	// Chunking
	inputs := make([]chunker.FileText, len(files))
	for i, f := range files {
		inputs[i] = chunker.FileText{Path: f.Path, Content: f.Content}
	}
	units, perFile := chunker.Build(inputs)

	// Embedding, fatal on failure
	batcher, err := embedder.NewBatcher(s.emb, s.cfg.EmbedWorkers, s.cfg.EmbedBatch)
	if err != nil {
		return nil, err
	}
	defer batcher.Close()

	vectors, err := batcher.EmbedAll(ctx, units, func(done, total int) {
		progress.Report(done, total, "", types.StageEmbedding)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	stats.UnitsEmbedded = len(vectors)

	// Persistence
	if err := s.persist(ctx, files, units, perFile, vectors, stats, progress); err != nil {
		return nil, err
	}

	// Folder rows: directories reported during discovery plus every
	// ancestor of an indexed file, so parent linkage reaches the roots.
	for _, f := range files {
		for dir := filepath.Dir(f.Path); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			if folderPaths[dir] {
				break
			}
			folderPaths[dir] = true
		}
	}
	if err := s.upsertFolders(ctx, folderPaths, stats); err != nil {
		return nil, err
	}

	progress.Report(0, 1, "", types.StageScoringFolders)
	if err := s.store.UpdateFolderScores(ctx); err != nil {
		return nil, fmt.Errorf("score folders: %w", err)
	}

	stats.Duration = time.Since(start)
	progress.Report(stats.FilesIndexed, stats.FilesIndexed, "", types.StageComplete)
	s.logger.Info("scan complete",
		"indexed", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"folders", stats.FoldersIndexed,
		"duration", stats.Duration)
	return stats, nil
}

// extractAll reads and scores the fresh files concurrently. A failed
// extraction logs, records the error, and indexes the file metadata-only.
func (s *Scanner) extractAll(ctx context.Context, fresh []walker.FoundFile, ruleSet *rules.RuleSet, stats *Stats, progress types.ProgressFunc) ([]*storage.File, error) {
	ext := extractor.New(extractor.Config{
		MaxTextBytes: s.cfg.MaxTextFileBytes,
		MaxPDFPages:  s.cfg.MaxPDFPages,
		MaxCSVRows:   s.cfg.MaxCSVRows,
		MaxChars:     s.cfg.MaxContentChars,
	}, s.logger)

	now := time.Now()
	files := make([]*storage.File, len(fresh))

	var mu sync.Mutex
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range fresh {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			info, err := os.Stat(f.Path)
			if err != nil {
				// Vanished between discovery and extraction
				s.logger.Debug("skipping vanished file", "path", f.Path, "error", err)
				return nil
			}

			content, category, exErr := ext.Extract(gctx, f.Path, f.ContentProcessed)
			if exErr != nil {
				s.logger.Warn("content extraction failed", "path", f.Path, "error", exErr)
				mu.Lock()
				stats.FilesFailed++
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", f.Path, exErr))
				mu.Unlock()
				content = ""
			}

			name := filepath.Base(f.Path)
			files[i] = &storage.File{
				Name:             name,
				Extension:        strings.TrimPrefix(filepath.Ext(name), "."),
				Path:             f.Path,
				Content:          content,
				FileSize:         info.Size(),
				Category:         category,
				ContentProcessed: f.ContentProcessed && exErr == nil,
				Score:            scoring.FileScore(f.Path, info.Size(), info.ModTime(), ruleSet.IncludedPaths, now),
				CreatedAt:        info.ModTime(),
				UpdatedAt:        info.ModTime(),
				LastAccessed:     now,
			}

			mu.Lock()
			done++
			progress.Report(done, len(fresh), f.Path, types.StageScanning)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}

	// Compact out vanished files.
	out := files[:0]
	for _, f := range files {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

// persist writes files and their vectors in batched transactions.
func (s *Scanner) persist(ctx context.Context, files []*storage.File, units []string, perFile [][]int, vectors [][]float32, stats *Stats, progress types.ProgressFunc) error {
	for start := 0; start < len(files); start += persistBatchSize {
		end := start + persistBatchSize
		if end > len(files) {
			end = len(files)
		}

		tx, err := s.store.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		for i := start; i < end; i++ {
			file := files[i]
			fileID, err := tx.InsertFile(ctx, file)
			if err != nil {
				if errors.Is(err, storage.ErrAlreadyExists) {
					stats.FilesSkipped++
					continue
				}
				_ = tx.Rollback()
				return fmt.Errorf("insert %s: %w", file.Path, err)
			}

			for _, unitIdx := range perFile[i] {
				if err := tx.InsertVector(ctx, fileID, units[unitIdx], vectors[unitIdx]); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("insert vector for %s: %w", file.Path, err)
				}
			}
			stats.FilesIndexed++
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		progress.Report(end, len(files), "", types.StageStoring)
	}
	return nil
}

// upsertFolders writes folder rows parent-first so children can link to
// their parent's id.
func (s *Scanner) upsertFolders(ctx context.Context, folderPaths map[string]bool, stats *Stats) error {
	paths := make([]string, 0, len(folderPaths))
	for p := range folderPaths {
		paths = append(paths, p)
	}
	// Lexicographic order puts every parent before its children.
	sort.Strings(paths)

	now := time.Now()
	idByPath := make(map[string]int64, len(paths))
	for _, p := range paths {
		folder := &storage.Folder{
			Name:         filepath.Base(p),
			Path:         p,
			CreatedAt:    now,
			UpdatedAt:    now,
			LastAccessed: now,
		}
		if parentID, ok := idByPath[filepath.Dir(p)]; ok {
			folder.ParentFolderID = &parentID
		}

		id, err := s.store.UpsertFolder(ctx, folder)
		if err != nil {
			return fmt.Errorf("upsert folder %s: %w", p, err)
		}
		idByPath[p] = id
		stats.FoldersIndexed++
	}
	return nil
}
