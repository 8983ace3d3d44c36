// Package walker discovers files and folders on disk according to the loaded
// rule set. Two traversal modes exist: rule-scoped discovery walks only the
// included roots and applies the full rule set, while all-roots discovery
// walks every mounted root with exclude rules only, collecting metadata.
package walker

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/filescope/filescope/internal/rules"
	"github.com/filescope/filescope/pkg/types"
)

// progressEvery is the file count cadence for progress callbacks.
const progressEvery = 1000

// FoundFile is a discovered file with its content eligibility decision.
type FoundFile struct {
	Path             string
	ContentProcessed bool
}

// FolderFunc receives each directory observed during discovery,
// including directories that are subsequently pruned.
type FolderFunc func(path string) error

// Walker traverses the filesystem according to a rule snapshot.
type Walker struct {
	rules    *rules.RuleSet
	maxDepth int // 0 means unbounded
	logger   *slog.Logger
	progress types.ProgressFunc
	onFolder FolderFunc
}

// Option configures a Walker.
type Option func(*Walker)

// WithMaxDepth bounds traversal depth relative to each root.
func WithMaxDepth(depth int) Option {
	return func(w *Walker) { w.maxDepth = depth }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) { w.logger = logger }
}

// WithProgress sets the progress callback.
func WithProgress(fn types.ProgressFunc) Option {
	return func(w *Walker) { w.progress = fn }
}

// WithFolderFunc sets the callback invoked for every directory seen
// during discovery.
func WithFolderFunc(fn FolderFunc) Option {
	return func(w *Walker) { w.onFolder = fn }
}

// New creates a Walker over the given rule snapshot.
func New(rs *rules.RuleSet, opts ...Option) *Walker {
	w := &Walker{
		rules:  rs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WalkRuleScoped walks the included-path roots applying the full rule set.
// Missing roots are skipped without error. Every returned file is content
// eligible unless an exclusion matched between root registration and the
// walk; symlinked directories are never followed, which also guards against
// traversal loops.
func (w *Walker) WalkRuleScoped(ctx context.Context) ([]FoundFile, error) {
	found := make([]FoundFile, 0)
	for _, root := range sortedRoots(w.rules.IncludedPaths) {
		if _, err := os.Stat(root); err != nil {
			w.logger.Warn("skipping unavailable root", "root", root, "error", err)
			continue
		}
		if err := w.walkRoot(ctx, root, true, &found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// WalkAllRoots walks every discovered filesystem root applying only exclude
// rules, with no extension filter. Directory rows are reported through the
// folder callback before any subtree pruning, so excluded folders still get
// recorded. All returned files are metadata only.
func (w *Walker) WalkAllRoots(ctx context.Context) ([]FoundFile, error) {
	found := make([]FoundFile, 0)
	for _, root := range DiscoverRoots() {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := w.walkRoot(ctx, root, false, &found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (w *Walker) walkRoot(ctx context.Context, root string, ruleScoped bool, found *[]FoundFile) error {
	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entries are skipped, not fatal
			w.logger.Debug("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			// Recorded before any pruning so excluded folders still
			// get a row.
			if w.onFolder != nil && path != root {
				if folderErr := w.onFolder(path); folderErr != nil {
					w.logger.Warn("failed to record folder", "path", path, "error", folderErr)
				}
			}
			if path == root {
				return nil
			}
			if w.maxDepth > 0 {
				depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
				if depth >= w.maxDepth {
					return filepath.SkipDir
				}
			}
			if w.dirExcluded(path, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		eligible, contentProcessed := w.fileEligible(path, ruleScoped)
		if !eligible {
			return nil
		}

		*found = append(*found, FoundFile{Path: path, ContentProcessed: contentProcessed})
		if len(*found)%progressEvery == 0 {
			w.progress.Report(len(*found), 0, path, types.StageScanning)
		}
		return nil
	})
	return err
}

// dirExcluded prunes dot-directories, excluded folder names, and excluded
// path prefixes.
func (w *Walker) dirExcluded(path, name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if w.rules.ExcludedFolders.Contains(name) {
		return true
	}
	return w.pathPrefixExcluded(path)
}

func (w *Walker) pathPrefixExcluded(path string) bool {
	for excluded := range w.rules.ExcludedPaths {
		if excluded != "" && strings.HasPrefix(strings.ToLower(path), excluded) {
			return true
		}
	}
	return false
}

// fileEligible applies the per-file rules. In rule-scoped mode the
// extension allowlist gates content processing; the filename include list
// bypasses the extension filter, and exclusions always win.
func (w *Walker) fileEligible(path string, ruleScoped bool) (eligible, contentProcessed bool) {
	name := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")

	if w.rules.ExcludedFilenames.Contains(name) {
		return false, false
	}
	if w.pathPrefixExcluded(path) {
		return false, false
	}

	if !ruleScoped {
		return true, false
	}

	if w.rules.ExcludedExtensions.Contains(ext) {
		return false, false
	}
	if w.rules.IncludedFilenames.Contains(name) {
		return true, true
	}
	if !w.rules.IncludedExtensions.Empty() && !w.rules.IncludedExtensions.Contains(ext) {
		return false, false
	}
	return true, true
}

func sortedRoots(set types.StringSet) []string {
	roots := set.Values()
	// Deterministic order keeps progress output stable between runs
	sort.Strings(roots)
	return roots
}
