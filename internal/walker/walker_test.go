package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filescope/filescope/internal/rules"
	"github.com/filescope/filescope/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func ruleSet(root string) *rules.RuleSet {
	return &rules.RuleSet{
		IncludedPaths:      types.NewStringSet(root),
		ExcludedPaths:      types.StringSet{},
		ExcludedFolders:    types.StringSet{},
		IncludedExtensions: types.StringSet{},
		ExcludedExtensions: types.StringSet{},
		IncludedFilenames:  types.StringSet{},
		ExcludedFilenames:  types.StringSet{},
	}
}

func paths(found []FoundFile) []string {
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.Path
	}
	return out
}

func TestWalkRuleScoped_Basic(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.md", "alpha")
	b := writeFile(t, dir, "sub/b.txt", "beta")

	w := New(ruleSet(dir))
	found, err := w.WalkRuleScoped(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{a, b}, paths(found))
	for _, f := range found {
		assert.True(t, f.ContentProcessed)
	}
}

func TestWalkRuleScoped_ExtensionAllowlist(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.md", "alpha")
	writeFile(t, dir, "b.txt", "beta")

	rs := ruleSet(dir)
	rs.IncludedExtensions = types.NewStringSet("MD")

	found, err := New(rs).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{a}, paths(found))
}

func TestWalkRuleScoped_FilenameOverridesExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "notes")
	special := writeFile(t, dir, "Makefile", "all:")

	rs := ruleSet(dir)
	rs.IncludedExtensions = types.NewStringSet("md")
	rs.IncludedFilenames = types.NewStringSet("makefile")

	found, err := New(rs).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{special}, paths(found))
}

func TestWalkRuleScoped_ExcludedFolderPruned(t *testing.T) {
	dir := t.TempDir()
	keep := writeFile(t, dir, "keep.md", "keep")
	writeFile(t, dir, "node_modules/lib.md", "skip")

	rs := ruleSet(dir)
	rs.ExcludedFolders = types.NewStringSet("NODE_MODULES")

	found, err := New(rs).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, paths(found))
}

func TestWalkRuleScoped_DotFolderPruned(t *testing.T) {
	dir := t.TempDir()
	keep := writeFile(t, dir, "keep.md", "keep")
	writeFile(t, dir, ".git/config.md", "skip")

	found, err := New(ruleSet(dir)).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, paths(found))
}

func TestWalkRuleScoped_ExcludedFilename(t *testing.T) {
	dir := t.TempDir()
	keep := writeFile(t, dir, "keep.md", "keep")
	writeFile(t, dir, "Thumbs.db", "skip")

	rs := ruleSet(dir)
	rs.ExcludedFilenames = types.NewStringSet("thumbs.db")

	found, err := New(rs).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, paths(found))
}

func TestWalkRuleScoped_ExcludedExtension(t *testing.T) {
	dir := t.TempDir()
	keep := writeFile(t, dir, "keep.md", "keep")
	writeFile(t, dir, "app.exe", "skip")

	rs := ruleSet(dir)
	rs.ExcludedExtensions = types.NewStringSet("exe")

	found, err := New(rs).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, paths(found))
}

func TestWalkRuleScoped_MissingRootSkipped(t *testing.T) {
	dir := t.TempDir()
	keep := writeFile(t, dir, "keep.md", "keep")

	rs := ruleSet(dir)
	rs.IncludedPaths.Add(filepath.Join(dir, "does-not-exist"))

	found, err := New(rs).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, paths(found))
}

func TestWalkRuleScoped_MaxDepth(t *testing.T) {
	dir := t.TempDir()
	shallow := writeFile(t, dir, "shallow.md", "s")
	writeFile(t, dir, "a/b/deep.md", "d")

	found, err := New(ruleSet(dir), WithMaxDepth(1)).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{shallow}, paths(found))
}

func TestWalkRuleScoped_SymlinkNotFollowed(t *testing.T) {
	dir := t.TempDir()
	keep := writeFile(t, dir, "real/keep.md", "keep")
	// A symlink loop back to the parent must not recurse
	err := os.Symlink(dir, filepath.Join(dir, "real", "loop"))
	if err != nil {
		t.Skip("symlinks not supported on this platform")
	}

	found, err := New(ruleSet(dir)).WalkRuleScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, paths(found))
}

func TestWalkRuleScoped_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ruleSet(dir)).WalkRuleScoped(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkAllRoots_FoldersRecordedBeforePrune(t *testing.T) {
	// Exercise the folder callback through walkRoot directly so the test
	// stays inside the temp directory instead of the real filesystem roots.
	dir := t.TempDir()
	writeFile(t, dir, "node_modules/lib.js", "skip")
	keep := writeFile(t, dir, "docs/readme.md", "keep")

	rs := ruleSet(dir)
	rs.ExcludedFolders = types.NewStringSet("node_modules")

	var folders []string
	w := New(rs, WithFolderFunc(func(path string) error {
		folders = append(folders, path)
		return nil
	}))

	var found []FoundFile
	require.NoError(t, w.walkRoot(context.Background(), dir, false, &found))

	// The excluded folder is still recorded even though its subtree is pruned
	assert.Contains(t, folders, filepath.Join(dir, "node_modules"))
	assert.Contains(t, folders, filepath.Join(dir, "docs"))
	assert.Equal(t, []string{keep}, paths(found))
	assert.False(t, found[0].ContentProcessed)
}
