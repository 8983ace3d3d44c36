package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filescope/filescope/internal/storage"
	"github.com/filescope/filescope/pkg/types"
)

func setupRuleStore(t *testing.T) *Store {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db.DB())
}

func TestAddRule_Idempotent(t *testing.T) {
	store := setupRuleStore(t)
	ctx := context.Background()

	rule := &types.Rule{
		Category:  types.RulePath,
		Type:      types.RuleInclude,
		Value:     "/data/projects",
		Recursive: true,
	}
	require.NoError(t, store.AddRule(ctx, rule))
	require.NoError(t, store.AddRule(ctx, rule)) // second add is a no-op

	listed, err := store.ListRules(ctx, types.RulePath)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestAddRule_NormalizesExtension(t *testing.T) {
	store := setupRuleStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddRule(ctx, &types.Rule{
		Category: types.RuleExtension,
		Type:     types.RuleInclude,
		Value:    ".PDF",
	}))

	exts, err := store.IncludedExtensions(ctx)
	require.NoError(t, err)
	assert.True(t, exts.Contains("pdf"))
	assert.True(t, exts.Contains(".pdf") == false)
}

func TestAddRule_Invalid(t *testing.T) {
	store := setupRuleStore(t)
	ctx := context.Background()

	err := store.AddRule(ctx, &types.Rule{
		Category: "size",
		Type:     types.RuleInclude,
		Value:    "big",
	})
	assert.Error(t, err)

	err = store.AddRule(ctx, &types.Rule{
		Category: types.RulePath,
		Type:     types.RuleInclude,
		Value:    "   ",
	})
	assert.Error(t, err)
}

func TestRemoveRule(t *testing.T) {
	store := setupRuleStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddRule(ctx, &types.Rule{
		Category: types.RuleFolder,
		Type:     types.RuleExclude,
		Value:    "node_modules",
	}))

	require.NoError(t, store.RemoveRule(ctx, types.RuleFolder, types.RuleExclude, "NODE_MODULES"))

	folders, err := store.ExcludedFolders(ctx)
	require.NoError(t, err)
	assert.True(t, folders.Empty())

	// Removing again is not an error
	require.NoError(t, store.RemoveRule(ctx, types.RuleFolder, types.RuleExclude, "node_modules"))
}

func TestRemoveRule_ExactTypeMatch(t *testing.T) {
	store := setupRuleStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddRule(ctx, &types.Rule{
		Category: types.RuleExtension, Type: types.RuleInclude, Value: "md",
	}))
	require.NoError(t, store.AddRule(ctx, &types.Rule{
		Category: types.RuleExtension, Type: types.RuleExclude, Value: "md",
	}))

	// Removing the exclude must leave the include untouched
	require.NoError(t, store.RemoveRule(ctx, types.RuleExtension, types.RuleExclude, "md"))

	included, err := store.IncludedExtensions(ctx)
	require.NoError(t, err)
	assert.True(t, included.Contains("md"))

	excluded, err := store.ExcludedExtensions(ctx)
	require.NoError(t, err)
	assert.True(t, excluded.Empty())
}

func TestLoad(t *testing.T) {
	store := setupRuleStore(t)
	ctx := context.Background()

	seed := []*types.Rule{
		{Category: types.RulePath, Type: types.RuleInclude, Value: "/data", Recursive: true},
		{Category: types.RulePath, Type: types.RuleExclude, Value: "/data/tmp"},
		{Category: types.RuleFolder, Type: types.RuleExclude, Value: "node_modules"},
		{Category: types.RuleExtension, Type: types.RuleInclude, Value: "md"},
		{Category: types.RuleExtension, Type: types.RuleExclude, Value: "exe"},
		{Category: types.RuleFilename, Type: types.RuleInclude, Value: "readme.md"},
		{Category: types.RuleFilename, Type: types.RuleExclude, Value: "thumbs.db"},
	}
	for _, rule := range seed {
		require.NoError(t, store.AddRule(ctx, rule))
	}

	rs, err := store.Load(ctx)
	require.NoError(t, err)

	assert.True(t, rs.IncludedPaths.Contains("/data"))
	assert.True(t, rs.ExcludedPaths.Contains("/data/tmp"))
	assert.True(t, rs.ExcludedFolders.Contains("Node_Modules"))
	assert.True(t, rs.IncludedExtensions.Contains("MD"))
	assert.True(t, rs.ExcludedExtensions.Contains("exe"))
	assert.True(t, rs.IncludedFilenames.Contains("README.md"))
	assert.True(t, rs.ExcludedFilenames.Contains("thumbs.db"))
}
