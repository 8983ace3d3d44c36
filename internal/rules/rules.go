// Package rules manages the include and exclude rule sets that scope
// filesystem discovery and importance scoring. Rules live in four tables,
// one per category, and are materialized as case-insensitive sets before a
// scan so traversal never queries the database per file.
package rules

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/filescope/filescope/pkg/types"
)

// Store provides access to the rule tables. It shares the metadata database
// with the storage layer.
type Store struct {
	db *sql.DB
}

// NewStore wraps a database handle that already has the rule tables migrated.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// table and column per rule category
func ruleTable(category types.RuleCategory) (table, column string, err error) {
	switch category {
	case types.RulePath:
		return "path_rules", "path", nil
	case types.RuleFolder:
		return "folder_rules", "folder_name", nil
	case types.RuleExtension:
		return "extension_rules", "extension", nil
	case types.RuleFilename:
		return "filename_rules", "filename", nil
	default:
		return "", "", fmt.Errorf("unknown rule category %q", category)
	}
}

// normalizeValue strips the leading dot from extensions and lowercases
// extension and filename values so matching stays case-insensitive.
func normalizeValue(category types.RuleCategory, value string) string {
	value = strings.TrimSpace(value)
	switch category {
	case types.RuleExtension:
		return strings.ToLower(strings.TrimPrefix(value, "."))
	case types.RuleFilename, types.RuleFolder:
		return strings.ToLower(value)
	default:
		return value
	}
}

// AddRule inserts a rule if an identical (value, type) pair is not already
// present. Idempotent.
func (s *Store) AddRule(ctx context.Context, rule *types.Rule) error {
	rule.Value = normalizeValue(rule.Category, rule.Value)
	if err := rule.Validate(); err != nil {
		return err
	}
	table, column, err := ruleTable(rule.Category)
	if err != nil {
		return err
	}

	var one int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? AND rule_type = ? LIMIT 1", table, column)
	err = s.db.QueryRowContext(ctx, query, rule.Value, string(rule.Type)).Scan(&one)
	if err == nil {
		return nil // already present
	}
	if err != sql.ErrNoRows {
		return err
	}

	now := time.Now()
	switch rule.Category {
	case types.RulePath, types.RuleFolder:
		query = fmt.Sprintf(
			"INSERT INTO %s (%s, rule_type, recursive, created_at) VALUES (?, ?, ?, ?)",
			table, column)
		_, err = s.db.ExecContext(ctx, query, rule.Value, string(rule.Type), rule.Recursive, now)
	default:
		query = fmt.Sprintf(
			"INSERT INTO %s (%s, rule_type, created_at) VALUES (?, ?, ?)",
			table, column)
		_, err = s.db.ExecContext(ctx, query, rule.Value, string(rule.Type), now)
	}
	if err != nil {
		return fmt.Errorf("failed to add %s rule: %w", rule.Category, err)
	}
	rule.CreatedAt = now
	return nil
}

// RemoveRule deletes the rule matching (value, type) exactly. Removing a
// missing rule is not an error.
func (s *Store) RemoveRule(ctx context.Context, category types.RuleCategory, ruleType types.RuleType, value string) error {
	table, column, err := ruleTable(category)
	if err != nil {
		return err
	}
	value = normalizeValue(category, value)

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND rule_type = ?", table, column)
	if _, err := s.db.ExecContext(ctx, query, value, string(ruleType)); err != nil {
		return fmt.Errorf("failed to remove %s rule: %w", category, err)
	}
	return nil
}

// ListRules returns every rule of the given category, both types, ordered by
// creation time.
func (s *Store) ListRules(ctx context.Context, category types.RuleCategory) ([]*types.Rule, error) {
	table, column, err := ruleTable(category)
	if err != nil {
		return nil, err
	}

	hasRecursive := category == types.RulePath || category == types.RuleFolder
	cols := column + ", rule_type, created_at"
	if hasRecursive {
		cols = column + ", rule_type, recursive, created_at"
	}
	query := fmt.Sprintf("SELECT id, %s FROM %s ORDER BY created_at", cols, table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]*types.Rule, 0)
	for rows.Next() {
		rule := &types.Rule{Category: category}
		var ruleType string
		if hasRecursive {
			err = rows.Scan(&rule.ID, &rule.Value, &ruleType, &rule.Recursive, &rule.CreatedAt)
		} else {
			err = rows.Scan(&rule.ID, &rule.Value, &ruleType, &rule.CreatedAt)
		}
		if err != nil {
			return nil, err
		}
		rule.Type = types.RuleType(ruleType)
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (s *Store) ruleValues(ctx context.Context, category types.RuleCategory, ruleType types.RuleType) (types.StringSet, error) {
	table, column, err := ruleTable(category)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE rule_type = ?", column, table)
	rows, err := s.db.QueryContext(ctx, query, string(ruleType))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	set := types.StringSet{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		set.Add(value)
	}
	return set, rows.Err()
}

// IncludedPaths returns root paths that scope rule-based discovery.
func (s *Store) IncludedPaths(ctx context.Context) (types.StringSet, error) {
	return s.ruleValues(ctx, types.RulePath, types.RuleInclude)
}

// ExcludedPaths returns paths pruned from traversal.
func (s *Store) ExcludedPaths(ctx context.Context) (types.StringSet, error) {
	return s.ruleValues(ctx, types.RulePath, types.RuleExclude)
}

// ExcludedFolders returns directory names pruned wherever they appear.
func (s *Store) ExcludedFolders(ctx context.Context) (types.StringSet, error) {
	return s.ruleValues(ctx, types.RuleFolder, types.RuleExclude)
}

// IncludedExtensions returns the extension allowlist. An empty set means no
// extension restriction.
func (s *Store) IncludedExtensions(ctx context.Context) (types.StringSet, error) {
	return s.ruleValues(ctx, types.RuleExtension, types.RuleInclude)
}

// ExcludedExtensions returns extensions rejected during discovery.
func (s *Store) ExcludedExtensions(ctx context.Context) (types.StringSet, error) {
	return s.ruleValues(ctx, types.RuleExtension, types.RuleExclude)
}

// IncludedFilenames returns exact filenames always admitted.
func (s *Store) IncludedFilenames(ctx context.Context) (types.StringSet, error) {
	return s.ruleValues(ctx, types.RuleFilename, types.RuleInclude)
}

// ExcludedFilenames returns exact filenames always rejected.
func (s *Store) ExcludedFilenames(ctx context.Context) (types.StringSet, error) {
	return s.ruleValues(ctx, types.RuleFilename, types.RuleExclude)
}

// RuleSet is a loaded snapshot of every rule table, used by discovery so the
// walk never touches the database.
type RuleSet struct {
	IncludedPaths      types.StringSet
	ExcludedPaths      types.StringSet
	ExcludedFolders    types.StringSet
	IncludedExtensions types.StringSet
	ExcludedExtensions types.StringSet
	IncludedFilenames  types.StringSet
	ExcludedFilenames  types.StringSet
}

// Load reads all rule tables into one snapshot.
func (s *Store) Load(ctx context.Context) (*RuleSet, error) {
	rs := &RuleSet{}
	var err error
	if rs.IncludedPaths, err = s.IncludedPaths(ctx); err != nil {
		return nil, err
	}
	if rs.ExcludedPaths, err = s.ExcludedPaths(ctx); err != nil {
		return nil, err
	}
	if rs.ExcludedFolders, err = s.ExcludedFolders(ctx); err != nil {
		return nil, err
	}
	if rs.IncludedExtensions, err = s.IncludedExtensions(ctx); err != nil {
		return nil, err
	}
	if rs.ExcludedExtensions, err = s.ExcludedExtensions(ctx); err != nil {
		return nil, err
	}
	if rs.IncludedFilenames, err = s.IncludedFilenames(ctx); err != nil {
		return nil, err
	}
	if rs.ExcludedFilenames, err = s.ExcludedFilenames(ctx); err != nil {
		return nil, err
	}
	return rs, nil
}
