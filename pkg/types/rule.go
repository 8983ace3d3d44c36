package types

import (
	"errors"
	"strings"
	"time"
)

// RuleCategory identifies which attribute of a file a rule matches against.
type RuleCategory string

const (
	RulePath      RuleCategory = "path"
	RuleFolder    RuleCategory = "folder"
	RuleExtension RuleCategory = "extension"
	RuleFilename  RuleCategory = "filename"
)

// RuleType determines whether a rule admits or rejects matching files.
type RuleType string

const (
	RuleInclude RuleType = "include"
	RuleExclude RuleType = "exclude"
)

// Rule is a single include or exclude directive supplied by the user. Rules
// are stored in per-category tables and loaded as sets before a scan.
type Rule struct {
	ID        int64
	Category  RuleCategory
	Type      RuleType
	Value     string
	Recursive bool
	CreatedAt time.Time
}

// Validate checks the rule for well-formed category, type, and value.
func (r *Rule) Validate() error {
	switch r.Category {
	case RulePath, RuleFolder, RuleExtension, RuleFilename:
	default:
		return errors.New("invalid rule category")
	}
	switch r.Type {
	case RuleInclude, RuleExclude:
	default:
		return errors.New("invalid rule type")
	}
	if strings.TrimSpace(r.Value) == "" {
		return errors.New("rule value cannot be empty")
	}
	return nil
}

// StringSet matches values case-insensitively while preserving the case
// they were added with. Paths must keep their original case so they stay
// usable on case-sensitive filesystems.
type StringSet map[string]string // lowercased -> as added

// NewStringSet builds a set from values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts a value. A later add with different case wins.
func (s StringSet) Add(v string) {
	s[strings.ToLower(v)] = v
}

// Contains reports case-insensitive membership.
func (s StringSet) Contains(v string) bool {
	_, ok := s[strings.ToLower(v)]
	return ok
}

// Empty reports whether the set has no members.
func (s StringSet) Empty() bool { return len(s) == 0 }

// Values returns the members as added, in unspecified order.
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
