package types

import "fmt"

// ResultType distinguishes file hits from folder hits.
type ResultType string

const (
	ResultFile   ResultType = "file"
	ResultFolder ResultType = "folder"
)

// MatchKind names the search prong(s) that produced a result.
type MatchKind string

const (
	MatchVector   MatchKind = "vector"
	MatchText     MatchKind = "text"
	MatchMetadata MatchKind = "metadata"
	MatchFolder   MatchKind = "folder"
	MatchHybrid   MatchKind = "hybrid"
)

// MatchInfo carries the kind of match and the per-prong scores that fed it.
// VectorScore and TextScore are only meaningful for the kinds that set them;
// a hybrid match carries both.
type MatchInfo struct {
	Kind        MatchKind
	VectorScore float64
	TextScore   float64
}

// SearchResult is a single ranked hit returned by the search orchestrator.
type SearchResult struct {
	ID             string // "file-<rowid>" or "folder-<rowid>"
	ResultType     ResultType
	Title          string
	Path           string
	RelevanceScore float64
	Match          MatchInfo
	Snippet        string
}

// FileResultID formats the stable identifier for a file row.
func FileResultID(id int64) string { return fmt.Sprintf("file-%d", id) }

// FolderResultID formats the stable identifier for a folder row.
func FolderResultID(id int64) string { return fmt.Sprintf("folder-%d", id) }

// Validate checks invariants the orchestrator guarantees on every result.
func (sr *SearchResult) Validate() error {
	if sr.ID == "" {
		return ErrInvalidResultID
	}
	if sr.ResultType != ResultFile && sr.ResultType != ResultFolder {
		return ErrInvalidResultType
	}
	if sr.RelevanceScore < 0 {
		return ErrInvalidRelevanceScore
	}
	if sr.Path == "" {
		return ErrMissingPath
	}
	return nil
}
