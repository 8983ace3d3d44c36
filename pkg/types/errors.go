package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidResultID       = errors.New("invalid result ID")
	ErrInvalidResultType     = errors.New("invalid result type")
	ErrInvalidRelevanceScore = errors.New("relevance score must be >= 0")
	ErrMissingPath           = errors.New("path is required")
)
