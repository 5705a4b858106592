package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyTerm       = errors.New("term cannot be empty")
	ErrMissingLocation = errors.New("location file is required")
	ErrInvalidRank     = errors.New("rank must be >= 1")
	ErrInvalidScore    = errors.New("score must be between 0 and 1")
)
