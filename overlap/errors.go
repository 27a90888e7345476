package overlap

import (
	"errors"
	"fmt"
)

// Sentinel errors for the overlap package.
var (
	// ErrLimitExceeded is returned when the quadratic-form integration needs
	// more terms than the configured limit. Callers treat it as a recoverable
	// non-convergence.
	ErrLimitExceeded = errors.New("overlap: integration term limit exceeded")

	// ErrBadQFParams indicates negative degrees of freedom or noncentrality,
	// or a degenerate form with no variance at all.
	ErrBadQFParams = errors.New("overlap: invalid quadratic form parameters")

	// ErrBadInput indicates mixture parameters whose shapes disagree or whose
	// proportions are not positive.
	ErrBadInput = errors.New("overlap: invalid mixture parameters")

	// ErrBadScale indicates a non-positive or non-finite covariance scale.
	ErrBadScale = errors.New("overlap: scale must be positive and finite")

	// ErrBadPair indicates a cluster pair out of range or with i == j.
	ErrBadPair = errors.New("overlap: invalid cluster pair")
)

func overlapErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
