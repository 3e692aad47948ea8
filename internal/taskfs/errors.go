package taskfs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoTestData means the task has neither a generation script nor
	// pre-supplied input files.
	ErrNoTestData = errors.New("no generator and no testcases found")

	// ErrMissingValidator means a generated task has no validator.
	ErrMissingValidator = errors.New("no validator found")

	// ErrMissingSolution means a generated task has no official solution
	// to produce expected outputs with.
	ErrMissingSolution = errors.New("no official solution found")
)

// AmbiguousCheckerError reports more than one checker candidate.
type AmbiguousCheckerError struct {
	Candidates []string
}

func (e *AmbiguousCheckerError) Error() string {
	return fmt.Sprintf("ambiguous checker: %s", strings.Join(e.Candidates, ", "))
}

// UnknownSolutionError reports a requested solution that matched nothing
// under sol/.
type UnknownSolutionError struct {
	Name string
}

func (e *UnknownSolutionError) Error() string {
	return fmt.Sprintf("solution %s not found", e.Name)
}
