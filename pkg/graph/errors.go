package graph

import "strings"

// ValidationError reports a structurally invalid graph. It is rejected
// synchronously at replace time and never enqueued.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid automation graph: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Add(problem string) {
	e.Problems = append(e.Problems, problem)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Problems) > 0
}
