package execlog

import (
	"fmt"

	"github.com/onsell/automation/pkg/models"
)

// InvariantError reports an illegal execution-status transition. It indicates
// a bug in the interpreter or corrupted graph data, not an environmental
// failure, so it is fatal and never retried.
type InvariantError struct {
	LogID string
	From  models.ExecutionStatus
	To    models.ExecutionStatus
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("illegal execution log transition %s -> %s on entry %s", e.From, e.To, e.LogID)
}

// Permanent marks the error as non-retriable for the dispatcher.
func (e *InvariantError) Permanent() bool { return true }
