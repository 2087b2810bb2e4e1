package models

// NodeType represents the executable type of a graph node.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"   // Conceptual entry marker, pass-through
	NodeTypeAction    NodeType = "action"    // Side-effecting operation via a collaborator
	NodeTypeCondition NodeType = "condition" // Predicate producing a branch handle
	NodeTypeDelay     NodeType = "delay"     // Re-enqueues successors with a future due time
	NodeTypeGroup     NodeType = "group"     // Visual container, no runtime semantics
)

// ValidNodeTypes lists every node type accepted on graph replace.
var ValidNodeTypes = []NodeType{
	NodeTypeTrigger,
	NodeTypeAction,
	NodeTypeCondition,
	NodeTypeDelay,
	NodeTypeGroup,
}

// IsValid reports whether t is a known node type.
func (t NodeType) IsValid() bool {
	for _, valid := range ValidNodeTypes {
		if t == valid {
			return true
		}
	}

	return false
}

// Node is a single typed step in an automation graph. The ID is a stable
// string unique within the automation; edges reference it directly, so it is
// never a surrogate numeric key. Config is opaque to the graph layer and
// interpreted only by the node interpreter.
type Node struct {
	ID           string         `json:"id"            validate:"required"`
	AutomationID string         `json:"automation_id"`
	Type         NodeType       `json:"type"          validate:"required"`
	Name         string         `json:"name"`
	Config       map[string]any `json:"config,omitempty"`
	PositionX    int            `json:"position_x"`
	PositionY    int            `json:"position_y"`
}

// Edge is a directed connection between two nodes of one automation.
// SourceHandle names the output port it hangs off (a condition node's "true"
// or "false" branch); Position preserves insertion order, which is the
// tie-break when several edges share a handle.
type Edge struct {
	ID           string         `json:"id"            validate:"required"`
	AutomationID string         `json:"automation_id"`
	SourceID     string         `json:"source_id"     validate:"required"`
	TargetID     string         `json:"target_id"     validate:"required"`
	SourceHandle string         `json:"source_handle,omitempty"`
	TargetHandle string         `json:"target_handle,omitempty"`
	Label        string         `json:"label,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
	Position     int            `json:"position"`
}
