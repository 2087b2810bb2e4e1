// Package graph is the engine's view of automation graphs: load, traversal
// and validated atomic replacement of nodes and edges.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

// Store wraps the automation repository with graph validation. It stays
// type-agnostic about node configuration beyond the per-type schemas; the
// interpreter owns the semantics.
type Store struct {
	automations persistence.AutomationRepository
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewStore(automations persistence.AutomationRepository, logger *slog.Logger) *Store {
	return &Store{
		automations: automations,
		validate:    validator.New(),
		logger:      logger.With("module", "graph"),
	}
}

// LoadGraph returns the automation with its full node and edge snapshot.
func (s *Store) LoadGraph(ctx context.Context, automationID string) (*models.Automation, error) {
	return s.automations.GetByID(ctx, automationID)
}

// ListActiveByTrigger returns active automations matching a trigger type.
// Deactivated automations never start from events.
func (s *Store) ListActiveByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Automation, error) {
	return s.automations.ListActiveByTrigger(ctx, triggerType)
}

// OutEdges returns a node's outgoing edges ordered by insertion order.
func (s *Store) OutEdges(ctx context.Context, automationID, nodeID string) ([]*models.Edge, error) {
	return s.automations.OutEdges(ctx, automationID, nodeID)
}

// ReplaceGraph validates the new graph and atomically swaps it in. A
// ValidationError is returned synchronously; nothing is enqueued or persisted
// on rejection.
func (s *Store) ReplaceGraph(ctx context.Context, automationID string, nodes []*models.Node, edges []*models.Edge) error {
	err := s.ValidateGraph(nodes, edges)
	if err != nil {
		return err
	}

	err = s.automations.ReplaceGraph(ctx, automationID, nodes, edges)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Replaced automation graph",
		"automation_id", automationID, "nodes", len(nodes), "edges", len(edges))

	return nil
}

// ValidateGraph checks structural integrity: known node types, valid per-type
// configuration, unique node ids, and edges referencing only nodes present in
// the accompanying set.
func (s *Store) ValidateGraph(nodes []*models.Node, edges []*models.Edge) error {
	verr := &ValidationError{}
	nodeIDs := make(map[string]bool, len(nodes))

	for _, node := range nodes {
		err := s.validate.Struct(node)
		if err != nil {
			verr.Add(fmt.Sprintf("node %q: %v", node.ID, err))

			continue
		}

		if !node.Type.IsValid() {
			verr.Add(fmt.Sprintf("node %q: unknown type %q", node.ID, node.Type))

			continue
		}

		if nodeIDs[node.ID] {
			verr.Add(fmt.Sprintf("node %q: duplicate id", node.ID))

			continue
		}

		nodeIDs[node.ID] = true

		err = validateNodeConfig(node)
		if err != nil {
			verr.Add(fmt.Sprintf("node %q: %v", node.ID, err))
		}
	}

	for _, edge := range edges {
		err := s.validate.Struct(edge)
		if err != nil {
			verr.Add(fmt.Sprintf("edge %q: %v", edge.ID, err))

			continue
		}

		if !nodeIDs[edge.SourceID] {
			verr.Add(fmt.Sprintf("edge %q: source node %q not in graph", edge.ID, edge.SourceID))
		}

		if !nodeIDs[edge.TargetID] {
			verr.Add(fmt.Sprintf("edge %q: target node %q not in graph", edge.ID, edge.TargetID))
		}
	}

	if verr.HasErrors() {
		return verr
	}

	return nil
}

func validateNodeConfig(node *models.Node) error {
	schema, ok := nodeConfigSchemas[node.Type]
	if !ok {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(configJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			return fmt.Errorf("invalid config: %s", desc.String())
		}
	}

	return nil
}

// nodeConfigSchemas holds the per-type JSON schema applied at graph-replace
// time. Trigger and group nodes carry no execution configuration.
var nodeConfigSchemas = map[models.NodeType]string{
	models.NodeTypeAction: `{
		"type": "object",
		"required": ["operation"],
		"properties": {
			"operation": {"type": "string", "minLength": 1},
			"params": {"type": "object"}
		}
	}`,
	models.NodeTypeCondition: `{
		"type": "object",
		"required": ["field", "operator"],
		"properties": {
			"field": {"type": "string", "minLength": 1},
			"operator": {"type": "string", "enum": [
				"equals", "not_equals", "contains",
				"greater_than", "less_than", "is_empty", "is_not_empty"
			]},
			"value": {"type": "string"},
			"true_handle": {"type": "string"},
			"false_handle": {"type": "string"}
		}
	}`,
	models.NodeTypeDelay: `{
		"type": "object",
		"required": ["duration"],
		"properties": {
			"duration": {"type": ["string", "integer"]}
		}
	}`,
}
