// Package interpreter executes a single automation node for a contact and
// advances the graph by scheduling successor nodes.
package interpreter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onsell/automation/pkg/dispatcher"
	"github.com/onsell/automation/pkg/execlog"
	"github.com/onsell/automation/pkg/graph"
	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/otelhelper"
	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/protocol"
	"github.com/onsell/automation/pkg/tasks"
	"github.com/onsell/automation/pkg/template"
)

// Interpreter executes RunNode tasks. Each invocation handles exactly one
// node for one contact; successors are enqueued only after the current node's
// log entry is completed, which is what keeps a single (automation, contact)
// path strictly ordered.
type Interpreter struct {
	graphs     *graph.Store
	logs       *execlog.Service
	dispatch   *dispatcher.Dispatcher
	contacts   protocol.ContactStore
	operations protocol.OperationService
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewInterpreter(
	graphs *graph.Store,
	logs *execlog.Service,
	dispatch *dispatcher.Dispatcher,
	contacts protocol.ContactStore,
	operations protocol.OperationService,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Interpreter {
	return &Interpreter{
		graphs:     graphs,
		logs:       logs,
		dispatch:   dispatch,
		contacts:   contacts,
		operations: operations,
		tracer:     tracer,
		logger:     logger.With("module", "interpreter"),
	}
}

// Execute runs one node. Transient errors propagate so the dispatcher retries
// them; permanent errors and invariant violations fail the entry immediately.
func (i *Interpreter) Execute(ctx context.Context, task *tasks.RunNode) error {
	ctx, span := otelhelper.StartSpan(ctx, i.tracer, "interpreter.execute_node",
		attribute.String(otelhelper.AutomationIDKey, task.AutomationID),
		attribute.String(otelhelper.NodeIDKey, task.NodeID),
		attribute.String(otelhelper.ContactIDKey, task.ContactID),
		attribute.String(otelhelper.LogIDKey, task.LogID),
	)
	defer span.End()

	err := i.execute(ctx, task)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return err
}

func (i *Interpreter) execute(ctx context.Context, task *tasks.RunNode) error {
	automation, err := i.graphs.LoadGraph(ctx, task.AutomationID)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return i.failPermanent(ctx, task, err)
		}

		return fmt.Errorf("failed to load automation graph: %w", err)
	}

	node := automation.NodeByID(task.NodeID)
	if node == nil {
		return i.failPermanent(ctx, task, fmt.Errorf("node %q not found in automation %q", task.NodeID, task.AutomationID))
	}

	_, err = i.logs.MarkRunning(ctx, task.LogID)
	if err != nil {
		return err
	}

	contact, err := i.contacts.FindContact(ctx, task.ContactID)
	if err != nil {
		return i.failRetryable(ctx, task, fmt.Errorf("failed to resolve contact %q: %w", task.ContactID, err))
	}

	var opportunity *models.Opportunity
	if task.OpportunityID != nil {
		opportunity, err = i.contacts.FindOpportunity(ctx, *task.OpportunityID)
		if err != nil {
			return i.failRetryable(ctx, task, fmt.Errorf("failed to resolve opportunity %q: %w", *task.OpportunityID, err))
		}
	}

	if task.Context == nil {
		task.Context = make(map[string]any)
	}

	i.logger.InfoContext(ctx, "Executing node",
		"automation_id", task.AutomationID, "node_id", node.ID,
		"node_type", node.Type, "contact_id", task.ContactID)

	switch node.Type {
	case models.NodeTypeTrigger, models.NodeTypeGroup:
		// Structural nodes: pass straight through to the outgoing edge.
		return i.completeAndAdvance(ctx, task, node, nil, 0)
	case models.NodeTypeAction:
		return i.executeAction(ctx, task, node, contact, opportunity)
	case models.NodeTypeCondition:
		return i.executeCondition(ctx, task, node, contact, opportunity)
	case models.NodeTypeDelay:
		return i.executeDelay(ctx, task, node)
	default:
		return i.failPermanent(ctx, task, fmt.Errorf("unknown node type %q on node %q", node.Type, node.ID))
	}
}

func (i *Interpreter) executeAction(ctx context.Context, task *tasks.RunNode, node *models.Node, contact *models.Contact, opportunity *models.Opportunity) error {
	config, err := ParseActionConfig(node.Config)
	if err != nil {
		return i.failPermanent(ctx, task, err)
	}

	data := evalData(contact, opportunity, task.Context)
	params := template.RenderMap(config.Params, data)

	result, err := i.operations.Execute(ctx, config.Operation, params, contact)
	if err != nil {
		return i.failRetryable(ctx, task, fmt.Errorf("operation %q failed: %w", config.Operation, err))
	}

	// Accumulated outputs thread through the run so later nodes can read them.
	results, _ := task.Context["results"].(map[string]any)
	if results == nil {
		results = make(map[string]any)
	}

	results[node.ID] = result
	task.Context["results"] = results

	return i.completeAndAdvance(ctx, task, node, result, 0)
}

func (i *Interpreter) executeCondition(ctx context.Context, task *tasks.RunNode, node *models.Node, contact *models.Contact, opportunity *models.Opportunity) error {
	config, err := ParseConditionConfig(node.Config)
	if err != nil {
		return i.failPermanent(ctx, task, err)
	}

	actual, err := resolveField(config.Field, contact, opportunity, task.Context)
	if err != nil {
		return i.failPermanent(ctx, task, err)
	}

	matched := config.Operator.Evaluate(actual, config.Value)
	handle := config.Handle(matched)

	edges, err := i.graphs.OutEdges(ctx, task.AutomationID, node.ID)
	if err != nil {
		return i.failRetryable(ctx, task, fmt.Errorf("failed to load out edges: %w", err))
	}

	// First edge matching the produced handle wins; edges are already in
	// insertion order.
	var target *models.Edge

	for _, edge := range edges {
		if edge.SourceHandle == handle {
			target = edge

			break
		}
	}

	if target == nil {
		_, err = i.logs.MarkSkipped(ctx, task.LogID, "no matching branch")
		if err != nil {
			return err
		}

		i.logger.InfoContext(ctx, "Condition matched no branch, run skipped",
			"automation_id", task.AutomationID, "node_id", node.ID, "handle", handle)

		return nil
	}

	result := map[string]any{"matched": matched, "handle": handle}

	_, err = i.logs.MarkCompleted(ctx, task.LogID, result)
	if err != nil {
		return err
	}

	return i.advance(ctx, task, []*models.Edge{target}, 0)
}

func (i *Interpreter) executeDelay(ctx context.Context, task *tasks.RunNode, node *models.Node) error {
	config, err := ParseDelayConfig(node.Config)
	if err != nil {
		return i.failPermanent(ctx, task, err)
	}

	result := map[string]any{"delayed_for": config.Duration.String()}

	// The delay entry completes immediately; the successor stays pending
	// until its task becomes due. Workers never sleep through a delay.
	return i.completeAndAdvance(ctx, task, node, result, config.Duration)
}

// completeAndAdvance marks the current entry completed, then schedules every
// successor, optionally after a delay.
func (i *Interpreter) completeAndAdvance(ctx context.Context, task *tasks.RunNode, node *models.Node, result map[string]any, delay time.Duration) error {
	edges, err := i.graphs.OutEdges(ctx, task.AutomationID, node.ID)
	if err != nil {
		return i.failRetryable(ctx, task, fmt.Errorf("failed to load out edges: %w", err))
	}

	_, err = i.logs.MarkCompleted(ctx, task.LogID, result)
	if err != nil {
		return err
	}

	return i.advance(ctx, task, edges, delay)
}

// advance begins a pending log entry and enqueues a RunNode task per target.
// No outgoing edges means the flow for this contact is complete.
func (i *Interpreter) advance(ctx context.Context, task *tasks.RunNode, edges []*models.Edge, delay time.Duration) error {
	for _, edge := range edges {
		targetID := edge.TargetID

		logID, err := i.logs.Begin(ctx, task.AutomationID, task.ContactID, task.OpportunityID, &targetID, task.Context)
		if err != nil {
			return fmt.Errorf("failed to begin successor log entry: %w", err)
		}

		next := &tasks.RunNode{
			Base:          tasks.NewBase(tasks.TypeRunNode),
			AutomationID:  task.AutomationID,
			NodeID:        targetID,
			ContactID:     task.ContactID,
			OpportunityID: task.OpportunityID,
			LogID:         logID,
			Context:       task.Context,
		}

		err = i.dispatch.Enqueue(ctx, next, delay)
		if err != nil {
			return fmt.Errorf("failed to enqueue successor node %q: %w", targetID, err)
		}
	}

	return nil
}

// failRetryable records the failure on the current entry and spawns a fresh
// pending entry for the retry, so the failed entry never flips backwards.
func (i *Interpreter) failRetryable(ctx context.Context, task *tasks.RunNode, cause error) error {
	_, err := i.logs.MarkFailed(ctx, task.LogID, cause.Error())
	if err != nil {
		i.logger.ErrorContext(ctx, "Failed to record node failure", "log_id", task.LogID, "error", err)
	}

	nodeID := task.NodeID

	logID, err := i.logs.Begin(ctx, task.AutomationID, task.ContactID, task.OpportunityID, &nodeID, task.Context)
	if err != nil {
		i.logger.ErrorContext(ctx, "Failed to begin retry log entry", "node_id", task.NodeID, "error", err)

		return cause
	}

	task.LogID = logID

	return cause
}

// failPermanent records the failure and wraps the cause so the dispatcher
// drops the task without consuming its remaining attempts.
func (i *Interpreter) failPermanent(ctx context.Context, task *tasks.RunNode, cause error) error {
	_, err := i.logs.MarkFailed(ctx, task.LogID, cause.Error())
	if err != nil {
		i.logger.ErrorContext(ctx, "Failed to record node failure", "log_id", task.LogID, "error", err)
	}

	return dispatcher.NewPermanentError(cause)
}

// FailureHook returns the dispatcher hook that finalizes the log entry when a
// RunNode task is permanently dropped, so the audit trail never shows an
// abandoned entry.
func (i *Interpreter) FailureHook() dispatcher.FailureHook {
	return func(ctx context.Context, task tasks.Task, cause error) {
		runNode, ok := task.(*tasks.RunNode)
		if !ok {
			return
		}

		entry, err := i.logs.Get(ctx, runNode.LogID)
		if err != nil {
			i.logger.ErrorContext(ctx, "Failed to load log entry for failed task",
				"log_id", runNode.LogID, "error", err)

			return
		}

		if entry.Status.Terminal() {
			return
		}

		_, err = i.logs.MarkFailed(ctx, runNode.LogID, cause.Error())
		if err != nil {
			i.logger.ErrorContext(ctx, "Failed to finalize failed log entry",
				"log_id", runNode.LogID, "error", err)
		}
	}
}
