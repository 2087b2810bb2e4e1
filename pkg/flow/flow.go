// Package flow owns the entry points of automation runs: manual starts and
// event-triggered starts.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onsell/automation/pkg/dispatcher"
	"github.com/onsell/automation/pkg/execlog"
	"github.com/onsell/automation/pkg/graph"
	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/tasks"
)

// Orchestrator seeds the first node(s) of a run. Traversal from there on is
// driven by the interpreter, one task per node.
type Orchestrator struct {
	graphs   *graph.Store
	logs     *execlog.Service
	dispatch *dispatcher.Dispatcher
	logger   *slog.Logger
}

func NewOrchestrator(
	graphs *graph.Store,
	logs *execlog.Service,
	dispatch *dispatcher.Dispatcher,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		graphs:   graphs,
		logs:     logs,
		dispatch: dispatch,
		logger:   logger.With("module", "flow"),
	}
}

// StartManually begins a run of one automation for one contact: a run-level
// summary entry, then one pending entry plus one RunNode task per entry node.
func (o *Orchestrator) StartManually(ctx context.Context, automationID, contactID string, opportunityID *string, execContext map[string]any) error {
	automation, err := o.graphs.LoadGraph(ctx, automationID)
	if err != nil {
		return fmt.Errorf("failed to load automation %q: %w", automationID, err)
	}

	entryNodes := automation.EntryNodes()
	if len(entryNodes) == 0 {
		return fmt.Errorf("automation %q has no entry node", automationID)
	}

	if execContext == nil {
		execContext = make(map[string]any)
	}

	runLogID, err := o.logs.Begin(ctx, automationID, contactID, opportunityID, nil, execContext)
	if err != nil {
		return fmt.Errorf("failed to create run summary entry: %w", err)
	}

	entryIDs := make([]string, 0, len(entryNodes))
	for _, node := range entryNodes {
		entryIDs = append(entryIDs, node.ID)
	}

	// The summary entry walks the same monotonic ladder as node entries.
	_, err = o.logs.MarkRunning(ctx, runLogID)
	if err != nil {
		return fmt.Errorf("failed to start run summary entry: %w", err)
	}

	_, err = o.logs.MarkCompleted(ctx, runLogID, map[string]any{"entry_nodes": entryIDs})
	if err != nil {
		return fmt.Errorf("failed to finalize run summary entry: %w", err)
	}

	for _, node := range entryNodes {
		nodeID := node.ID

		logID, err := o.logs.Begin(ctx, automationID, contactID, opportunityID, &nodeID, execContext)
		if err != nil {
			return fmt.Errorf("failed to begin entry node log: %w", err)
		}

		task := &tasks.RunNode{
			Base:          tasks.NewBase(tasks.TypeRunNode),
			AutomationID:  automationID,
			NodeID:        nodeID,
			ContactID:     contactID,
			OpportunityID: opportunityID,
			LogID:         logID,
			Context:       execContext,
		}

		err = o.dispatch.Enqueue(ctx, task, 0)
		if err != nil {
			return fmt.Errorf("failed to enqueue entry node %q: %w", nodeID, err)
		}
	}

	o.logger.InfoContext(ctx, "Started automation run",
		"automation_id", automationID, "contact_id", contactID, "entry_nodes", len(entryNodes))

	return nil
}

// StartFromEvent starts every active automation whose trigger type matches.
// Matching automations run independently; a failure starting one does not
// stop the others.
func (o *Orchestrator) StartFromEvent(ctx context.Context, triggerType models.TriggerType, payload map[string]any) error {
	automations, err := o.graphs.ListActiveByTrigger(ctx, triggerType)
	if err != nil {
		return fmt.Errorf("failed to list automations for trigger %q: %w", triggerType, err)
	}

	contactID, ok := payload["contact_id"].(string)
	if !ok || contactID == "" {
		return fmt.Errorf("trigger payload for %q has no contact_id", triggerType)
	}

	var opportunityID *string
	if id, ok := payload["opportunity_id"].(string); ok && id != "" {
		opportunityID = &id
	}

	execContext := map[string]any{"trigger": payload}

	var failed int

	for _, automation := range automations {
		err := o.StartManually(ctx, automation.ID, contactID, opportunityID, execContext)
		if err != nil {
			failed++

			o.logger.ErrorContext(ctx, "Failed to start automation from event",
				"automation_id", automation.ID, "trigger_type", triggerType, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d automations failed to start for trigger %q", failed, len(automations), triggerType)
	}

	return nil
}
