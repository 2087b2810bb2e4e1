package dispatcher

import (
	"context"
	"log/slog"

	"github.com/onsell/automation/pkg/taskbus"
	"github.com/onsell/automation/pkg/tasks"
	"github.com/onsell/automation/pkg/tenant"
)

// FailureHook is invoked once when a task is permanently failed, after
// retries are exhausted or on a permanent error. RunNode uses it to mark the
// log entry failed so the audit trail never shows an abandoned running entry.
type FailureHook func(ctx context.Context, task tasks.Task, cause error)

// Executor runs task handlers with tenant restoration and retry accounting.
// Handler errors re-enqueue the task with the fixed backoff until the attempt
// limit; permanent errors skip straight to the failure hook.
type Executor struct {
	dispatcher *Dispatcher
	tenants    tenant.Provider
	logger     *slog.Logger
	hooks      map[tasks.Type]FailureHook
}

func NewExecutor(dispatcher *Dispatcher, tenants tenant.Provider, logger *slog.Logger) *Executor {
	return &Executor{
		dispatcher: dispatcher,
		tenants:    tenants,
		logger:     logger.With("module", "executor"),
		hooks:      make(map[tasks.Type]FailureHook),
	}
}

// OnPermanentFailure registers the hook called when a task of the given type
// is dropped for good.
func (e *Executor) OnPermanentFailure(taskType tasks.Type, hook FailureHook) {
	e.hooks[taskType] = hook
}

// Register binds a handler for a task type on the bus, wrapped with the
// executor's tenant and retry semantics.
func (e *Executor) Register(bus taskbus.Subscriber, taskType tasks.Type, handler taskbus.Handler) error {
	return bus.Handle(taskType, e.wrap(handler))
}

func (e *Executor) wrap(handler taskbus.Handler) taskbus.Handler {
	return func(ctx context.Context, task tasks.Task) error {
		meta := task.Meta()
		meta.Attempt++

		taskCtx := ctx
		if meta.TenantID != "" {
			taskCtx = e.tenants.Activate(ctx, meta.TenantID)
		}

		err := handler(taskCtx, task)
		if err == nil {
			return nil
		}

		if IsPermanent(err) {
			e.fail(taskCtx, task, err)

			return nil
		}

		if meta.Attempt >= MaxAttempts {
			e.fail(taskCtx, task, err)

			return nil
		}

		e.logger.WarnContext(taskCtx, "Task failed, retrying",
			"task_id", meta.ID, "task_type", meta.Type,
			"attempt", meta.Attempt, "error", err)

		retryErr := e.dispatcher.Enqueue(taskCtx, task, RetryBackoff)
		if retryErr != nil {
			// Could not persist the retry; nack so the bus redelivers.
			return retryErr
		}

		return nil
	}
}

func (e *Executor) fail(ctx context.Context, task tasks.Task, cause error) {
	meta := task.Meta()

	e.logger.ErrorContext(ctx, "Task permanently failed",
		"task_id", meta.ID, "task_type", meta.Type,
		"attempt", meta.Attempt, "error", cause)

	hook, ok := e.hooks[task.GetType()]
	if ok {
		hook(ctx, task, cause)
	}
}
