// Package taskbus provides the durable queue transport for engine tasks.
package taskbus

import (
	"context"

	"github.com/onsell/automation/pkg/tasks"
)

// Publisher pushes tasks onto the queue.
type Publisher interface {
	Publish(ctx context.Context, key string, task tasks.Task) error
}

// Subscriber delivers tasks to registered handlers.
type Subscriber interface {
	Handle(taskType tasks.Type, handler Handler) error
	Subscribe(ctx context.Context) error
}

// Handler processes one decoded task. A non-nil error nacks the message.
type Handler func(ctx context.Context, task tasks.Task) error

// TaskBus is the full bus contract used by dispatchers and workers.
type TaskBus interface {
	Publisher
	Subscriber
	Close() error
	GenerateID() string
}
