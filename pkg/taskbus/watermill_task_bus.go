package taskbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/onsell/automation/pkg/tasks"
)

// WatermillTaskBus carries tasks over any watermill transport (kafka in
// production, gochannel in tests). The task type travels as message metadata
// so payloads decode into their concrete structs.
type WatermillTaskBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[tasks.Type]Handler
}

// NewWatermillTaskBus wraps a watermill publisher/subscriber pair.
func NewWatermillTaskBus(pub message.Publisher, sub message.Subscriber) *WatermillTaskBus {
	return &WatermillTaskBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[tasks.Type]Handler),
	}
}

func (b *WatermillTaskBus) GenerateID() string {
	return watermill.NewULID()
}

func (b *WatermillTaskBus) Publish(ctx context.Context, key string, task tasks.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+b.GenerateID(), payload)
	msg.Metadata.Set(tasks.KeyMetadataKey, key)
	msg.Metadata.Set(tasks.TypeMetadataKey, string(task.GetType()))

	return b.publisher.Publish(tasks.Topic, msg)
}

func (b *WatermillTaskBus) Handle(taskType tasks.Type, handler Handler) error {
	b.subscriptions[taskType] = handler

	return nil
}

func (b *WatermillTaskBus) Subscribe(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, tasks.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			taskType := tasks.Type(msg.Metadata.Get(tasks.TypeMetadataKey))

			handler, exists := b.subscriptions[taskType]
			if !exists {
				msg.Ack()

				continue
			}

			task, err := tasks.Decode(taskType, msg.Payload)
			if err != nil {
				msg.Nack()

				continue
			}

			err = handler(ctx, task)
			if err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (b *WatermillTaskBus) Close() error {
	err := b.publisher.Close()
	if err != nil {
		return err
	}

	return b.subscriber.Close()
}
