// Package cmd provides common initialization helpers for the automation
// binaries.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/onsell/automation/pkg/channels/gochannel"
	"github.com/onsell/automation/pkg/channels/kafka"
	"github.com/onsell/automation/pkg/taskbus"
)

// NewTaskBus creates the task bus for a service. Kafka is the production
// transport; gochannel only serves single-process setups.
//
// nolint:ireturn // Binaries program against the bus contract
func NewTaskBus(provider, serviceName string, logger *slog.Logger) taskbus.TaskBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return taskbus.NewWatermillTaskBus(pub, sub)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return taskbus.NewWatermillTaskBus(pub, sub)
	default:
		panic("Unsupported task bus provider: " + provider)
	}
}
