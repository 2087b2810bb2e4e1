package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/persistence/memory"
	"github.com/onsell/automation/pkg/persistence/postgres"
)

// NewPersistence creates the durable store for a database URL. PostgreSQL is
// the production store; "memory://" keeps everything in-process for local
// experiments.
//
// nolint:ireturn // Binaries program against the persistence contract
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgres.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err))
		}

		return store
	case strings.HasPrefix(databaseURL, "memory://"):
		return memory.NewPersistence()
	default:
		panic("Unsupported database URL: " + databaseURL)
	}
}
