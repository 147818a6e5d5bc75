// Package cmd wires shared infrastructure for the propgen binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/persistence/file"
	"github.com/easeworks/propgen/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the database URL
// scheme: postgres:// and postgresql:// use PostgreSQL, anything else falls
// back to the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
