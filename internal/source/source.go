// Package source provides the configuration-source backends that supply
// flag definitions to the engine. A source loads flag documents; the server
// validates them and publishes a fresh snapshot. Sources never take part in
// evaluation itself.
package source

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/variantd/variantd/internal/flags"
)

// ErrNotFound is returned when a flag does not exist in the source.
var ErrNotFound = errors.New("flag not found")

// ErrReadOnly is returned by sources that do not support writes.
var ErrReadOnly = errors.New("source is read-only")

// Source defines the interface for flag persistence operations.
// Implementations must be thread-safe and support concurrent access.
type Source interface {
	// GetAllFlags retrieves all flag definitions.
	// Returns an empty slice if no flags are found.
	GetAllFlags(ctx context.Context) ([]flags.Flag, error)

	// GetFlag retrieves a single flag by id. Returns ErrNotFound if absent.
	GetFlag(ctx context.Context, id string) (*flags.Flag, error)

	// UpsertFlag creates or updates a flag definition.
	UpsertFlag(ctx context.Context, flag flags.Flag) error

	// DeleteFlag removes a flag by id. Deleting a missing flag is not an
	// error (idempotent).
	DeleteFlag(ctx context.Context, id string) error

	// Close releases any resources held by the source.
	Close() error
}

// LoadValidated fetches all flags from the source and filters out any that
// fail validation. An invalid flag is fatal to that flag only: it is logged
// and dropped while the rest of the collection loads normally.
func LoadValidated(ctx context.Context, src Source, log zerolog.Logger) ([]flags.Flag, error) {
	list, err := src.GetAllFlags(ctx)
	if err != nil {
		return nil, err
	}

	valid := make([]flags.Flag, 0, len(list))
	for _, f := range list {
		if err := flags.Validate(f); err != nil {
			log.Error().Err(err).Str("flag", f.ID).Msg("rejecting invalid flag")
			continue
		}
		valid = append(valid, f)
	}
	return valid, nil
}
