package source

import (
	"context"
	"fmt"
)

// New creates a source based on the given source type.
// Supported types: "memory", "file", "postgres".
func New(ctx context.Context, sourceType, dsn, flagsPath string) (Source, error) {
	switch sourceType {
	case "memory":
		return NewMemorySource(), nil
	case "file":
		if flagsPath == "" {
			return nil, fmt.Errorf("file source requires a flags path")
		}
		return NewFileSource(flagsPath), nil
	case "postgres":
		pool, err := NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		return NewPostgresSource(pool), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
