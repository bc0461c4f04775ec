package jobs

import "context"

// Store persists the full job snapshot so records survive a restart.
type Store interface {
	// Load reads the durable snapshot. A missing snapshot yields an empty
	// mapping, not an error.
	Load(ctx context.Context) (map[string]*Record, error)
	// Save replaces the durable snapshot with the given mapping.
	Save(ctx context.Context, records map[string]*Record) error
}
