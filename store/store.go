// Package store keeps imposter snapshots between CLI invocations.
package store

import (
	"context"
	"errors"
	"fmt"

	"mb-route-sync/routes"
)

// ErrSnapshotNotFound is returned by Load when no snapshot exists for a port.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted form of an imposter.
type Snapshot struct {
	Descriptor routes.Descriptor   `json:"descriptor" yaml:"descriptor"`
	Routes     []routes.RouteEntry `json:"routes" yaml:"routes"`
}

// Store persists snapshots keyed by port.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Load(ctx context.Context, port int) (Snapshot, error)
	Delete(ctx context.Context, port int) error
}

func notFound(port int) error {
	return fmt.Errorf("port %d: %w", port, ErrSnapshotNotFound)
}
