// Package imposter is the client-facing surface: an Imposter owns one route
// table and the descriptor of the remote imposter that mirrors it.
package imposter

import (
	"context"
	"fmt"
	"log"

	"mb-route-sync/models"
	"mb-route-sync/routes"
	"mb-route-sync/wire"
)

// Syncer pushes a table to the remote side. *synchronizer.Synchronizer
// implements it.
type Syncer interface {
	Create(ctx context.Context, table *routes.Table, d routes.Descriptor) ([]byte, error)
	Replace(ctx context.Context, table *routes.Table, d routes.Descriptor) ([]byte, error)
}

// Imposter is a local model of one Mountebank imposter.
type Imposter struct {
	descriptor routes.Descriptor
	table      *routes.Table
	syncer     Syncer
}

// New validates the descriptor and returns an Imposter with an empty table.
func New(port int, protocol, name string, syncer Syncer) (*Imposter, error) {
	d, err := routes.NewDescriptor(port, protocol, name)
	if err != nil {
		return nil, err
	}
	return &Imposter{descriptor: d, table: routes.NewTable(), syncer: syncer}, nil
}

// Restore rebuilds an Imposter from a descriptor and previously saved
// entries. Nothing is sent to the remote side.
func Restore(d routes.Descriptor, entries []routes.RouteEntry, syncer Syncer) (*Imposter, error) {
	imp, err := New(d.Port, d.Protocol, d.Name, syncer)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := imp.AddRoute(e.Path, e.Method, e.Response); err != nil {
			return nil, fmt.Errorf("failed to restore %s %s on port %d: %w", e.Method, e.Path, d.Port, err)
		}
	}
	return imp, nil
}

// Descriptor returns the remote address key and protocol.
func (i *Imposter) Descriptor() routes.Descriptor { return i.descriptor }

// AddRoute registers or overwrites the response for (path, method) locally.
// Call Create or one of the Update methods to push it.
func (i *Imposter) AddRoute(path, method string, resp routes.Response) error {
	return i.table.Add(path, method, resp)
}

// Create publishes the imposter for the first time.
func (i *Imposter) Create(ctx context.Context) ([]byte, error) {
	log.Printf("DEBUG: Creating imposter %s with %d routes", i.descriptor, i.table.Len())
	return i.syncer.Create(ctx, i.table, i.descriptor)
}

// UpdateStatusCode changes one route's status code and replaces the remote
// imposter.
func (i *Imposter) UpdateStatusCode(ctx context.Context, path, method string, code int) ([]byte, error) {
	return i.update(ctx, path, method, routes.StatusCode(code))
}

// UpdateHeaders replaces one route's headers and the remote imposter.
func (i *Imposter) UpdateHeaders(ctx context.Context, path, method string, headers map[string]string) ([]byte, error) {
	return i.update(ctx, path, method, routes.Headers(headers))
}

// UpdateBody changes one route's body and replaces the remote imposter.
func (i *Imposter) UpdateBody(ctx context.Context, path, method, body string) ([]byte, error) {
	return i.update(ctx, path, method, routes.Body(body))
}

func (i *Imposter) update(ctx context.Context, path, method string, u routes.FieldUpdate) ([]byte, error) {
	if err := i.table.SetField(path, method, u); err != nil {
		log.Printf("ERROR: Failed to update %s of %s %s on %s: %v", u.Field(), method, path, i.descriptor, err)
		return nil, err
	}
	return i.syncer.Replace(ctx, i.table, i.descriptor)
}

// Inspect returns a copy of the local table. It never touches the network.
func (i *Imposter) Inspect() map[string]map[string]routes.RouteEntry {
	return i.table.Snapshot()
}

// Entries returns the local routes ordered by path, then method.
func (i *Imposter) Entries() []routes.RouteEntry {
	return i.table.Entries()
}

// Payload returns the body Create would post.
func (i *Imposter) Payload() models.Imposter {
	return wire.ToRemotePayload(i.table, i.descriptor)
}
