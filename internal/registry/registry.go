// Package registry implements the package-registry state machine on top of
// a raw object store: catalog listing, version-conflict policy, the
// checksum and encryption pipelines, lock/unlock bookkeeping, and
// backup/restore indexing.
//
// Every operation is a single linear sequence of network round trips with
// no retries and no mid-operation cancellation handling; process
// termination between round trips leaves state partially applied (for
// example an uploaded artifact whose control-document update never ran).
// The shared control document is the only cross-process state and all
// mutations of it go through an ETag compare-and-swap cycle.
package registry

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"beepkg/internal/store"
)

// defaultRegistryName seeds the control document on first creation.
const defaultRegistryName = "beepkg registry"

// Manager executes registry operations against one bucket.
type Manager struct {
	store  store.Client
	logger *log.Logger
	now    func() time.Time
}

// New creates a Manager. A nil logger discards diagnostics.
func New(client store.Client, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		store:  client,
		logger: logger,
		now:    time.Now,
	}
}

// TestConnection checks that the endpoint is reachable and the bucket is
// listable. The returned message describes the healthy state; any failure
// comes back as an error.
func (m *Manager) TestConnection(ctx context.Context) (string, error) {
	exists, err := m.store.BucketExists(ctx)
	if err != nil {
		return "", fmt.Errorf("cannot reach object store: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("bucket does not exist")
	}

	objects, err := m.store.ListObjects(ctx)
	if err != nil {
		return "", fmt.Errorf("bucket is not listable: %w", err)
	}

	return fmt.Sprintf("connected, bucket is reachable (%d objects)", len(objects)), nil
}
