package sandbox

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns all live containers. Creation and teardown take the write
// lock; invokes run under the read lock since container state is immutable
// after the snapshot.
type Manager struct {
	mu         sync.RWMutex
	containers map[string]*Container
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{containers: make(map[string]*Container)}
}

// Create allocates a container for ownerID over the directory at realRoot.
// It fails closed with RootNotFoundError before any id is allocated when
// the root does not exist or is not a directory.
func (m *Manager) Create(ownerID, realRoot string) (*Container, error) {
	info, err := os.Stat(realRoot)
	if err != nil || !info.IsDir() {
		return nil, &RootNotFoundError{Path: realRoot}
	}

	c := &Container{
		id:        uuid.NewString(),
		owner:     ownerID,
		root:      realRoot,
		createdAt: time.Now(),
	}
	if err := c.snapshot(); err != nil {
		return nil, fmt.Errorf("create container for %s: %w", ownerID, err)
	}

	m.mu.Lock()
	m.containers[c.id] = c
	m.mu.Unlock()

	slog.Debug("container created",
		"id", c.id,
		"owner", ownerID,
		"root", realRoot,
		"files", len(c.files),
		"revisions", len(c.revisions))
	return c, nil
}

// Invoke runs one allow-listed operation against a container. Operations
// outside the whitelist fail with OperationNotPermittedError; operations
// against a torn-down id fail with ContainerClosedError.
func (m *Manager) Invoke(id, operation string, args ...string) (string, error) {
	// Held for the whole call: operations are pure in-memory lookups, and
	// holding the read lock keeps teardown from releasing the snapshot
	// mid-operation.
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.containers[id]
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	if c.closed {
		return "", &ContainerClosedError{ID: id}
	}

	switch operation {
	case OpListLog:
		return c.listLog(), nil
	case OpReadLog:
		return c.readLog(), nil
	case OpShowRevision:
		target := "HEAD"
		if len(args) > 0 {
			target = args[0]
		}
		return c.showRevision(target)
	default:
		return "", &OperationNotPermittedError{Operation: operation}
	}
}

// Teardown releases a container's snapshot. Subsequent invokes against the
// id fail with ContainerClosedError.
func (m *Manager) Teardown(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.containers[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	c.closed = true
	c.files = nil
	c.revisions = nil

	slog.Debug("container torn down", "id", id, "owner", c.owner)
	return nil
}

// Len returns the number of containers the manager tracks, including
// closed ones awaiting collection.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.containers)
}
