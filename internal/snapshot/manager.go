// Package snapshot materializes periodic point-in-time exports of all
// collections into the backup slots of both durable adapters. The periodic
// scheduler is owned by the manager and stops with the subsystem: no
// free-running interval survives Close.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dreamlayer/artvault/internal/flatstore"
	"github.com/dreamlayer/artvault/internal/indexedstore"
	"github.com/dreamlayer/artvault/pkg/types"
)

// Gather produces the full merged view of all collections. The coordinator
// supplies its read paths here.
type Gather func(ctx context.Context) (types.Snapshot, error)

// Manager writes snapshots to the flat and indexed backup slots.
type Manager struct {
	kv       flatstore.KV
	indexed  *indexedstore.Store
	gather   Gather
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.WaitGroup
}

// NewManager creates a manager. interval controls the periodic schedule
// started by Start; Create can be called regardless.
func NewManager(kv flatstore.KV, indexed *indexedstore.Store, gather Gather, interval time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{kv: kv, indexed: indexed, gather: gather, interval: interval, log: log}
}

// Create gathers the merged view and writes it to both backup slots. A
// failed slot write is logged and does not fail the snapshot; only a
// gather failure returns nil with an error.
func (m *Manager) Create(ctx context.Context) (*types.Snapshot, error) {
	snap, err := m.gather(ctx)
	if err != nil {
		return nil, fmt.Errorf("gather snapshot: %w", err)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := m.kv.Set(types.KeyBackup, string(raw)); err != nil {
		m.log.Warn("snapshot flat slot write failed", "error", err)
	}
	if err := m.indexed.SaveSnapshot(ctx, snap.Timestamp, raw); err != nil {
		m.log.Warn("snapshot indexed slot write failed", "error", err)
	}

	m.log.Debug("snapshot created",
		"artifacts", len(snap.Artifacts),
		"history", len(snap.HistoryEntries))
	return &snap, nil
}

// Start launches the periodic schedule. The loop stops when ctx is
// cancelled or Close is called. Calling Start twice is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	stop := m.stop

	m.stopped.Add(1)
	go func() {
		defer m.stopped.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if _, err := m.Create(ctx); err != nil {
					m.log.Warn("periodic snapshot failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the periodic schedule and waits for the loop to exit.
// Idempotent; safe to call without a prior Start.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.mu.Unlock()
	m.stopped.Wait()
}

// Latest returns the snapshot in the flat backup slot, preferring it over
// the indexed slot only for symmetry with restore; returns ErrNotFound
// when neither slot holds a parseable snapshot.
func (m *Manager) Latest(ctx context.Context) (*types.Snapshot, error) {
	if raw, ok := m.kv.Get(types.KeyBackup); ok {
		var snap types.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			return &snap, nil
		}
		m.log.Warn("flat backup slot unreadable, trying indexed slot")
	}

	_, raw, err := m.indexed.LoadSnapshot(ctx)
	if err != nil {
		return nil, types.ErrNotFound
	}
	var snap types.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, types.ErrNotFound
	}
	return &snap, nil
}
