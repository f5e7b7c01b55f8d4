// Package board holds the in-memory record set behind the Kanban view and
// the list view. It is the single source of truth for client-side state:
// filtering and aggregation read from it, and the sync coordinator is the
// only writer for stage moves.
package board

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"funnelflow/internal/model"
	"funnelflow/internal/service"
)

// ErrRecordNotFound is returned when an operation names an id the board
// does not hold.
var ErrRecordNotFound = errors.New("board: record not found")

// ReversalToken captures the state needed to undo one optimistic stage move.
// Rollback must restore exactly the stage and timestamp that existed
// immediately before the apply, so both are carried here.
type ReversalToken struct {
	PriorUpdatedAt time.Time
	ID             string
	PriorStage     model.Stage
}

// Manager owns the grouped record collection. All methods are safe for
// concurrent use; persist completions land on goroutines other than the one
// driving the UI.
type Manager struct {
	records  map[string]*model.Record
	byStage  map[model.Stage][]string
	observer service.BoardObserver
	clock    func() time.Time
	mu       sync.RWMutex
}

// NewManager creates an empty board.
func NewManager() *Manager {
	return &Manager{
		records: make(map[string]*model.Record),
		byStage: make(map[model.Stage][]string),
		clock:   time.Now,
	}
}

// SetObserver registers the single observer notified after every structural
// change. Passing nil detaches the current observer.
func (m *Manager) SetObserver(obs service.BoardObserver) {
	m.mu.Lock()
	m.observer = obs
	m.mu.Unlock()
}

// SetClock overrides the time source; tests use this to pin UpdatedAt.
func (m *Manager) SetClock(clock func() time.Time) {
	m.mu.Lock()
	m.clock = clock
	m.mu.Unlock()
}

// Load atomically replaces the whole collection, e.g. after a filtered
// fetch. Column order follows the order of the incoming slice.
func (m *Manager) Load(records []model.Record) {
	m.mu.Lock()
	m.records = make(map[string]*model.Record, len(records))
	m.byStage = make(map[model.Stage][]string)
	for i := range records {
		rec := records[i].Clone()
		m.records[rec.ID] = &rec
		m.byStage[rec.Stage] = append(m.byStage[rec.Stage], rec.ID)
	}
	m.mu.Unlock()
	m.notify()
}

// Insert adds a single newly created record to the board.
func (m *Manager) Insert(rec model.Record) error {
	m.mu.Lock()
	if _, ok := m.records[rec.ID]; ok {
		m.mu.Unlock()
		return fmt.Errorf("board: record %s already present", rec.ID)
	}
	clone := rec.Clone()
	m.records[clone.ID] = &clone
	m.byStage[clone.Stage] = append(m.byStage[clone.Stage], clone.ID)
	m.mu.Unlock()
	m.notify()
	return nil
}

// ApplyOptimistic moves the record to newStage before any persistence
// confirmation and returns the token needed to undo the move.
func (m *Manager) ApplyOptimistic(id string, newStage model.Stage) (ReversalToken, error) {
	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return ReversalToken{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	token := ReversalToken{
		ID:             id,
		PriorStage:     rec.Stage,
		PriorUpdatedAt: rec.UpdatedAt,
	}
	m.moveLocked(rec, newStage)
	rec.UpdatedAt = m.clock()
	m.mu.Unlock()
	m.notify()
	return token, nil
}

// Rollback restores the stage and UpdatedAt captured in the token. It is a
// no-op when the record has since been removed from the board.
func (m *Manager) Rollback(token ReversalToken) {
	m.mu.Lock()
	rec, ok := m.records[token.ID]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.moveLocked(rec, token.PriorStage)
	rec.UpdatedAt = token.PriorUpdatedAt
	m.mu.Unlock()
	m.notify()
}

// Patch shallow-merges edited fields into the record after a successful
// edit round-trip and refreshes UpdatedAt.
func (m *Manager) Patch(id string, patch model.FieldPatch) error {
	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	patch.ApplyTo(rec)
	rec.UpdatedAt = m.clock()
	m.mu.Unlock()
	m.notify()
	return nil
}

// Remove evicts the record from both the index and its stage column.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	m.byStage[rec.Stage] = dropID(m.byStage[rec.Stage], id)
	delete(m.records, id)
	m.mu.Unlock()
	m.notify()
	return nil
}

// Get returns a snapshot of one record.
func (m *Manager) Get(id string) (model.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return model.Record{}, false
	}
	return rec.Clone(), true
}

// All returns snapshots of every record, grouped column order first so the
// result is deterministic: stage columns in map iteration are not ordered,
// so callers needing order use Column.
func (m *Manager) All() []model.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Record, 0, len(m.records))
	for _, ids := range m.byStage {
		for _, id := range ids {
			out = append(out, m.records[id].Clone())
		}
	}
	return out
}

// Column returns snapshots of the records in one stage column, in board
// order.
func (m *Manager) Column(stage model.Stage) []model.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byStage[stage]
	out := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.records[id].Clone())
	}
	return out
}

// Len returns the number of records on the board.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// moveLocked updates stage membership. Caller holds the write lock.
func (m *Manager) moveLocked(rec *model.Record, newStage model.Stage) {
	if rec.Stage == newStage {
		return
	}
	m.byStage[rec.Stage] = dropID(m.byStage[rec.Stage], rec.ID)
	m.byStage[newStage] = append(m.byStage[newStage], rec.ID)
	rec.Stage = newStage
}

// notify runs outside the write lock so observers can read back from the
// board without deadlocking.
func (m *Manager) notify() {
	m.mu.RLock()
	obs := m.observer
	m.mu.RUnlock()
	if obs != nil {
		obs.BoardChanged()
	}
}

func dropID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
