// Package engine implements the sync coordinator: it gates stage moves
// through the validator, applies them optimistically to the board, persists
// them through the record store, and reconciles on failure.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"funnelflow/internal/board"
	"funnelflow/internal/common"
	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
	"funnelflow/internal/service"
)

// TransitionState tracks one in-flight stage move through its lifecycle.
type TransitionState int

const (
	// StateIdle means no transition is in flight for the record.
	StateIdle TransitionState = iota
	// StateValidating means the move is being checked against the catalog.
	StateValidating
	// StateOptimisticallyApplied means the board already shows the new stage.
	StateOptimisticallyApplied
	// StatePersisting means the store call is outstanding.
	StatePersisting
)

// Config holds tunables for the coordinator.
type Config struct {
	Retry service.RetryOptions
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Coordinator orchestrates board mutations against the record store.
// Transitions for the same record id are serialized: a second request while
// one is in flight is rejected, never interleaved, so a rollback token
// always restores the stage that preceded the current optimistic apply.
type Coordinator struct {
	board       *board.Manager
	store       service.RecordStore
	notifier    service.Notifier
	validator   StageValidator
	inFlight    map[string]TransitionState
	pendingLoad []model.Record
	hasPending  bool
	retry       service.RetryOptions
	mu          sync.Mutex
}

// New creates a coordinator with the default configuration.
func New(b *board.Manager, store service.RecordStore, notifier service.Notifier, validator StageValidator) *Coordinator {
	return NewWithConfig(b, store, notifier, validator, DefaultConfig())
}

// NewWithConfig creates a coordinator with custom configuration.
func NewWithConfig(b *board.Manager, store service.RecordStore, notifier service.Notifier, validator StageValidator, cfg Config) *Coordinator {
	if validator == nil {
		validator = pipeline.NewValidator(pipeline.PolicyPermissive)
	}
	return &Coordinator{
		board:     b,
		store:     store,
		notifier:  notifier,
		validator: validator,
		retry:     cfg.Retry,
		inFlight:  make(map[string]TransitionState),
	}
}

// SetNotifier swaps the notifier, e.g. when the TUI takes over the screen
// and toasts must land on its status line instead of stdout.
func (c *Coordinator) SetNotifier(n service.Notifier) {
	c.mu.Lock()
	c.notifier = n
	c.mu.Unlock()
}

// State returns the transition state for a record id.
func (c *Coordinator) State(id string) TransitionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[id]
}

// Busy reports whether any transition is in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight) > 0
}

// MoveRecord handles one drag or button-initiated stage move end to end:
// validate, optimistic apply, persist, and commit or roll back.
func (c *Coordinator) MoveRecord(ctx context.Context, id string, target model.Stage) error {
	c.mu.Lock()
	if _, busy := c.inFlight[id]; busy {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", common.ErrTransitionInFlight, id)
	}
	c.inFlight[id] = StateValidating
	c.mu.Unlock()

	rec, ok := c.board.Get(id)
	if !ok {
		c.finish(id)
		return fmt.Errorf("%w: %s", board.ErrRecordNotFound, id)
	}

	decision := c.validator.Validate(rec.Kind, rec.Stage, target)
	switch decision.Outcome {
	case pipeline.AcceptedNoop:
		// Dropping a card back onto its own column: no store call, no toast.
		c.finish(id)
		return nil
	case pipeline.Rejected:
		c.finish(id)
		c.notify(service.NoticeInfo, decision.Reason)
		return fmt.Errorf("%w: %s", common.ErrInvalidTransition, decision.Reason)
	}

	token, err := c.board.ApplyOptimistic(id, target)
	if err != nil {
		c.finish(id)
		return err
	}
	c.setState(id, StateOptimisticallyApplied)

	c.setState(id, StatePersisting)
	persistErr := common.WithRetry(ctx, func() error {
		return c.store.UpdateStatus(ctx, id, target)
	}, c.retry)

	if persistErr != nil {
		c.board.Rollback(token)
		c.finish(id)
		slog.Error("Status update failed, rolled back",
			"record_id", id,
			"from", token.PriorStage,
			"to", target,
			"error", persistErr)
		c.notify(service.NoticeError,
			fmt.Sprintf("Could not update status of %q; the card was moved back", rec.Title))
		return fmt.Errorf("update status of %s: %w", id, persistErr)
	}

	c.finish(id)
	slog.Info("Status updated",
		"record_id", id,
		"from", token.PriorStage,
		"to", target)
	return nil
}

// CreateRecord persists a new record and, on success, adds it to the board.
// Missing id, stage, and timestamps are filled in before validation.
func (c *Coordinator) CreateRecord(ctx context.Context, rec model.Record) (model.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Stage == "" {
		rec.Stage = pipeline.InitialStage(rec.Kind)
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if err := rec.Validate(); err != nil {
		return model.Record{}, err
	}

	createErr := common.WithRetry(ctx, func() error {
		_, err := c.store.Create(ctx, rec)
		return err
	}, c.retry)
	if createErr != nil {
		c.notify(service.NoticeError, fmt.Sprintf("Could not create %q", rec.Title))
		return model.Record{}, fmt.Errorf("create record: %w", createErr)
	}

	if err := c.board.Insert(rec); err != nil {
		return model.Record{}, err
	}
	c.notify(service.NoticeSuccess, fmt.Sprintf("%q created", rec.Title))
	return rec, nil
}

// EditRecord persists a field edit and patches the board only after the
// round-trip succeeds, so a failed save never leaves stale fields visible.
func (c *Coordinator) EditRecord(ctx context.Context, id string, patch model.FieldPatch) error {
	if patch.Empty() {
		return nil
	}
	rec, ok := c.board.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", board.ErrRecordNotFound, id)
	}

	saveErr := common.WithRetry(ctx, func() error {
		return c.store.UpdateFields(ctx, id, patch)
	}, c.retry)
	if saveErr != nil {
		c.notify(service.NoticeError, fmt.Sprintf("Could not save changes to %q", rec.Title))
		return fmt.Errorf("update fields of %s: %w", id, saveErr)
	}

	return c.board.Patch(id, patch)
}

// DeleteRecord removes the record from the store and then evicts it from
// the board.
func (c *Coordinator) DeleteRecord(ctx context.Context, id string) error {
	rec, ok := c.board.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", board.ErrRecordNotFound, id)
	}

	deleteErr := common.WithRetry(ctx, func() error {
		return c.store.Delete(ctx, id)
	}, c.retry)
	if deleteErr != nil {
		c.notify(service.NoticeError, fmt.Sprintf("Could not delete %q", rec.Title))
		return fmt.Errorf("delete %s: %w", id, deleteErr)
	}

	return c.board.Remove(id)
}

// Refresh queries the store and replaces the board contents. A refresh
// landing while any transition is in flight is deferred and applied,
// last write wins, once the board is quiet again.
func (c *Coordinator) Refresh(ctx context.Context, pred service.Predicate) error {
	records, err := c.store.Query(ctx, pred)
	if err != nil {
		c.notify(service.NoticeError, "Could not refresh the board")
		return fmt.Errorf("query records: %w", err)
	}

	c.mu.Lock()
	if len(c.inFlight) > 0 {
		c.pendingLoad = records
		c.hasPending = true
		c.mu.Unlock()
		slog.Debug("Refresh deferred until in-flight transitions settle", "records", len(records))
		return nil
	}
	c.mu.Unlock()

	c.board.Load(records)
	return nil
}

func (c *Coordinator) setState(id string, state TransitionState) {
	c.mu.Lock()
	c.inFlight[id] = state
	c.mu.Unlock()
}

// finish clears the in-flight slot and applies a deferred refresh once the
// last transition has settled.
func (c *Coordinator) finish(id string) {
	c.mu.Lock()
	delete(c.inFlight, id)
	var deferred []model.Record
	apply := false
	if len(c.inFlight) == 0 && c.hasPending {
		deferred = c.pendingLoad
		c.pendingLoad = nil
		c.hasPending = false
		apply = true
	}
	c.mu.Unlock()

	if apply {
		c.board.Load(deferred)
	}
}

func (c *Coordinator) notify(kind service.NoticeKind, message string) {
	c.mu.Lock()
	n := c.notifier
	c.mu.Unlock()
	if n != nil {
		n.Notify(kind, message)
	}
}
