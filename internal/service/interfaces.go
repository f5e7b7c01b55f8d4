// Package service defines the interfaces the core depends on. The
// surrounding application supplies the implementations.
package service

import (
	"context"
	"time"

	"funnelflow/internal/model"
)

// Predicate is a conjunction of optional filter clauses. A nil pointer or
// zero value means the clause imposes no restriction.
type Predicate struct {
	Stage        *model.Stage
	Counterparty *string
	Owner        *string
	Category     *string
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
	ValueMin     *float64
	ValueMax     *float64
	Kind         *model.Kind
	Term         string
}

// RecordStore defines the contract for the persistence layer. Any error
// means the operation did not commit; callers must treat failures uniformly.
type RecordStore interface {
	Query(ctx context.Context, pred Predicate) ([]model.Record, error)
	Create(ctx context.Context, rec model.Record) (string, error)
	UpdateStatus(ctx context.Context, id string, stage model.Stage) error
	UpdateFields(ctx context.Context, id string, patch model.FieldPatch) error
	Delete(ctx context.Context, id string) error
}

// NoticeKind classifies a user-facing notification.
type NoticeKind int

const (
	// NoticeSuccess confirms a completed action.
	NoticeSuccess NoticeKind = iota
	// NoticeInfo carries a neutral message, e.g. a rejected move.
	NoticeInfo
	// NoticeError reports a failure the user should see.
	NoticeError
)

// Notifier surfaces outcomes to the user. Fire and forget; the core never
// consumes a return value.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// BoardObserver is told whenever the board's record set changes structurally,
// so derived views (statistics, visible columns) can recompute.
type BoardObserver interface {
	BoardChanged()
}

// RetryOptions configures retry behavior for operations against flaky
// collaborators such as the record store.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
