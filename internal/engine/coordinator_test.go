package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelflow/internal/board"
	"funnelflow/internal/common"
	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
	"funnelflow/internal/service"
	"funnelflow/internal/stats"
)

func fastConfig() Config {
	return Config{
		Retry: service.RetryOptions{
			MaxAttempts:  1,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1.0,
		},
	}
}

func testRecord(id string, stage model.Stage) model.Record {
	created := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return model.Record{
		ID:               id,
		Kind:             model.KindOpportunity,
		Stage:            stage,
		Title:            "Deal " + id,
		CounterpartyName: "Acme",
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func newCoordinator(t *testing.T, store *mockStore) (*Coordinator, *board.Manager, *mockNotifier) {
	t.Helper()
	b := board.NewManager()
	n := &mockNotifier{}
	c := NewWithConfig(b, store, n, pipeline.NewValidator(pipeline.PolicyPermissive), fastConfig())
	return c, b, n
}

// Drag succeeds: the optimistic stage stays in place and stats follow.
func TestMoveRecordSuccess(t *testing.T) {
	store := &mockStore{}
	c, b, n := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	before := stats.Summarize(b.All(), time.Now())
	require.Equal(t, 1, before.Active)

	err := c.MoveRecord(context.Background(), "r1", pipeline.StageProposalSent)
	require.NoError(t, err)

	rec, _ := b.Get("r1")
	assert.Equal(t, pipeline.StageProposalSent, rec.Stage)
	require.Len(t, store.statusCalls, 1)
	assert.Equal(t, statusCall{id: "r1", stage: pipeline.StageProposalSent}, store.statusCalls[0])
	assert.Empty(t, n.byKind(service.NoticeError))
	assert.Equal(t, StateIdle, c.State("r1"))

	after := stats.Summarize(b.All(), time.Now())
	assert.Equal(t, before.Active, after.Active, "a move between active stages leaves the active count unchanged")
	assert.Equal(t, before.Total, after.Total)
}

// Drag fails to persist: the board snaps back and the user sees one error.
func TestMoveRecordPersistenceFailureRollsBack(t *testing.T) {
	store := &mockStore{updateStatusErr: errors.New("connection reset")}
	c, b, n := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	before, _ := b.Get("r1")
	preStats := stats.Summarize(b.All(), time.Now())

	err := c.MoveRecord(context.Background(), "r1", pipeline.StageProposalSent)
	require.Error(t, err)

	rec, _ := b.Get("r1")
	assert.Equal(t, pipeline.StageNewLead, rec.Stage)
	assert.Equal(t, before.UpdatedAt, rec.UpdatedAt, "rollback restores the exact prior timestamp")

	errNotices := n.byKind(service.NoticeError)
	require.Len(t, errNotices, 1, "exactly one error notification")
	assert.Contains(t, errNotices[0].message, "Could not update status")

	postStats := stats.Summarize(b.All(), time.Now())
	assert.Equal(t, preStats, postStats, "stats equal their pre-drag values after rollback")
}

func TestMoveRecordSameStageIsSilentNoop(t *testing.T) {
	store := &mockStore{}
	c, b, n := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageDiscovery)})

	before, _ := b.Get("r1")
	err := c.MoveRecord(context.Background(), "r1", pipeline.StageDiscovery)
	require.NoError(t, err)

	after, _ := b.Get("r1")
	assert.Equal(t, before, after)
	assert.Zero(t, store.statusCallCount(), "no persistence call for a same-stage drop")
	assert.Empty(t, n.notices, "no toast for a same-stage drop")
}

func TestMoveRecordRejectedTransition(t *testing.T) {
	store := &mockStore{}
	c, b, n := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageWon)})

	err := c.MoveRecord(context.Background(), "r1", pipeline.StageNewLead)
	require.ErrorIs(t, err, common.ErrInvalidTransition)

	rec, _ := b.Get("r1")
	assert.Equal(t, pipeline.StageWon, rec.Stage, "rejected moves never mutate the board")
	assert.Zero(t, store.statusCallCount(), "rejected moves never reach the store")
	assert.Len(t, n.byKind(service.NoticeInfo), 1)
}

func TestMoveRecordUnknownID(t *testing.T) {
	store := &mockStore{}
	c, _, _ := newCoordinator(t, store)

	err := c.MoveRecord(context.Background(), "ghost", pipeline.StageWon)
	assert.ErrorIs(t, err, board.ErrRecordNotFound)
}

// A second transition for the same record while one is persisting must be
// rejected, never interleaved.
func TestMoveRecordSerializedPerRecord(t *testing.T) {
	store := &mockStore{unblock: make(chan struct{})}
	c, b, _ := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.MoveRecord(context.Background(), "r1", pipeline.StageDiscovery)
	}()

	// Wait for the first move to reach the store call.
	require.Eventually(t, func() bool {
		return c.State("r1") == StatePersisting
	}, time.Second, time.Millisecond)

	err := c.MoveRecord(context.Background(), "r1", pipeline.StageNegotiation)
	assert.ErrorIs(t, err, common.ErrTransitionInFlight)

	close(store.unblock)
	wg.Wait()

	rec, _ := b.Get("r1")
	assert.Equal(t, pipeline.StageDiscovery, rec.Stage)
	assert.Equal(t, 1, store.statusCallCount())
}

// A refresh arriving mid-transition is deferred and applied once the board
// is quiet, last write wins.
func TestRefreshDeferredWhileTransitionInFlight(t *testing.T) {
	store := &mockStore{
		unblock:     make(chan struct{}),
		queryResult: []model.Record{testRecord("r2", pipeline.StageNegotiation)},
	}
	c, b, _ := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.MoveRecord(context.Background(), "r1", pipeline.StageDiscovery)
	}()

	require.Eventually(t, func() bool {
		return c.State("r1") == StatePersisting
	}, time.Second, time.Millisecond)

	require.NoError(t, c.Refresh(context.Background(), service.Predicate{}))
	_, stillThere := b.Get("r1")
	assert.True(t, stillThere, "refresh must not clobber the board mid-gesture")

	close(store.unblock)
	wg.Wait()

	_, stillThere = b.Get("r1")
	assert.False(t, stillThere, "deferred refresh applies once the transition settles")
	_, ok := b.Get("r2")
	assert.True(t, ok)
}

func TestRefreshImmediateWhenIdle(t *testing.T) {
	store := &mockStore{queryResult: []model.Record{testRecord("r9", pipeline.StageNewLead)}}
	c, b, _ := newCoordinator(t, store)

	require.NoError(t, c.Refresh(context.Background(), service.Predicate{}))
	assert.Equal(t, 1, b.Len())
}

func TestRefreshQueryFailure(t *testing.T) {
	store := &mockStore{queryErr: errors.New("db locked")}
	c, b, n := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	err := c.Refresh(context.Background(), service.Predicate{})
	require.Error(t, err)
	assert.Equal(t, 1, b.Len(), "a failed refresh leaves the board untouched")
	assert.Len(t, n.byKind(service.NoticeError), 1)
}

func TestCreateRecordFillsDefaults(t *testing.T) {
	store := &mockStore{}
	c, b, _ := newCoordinator(t, store)

	created, err := c.CreateRecord(context.Background(), model.Record{
		Kind:  model.KindBidding,
		Title: "Road resurfacing tender",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, pipeline.StageInternalReview, created.Stage)
	assert.False(t, created.CreatedAt.IsZero())

	_, ok := b.Get(created.ID)
	assert.True(t, ok)
}

func TestCreateRecordStoreFailure(t *testing.T) {
	store := &mockStore{createErr: errors.New("constraint violation")}
	c, b, n := newCoordinator(t, store)

	_, err := c.CreateRecord(context.Background(), model.Record{
		Kind:  model.KindOpportunity,
		Title: "Doomed deal",
	})
	require.Error(t, err)
	assert.Zero(t, b.Len(), "failed creates never reach the board")
	assert.Len(t, n.byKind(service.NoticeError), 1)
}

func TestEditRecordPatchesAfterRoundTrip(t *testing.T) {
	store := &mockStore{}
	c, b, _ := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	title := "Bigger deal"
	require.NoError(t, c.EditRecord(context.Background(), "r1", model.FieldPatch{Title: &title}))

	rec, _ := b.Get("r1")
	assert.Equal(t, "Bigger deal", rec.Title)
	assert.Equal(t, 1, store.fieldCalls)
}

func TestEditRecordFailureLeavesBoardUntouched(t *testing.T) {
	store := &mockStore{updateFieldsErr: errors.New("validation failed")}
	c, b, n := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	title := "Bigger deal"
	err := c.EditRecord(context.Background(), "r1", model.FieldPatch{Title: &title})
	require.Error(t, err)

	rec, _ := b.Get("r1")
	assert.Equal(t, "Deal r1", rec.Title)
	assert.Len(t, n.byKind(service.NoticeError), 1)
}

func TestEditRecordEmptyPatchIsNoop(t *testing.T) {
	store := &mockStore{}
	c, b, _ := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	require.NoError(t, c.EditRecord(context.Background(), "r1", model.FieldPatch{}))
	assert.Zero(t, store.fieldCalls)
}

func TestDeleteRecordEvictsFromBoard(t *testing.T) {
	store := &mockStore{}
	c, b, _ := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	require.NoError(t, c.DeleteRecord(context.Background(), "r1"))
	assert.Zero(t, b.Len())
	assert.Equal(t, 1, store.deleteCalls)
}

func TestDeleteRecordFailureKeepsRecord(t *testing.T) {
	store := &mockStore{deleteErr: errors.New("foreign key")}
	c, b, n := newCoordinator(t, store)
	b.Load([]model.Record{testRecord("r1", pipeline.StageNewLead)})

	err := c.DeleteRecord(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, 1, b.Len())
	assert.Len(t, n.byKind(service.NoticeError), 1)
}
