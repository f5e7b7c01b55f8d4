package engine

import (
	"context"
	"sync"

	"funnelflow/internal/model"
	"funnelflow/internal/service"
)

// mockStore records calls and returns scripted results.
type mockStore struct {
	mu sync.Mutex

	queryResult []model.Record
	queryErr    error

	updateStatusErr error
	updateFieldsErr error
	createErr       error
	deleteErr       error

	// unblock, when set, is closed by the test to release UpdateStatus.
	unblock chan struct{}

	statusCalls []statusCall
	fieldCalls  int
	createCalls int
	deleteCalls int
	queryCalls  int
}

type statusCall struct {
	id    string
	stage model.Stage
}

func (m *mockStore) Query(_ context.Context, _ service.Predicate) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	return m.queryResult, m.queryErr
}

func (m *mockStore) Create(_ context.Context, _ model.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	return "created-id", m.createErr
}

func (m *mockStore) UpdateStatus(_ context.Context, id string, stage model.Stage) error {
	if m.unblock != nil {
		<-m.unblock
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls = append(m.statusCalls, statusCall{id: id, stage: stage})
	return m.updateStatusErr
}

func (m *mockStore) UpdateFields(_ context.Context, _ string, _ model.FieldPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fieldCalls++
	return m.updateFieldsErr
}

func (m *mockStore) Delete(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	return m.deleteErr
}

func (m *mockStore) statusCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.statusCalls)
}

// mockNotifier collects every notification.
type mockNotifier struct {
	mu      sync.Mutex
	notices []notice
}

type notice struct {
	message string
	kind    service.NoticeKind
}

func (m *mockNotifier) Notify(kind service.NoticeKind, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, notice{kind: kind, message: message})
}

func (m *mockNotifier) byKind(kind service.NoticeKind) []notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notice
	for _, n := range m.notices {
		if n.kind == kind {
			out = append(out, n)
		}
	}
	return out
}
