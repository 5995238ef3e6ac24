package orchestration

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager owns the per-organization orchestrators. The server constructs
// one Manager and wires it into the HTTP handlers; nothing else holds
// orchestrator references, so shutdown is a single CleanupAll call.
type Manager struct {
	store  Store
	logger *logrus.Logger

	mu            sync.Mutex
	orchestrators map[string]*Orchestrator
}

func NewManager(store Store, logger *logrus.Logger) *Manager {
	return &Manager{
		store:         store,
		logger:        logger,
		orchestrators: map[string]*Orchestrator{},
	}
}

// Get returns the organization's orchestrator, creating it on first use.
func (m *Manager) Get(orgId string) *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orchestrators[orgId]
	if !ok {
		o = NewOrchestrator(orgId, m.store, m.logger)
		m.orchestrators[orgId] = o
	}
	return o
}

// Initialize brings the organization's orchestrator up, creating it first
// if needed.
func (m *Manager) Initialize(ctx context.Context, orgId string) error {
	return m.Get(orgId).Initialize(ctx)
}

// Cleanup tears down one organization's orchestrator and forgets it.
func (m *Manager) Cleanup(orgId string) {
	m.mu.Lock()
	o := m.orchestrators[orgId]
	delete(m.orchestrators, orgId)
	m.mu.Unlock()

	if o != nil {
		o.Cleanup()
	}
}

// CleanupAll tears down every orchestrator. Used at server shutdown.
func (m *Manager) CleanupAll() {
	m.mu.Lock()
	all := make([]*Orchestrator, 0, len(m.orchestrators))
	for _, o := range m.orchestrators {
		all = append(all, o)
	}
	m.orchestrators = map[string]*Orchestrator{}
	m.mu.Unlock()

	for _, o := range all {
		o.Cleanup()
	}
}
