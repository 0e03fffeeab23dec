package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"subview/internal/config"
	"subview/internal/domain"
	"subview/internal/port"
	"subview/internal/selection"
	"subview/internal/viewer"
	"subview/internal/workfield"
)

// Manager owns the live review sessions and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	catalog    port.Catalog
	extraction port.ExtractionClient
	store      port.LocalStore
	factory    *viewer.Factory
	cfg        config.Config
	log        *zap.Logger

	stop chan struct{}
	once sync.Once
}

// NewManager creates a session manager and starts the idle sweeper.
func NewManager(catalog port.Catalog, extraction port.ExtractionClient, localStore port.LocalStore, factory *viewer.Factory, cfg config.Config, log *zap.Logger) *Manager {
	m := &Manager{
		sessions:   make(map[string]*Session),
		catalog:    catalog,
		extraction: extraction,
		store:      localStore,
		factory:    factory,
		cfg:        cfg,
		log:        log,
		stop:       make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Create starts a new session and returns it.
func (m *Manager) Create() *Session {
	id := uuid.New().String()
	store := selection.NewStore(m.cfg.Viewer.HighlightTTL, m.log)
	fields := workfield.NewService(m.extraction, m.store, m.log)
	s := newSession(id, store, fields, m.catalog, m.factory, m.log)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Info("session created", zap.String("session_id", id))
	return s
}

// Get returns a live session and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	s.Touch()
	return s, nil
}

// Delete closes and removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
		m.log.Info("session closed", zap.String("session_id", id))
	}
}

func (m *Manager) sweep() {
	interval := m.cfg.Session.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.cfg.Session.IdleExpiry)
			m.mu.Lock()
			var expired []*Session
			for id, s := range m.sessions {
				if s.LastSeen().Before(cutoff) {
					delete(m.sessions, id)
					expired = append(expired, s)
				}
			}
			m.mu.Unlock()
			for _, s := range expired {
				s.Close()
				m.log.Info("idle session expired", zap.String("session_id", s.ID))
			}
		}
	}
}

// Close stops the sweeper and closes every session.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		delete(m.sessions, id)
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
