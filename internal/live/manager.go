package live

import (
	"context"
	"log"
	"sync"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/realtime"
)

// Manager owns the host controller of every live session on this server.
type Manager struct {
	backend  Backend
	notifier realtime.Notifier
	clock    Clock
	opts     Options

	mu    sync.RWMutex
	hosts map[uint]*HostController // session id -> controller
}

func NewManager(backend Backend, notifier realtime.Notifier, clock Clock, opts Options) *Manager {
	if clock == nil {
		clock = SystemClock()
	}
	return &Manager{
		backend:  backend,
		notifier: notifier,
		clock:    clock,
		opts:     opts.withDefaults(),
		hosts:    make(map[uint]*HostController),
	}
}

func (m *Manager) newController() *HostController {
	c := NewHostController(m.backend, m.notifier, m.clock, m.opts)
	c.onFinished = m.release
	return c
}

// Host creates a session for the quiz and keeps its controller.
func (m *Manager) Host(ctx context.Context, quizID, hostID uint) (*HostController, error) {
	c := m.newController()
	session, err := c.Host(ctx, quizID, hostID)
	if err != nil {
		c.Close()
		return nil, err
	}

	m.mu.Lock()
	m.hosts[session.ID] = c
	m.mu.Unlock()
	return c, nil
}

// ControllerFor returns the controller of a session owned by hostID. Sessions
// unknown to this server are adopted from the store.
func (m *Manager) ControllerFor(ctx context.Context, sessionID, hostID uint) (*HostController, error) {
	c, err := m.controller(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.HostID() != hostID {
		return nil, game.ErrPermissionDenied
	}
	return c, nil
}

func (m *Manager) controller(ctx context.Context, sessionID uint) (*HostController, error) {
	m.mu.RLock()
	c, ok := m.hosts[sessionID]
	m.mu.RUnlock()
	if ok {
		return c, nil
	}

	session, err := m.backend.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c = m.newController()
	if err := c.Adopt(ctx, session); err != nil {
		c.Close()
		return nil, err
	}
	if c.Snapshot().Phase == HostFinished {
		// Nothing runs for a finished session; the controller only serves
		// reads and is not kept.
		return c, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.hosts[sessionID]; ok {
		go c.Close()
		return existing, nil
	}
	m.hosts[sessionID] = c
	return c, nil
}

// Restore adopts every waiting or active session, re-arming countdown and
// deadline timers after a restart.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	sessions, err := m.backend.ListLiveSessions(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for i := range sessions {
		if _, err := m.controller(ctx, sessions[i].ID); err != nil {
			log.Printf("live: restore session %d: %v", sessions[i].ID, err)
			continue
		}
		restored++
	}
	log.Printf("live: restored %d of %d live sessions", restored, len(sessions))
	return restored, nil
}

// FinishParticipant finishes a participant and, when that ended the session,
// brings its host controller up to date right away.
func (m *Manager) FinishParticipant(ctx context.Context, participantID uint) (*FinishOutcome, error) {
	outcome, err := FinishParticipant(ctx, m.backend, participantID, m.clock.Now())
	if err != nil {
		return nil, err
	}
	if outcome.Terminated {
		m.mu.RLock()
		c, ok := m.hosts[outcome.Session.ID]
		m.mu.RUnlock()
		if ok {
			if err := c.Refresh(ctx); err != nil {
				log.Printf("live: session %d: refresh after finish: %v", outcome.Session.ID, err)
			}
		}
	}
	return outcome, nil
}

// Player serves participants in-process.
func (m *Manager) Player() *LocalPlayer {
	return NewLocalPlayer(m.backend, m.FinishParticipant)
}

func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hosts)
}

// release drops a finished session's controller.
func (m *Manager) release(sessionID uint) {
	m.mu.Lock()
	c, ok := m.hosts[sessionID]
	delete(m.hosts, sessionID)
	m.mu.Unlock()
	if ok {
		go c.Close()
	}
}

// Shutdown stops every controller. Sessions stay live in the store and are
// picked up again by Restore.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	hosts := m.hosts
	m.hosts = make(map[uint]*HostController)
	m.mu.Unlock()

	for _, c := range hosts {
		c.Close()
	}
	log.Printf("live: stopped %d controllers", len(hosts))
}
