package live

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"
)

type HostPhase string

const (
	HostCreating  HostPhase = "creating"
	HostWaiting   HostPhase = "waiting"
	HostCountdown HostPhase = "countdown"
	HostActive    HostPhase = "active"
	HostFinished  HostPhase = "finished"
)

type HostSnapshot struct {
	Phase                     HostPhase            `json:"phase"`
	Session                   *models.Session      `json:"session"`
	Roster                    []models.Participant `json:"roster"`
	CanStart                  bool                 `json:"can_start"`
	CountdownRemainingSeconds float64              `json:"countdown_remaining_seconds"`
	TimeRemainingSeconds      *float64             `json:"time_remaining_seconds,omitempty"`
}

// HostController drives one session from creation to termination.
type HostController struct {
	backend  Backend
	notifier realtime.Notifier
	clock    Clock
	opts     Options

	// opMu serialises host actions and terminations; mu guards the fields
	// below and is never held across backend calls.
	opMu sync.Mutex
	mu   sync.RWMutex

	phase          HostPhase
	session        *models.Session
	roster         []models.Participant
	countdownTimer Timer
	deadlineTimer  Timer
	cancelWatch    context.CancelFunc
	watchDone      chan struct{}
	closed         bool
	onFinished     func(sessionID uint)
}

func NewHostController(backend Backend, notifier realtime.Notifier, clock Clock, opts Options) *HostController {
	if clock == nil {
		clock = SystemClock()
	}
	return &HostController{
		backend:  backend,
		notifier: notifier,
		clock:    clock,
		opts:     opts.withDefaults(),
		phase:    HostCreating,
	}
}

// Host validates the request and creates a waiting session. Every failure is a
// *HostingError; nothing is retried except PIN collisions.
func (c *HostController) Host(ctx context.Context, quizID, hostID uint) (*models.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.currentPhase() != HostCreating {
		return nil, ErrWrongPhase
	}

	if err := c.backend.Ping(ctx); err != nil {
		return nil, hostingError(KindConnection, err)
	}
	quiz, err := c.backend.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, classifyHosting(err)
	}
	if !quiz.CanHost(hostID) {
		return nil, hostingError(KindPermission, game.ErrPermissionDenied)
	}
	if len(quiz.Questions) == 0 {
		return nil, hostingError(KindNoQuestions, game.ErrNoQuestions)
	}

	session, err := c.createWithPin(ctx, quizID, hostID)
	if err != nil {
		return nil, err
	}
	log.Printf("live: session %d created for quiz %d with pin %s", session.ID, quizID, session.Pin)

	if err := c.attach(ctx, session); err != nil {
		return nil, hostingError(KindUnknown, err)
	}
	return session, nil
}

func (c *HostController) createWithPin(ctx context.Context, quizID, hostID uint) (*models.Session, error) {
	for attempt := 0; attempt < c.opts.PinMaxAttempts; attempt++ {
		pin := c.opts.NewPin()
		inUse, err := c.backend.PinInUse(ctx, pin)
		if err != nil {
			return nil, hostingError(KindUnknown, err)
		}
		if inUse {
			continue
		}
		session, err := c.backend.CreateSession(ctx, quizID, hostID, pin)
		if errors.Is(err, game.ErrPinTaken) {
			// Another host claimed it between the check and the insert.
			continue
		}
		if err != nil {
			return nil, hostingError(KindUnknown, err)
		}
		return session, nil
	}
	return nil, hostingError(KindUnknown, game.ErrPinTaken)
}

// Adopt re-attaches the controller to a stored session, for example after a
// server restart. A timed session whose deadline passed meanwhile is
// terminated right away.
func (c *HostController) Adopt(ctx context.Context, session *models.Session) error {
	c.opMu.Lock()
	if c.currentPhase() != HostCreating {
		c.opMu.Unlock()
		return ErrWrongPhase
	}
	err := c.attach(ctx, session)
	c.opMu.Unlock()
	if err != nil {
		return err
	}

	if deadline, ok := session.Deadline(); ok && session.Status == game.StatusActive && !c.clock.Now().Before(deadline) {
		_, err := c.End(ctx)
		return err
	}
	return nil
}

// attach installs the session, loads the roster and, unless the session is
// already over, starts watching for changes.
func (c *HostController) attach(ctx context.Context, session *models.Session) error {
	roster, err := c.backend.ListParticipants(ctx, session.ID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = session
	c.roster = roster
	c.phase = HostWaiting
	c.scheduleLocked()
	finished := c.phase == HostFinished
	c.mu.Unlock()

	if finished {
		return nil
	}
	return c.watch(session.ID)
}

func (c *HostController) watch(sessionID uint) error {
	if c.notifier == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	sessions, err := c.notifier.Subscribe(ctx, realtime.TableSessions, sessionID)
	if err != nil {
		cancel()
		return err
	}
	participants, err := c.notifier.Subscribe(ctx, realtime.TableParticipants, sessionID)
	if err != nil {
		sessions.Close()
		cancel()
		return err
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.cancelWatch = cancel
	c.watchDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer sessions.Close()
		defer participants.Close()
		sc, pc := sessions.C, participants.C
		for sc != nil || pc != nil {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sc:
				if !ok {
					sc = nil
					continue
				}
			case _, ok := <-pc:
				if !ok {
					pc = nil
					continue
				}
			}
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.Printf("live: session %d: refresh: %v", sessionID, err)
			}
		}
	}()
	return nil
}

// Refresh re-reads the session and roster. Applying the same state twice
// changes nothing.
func (c *HostController) Refresh(ctx context.Context) error {
	id := c.SessionID()
	if id == 0 {
		return nil
	}
	session, err := c.backend.GetSession(ctx, id)
	if err != nil {
		return err
	}
	roster, err := c.backend.ListParticipants(ctx, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.roster = roster
	wasFinished := c.phase == HostFinished
	if session.Newer(c.session) {
		c.session = session
		c.scheduleLocked()
	}
	nowFinished := !wasFinished && c.phase == HostFinished
	c.mu.Unlock()

	if nowFinished {
		c.finished()
	}
	return nil
}

// scheduleLocked derives the phase from the held session and (re)arms the
// countdown and deadline timers. Callers hold c.mu.
func (c *HostController) scheduleLocked() {
	stopTimer(c.countdownTimer)
	stopTimer(c.deadlineTimer)
	c.countdownTimer, c.deadlineTimer = nil, nil

	s := c.session
	now := c.clock.Now()
	switch s.Status {
	case game.StatusWaiting:
		c.phase = HostWaiting
		return
	case game.StatusFinished:
		c.phase = HostFinished
		return
	}

	if remaining := game.RemainingCountdown(s.StartedAt, now); remaining > 0 {
		c.phase = HostCountdown
		c.countdownTimer = c.clock.AfterFunc(remaining, c.countdownElapsed)
	} else {
		c.phase = HostActive
	}
	if deadline, ok := s.Deadline(); ok {
		wait := deadline.Sub(now)
		if wait < 0 {
			wait = 0
		}
		c.deadlineTimer = c.clock.AfterFunc(wait, c.deadlineReached)
	}
}

func (c *HostController) countdownElapsed() {
	c.mu.Lock()
	if c.phase == HostCountdown {
		c.phase = HostActive
	}
	c.mu.Unlock()
}

func (c *HostController) deadlineReached() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := c.End(ctx); err != nil && !errors.Is(err, ErrClosed) {
		log.Printf("live: session %d: deadline termination failed, retrying: %v", c.SessionID(), err)
		c.mu.Lock()
		if !c.closed && c.phase != HostFinished {
			c.deadlineTimer = c.clock.AfterFunc(c.opts.RetryInterval, c.deadlineReached)
		}
		c.mu.Unlock()
	}
}

// Configure sets the time limit and end mode while players are gathering.
func (c *HostController) Configure(ctx context.Context, cfg models.SessionConfig) (*models.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.currentPhase() != HostWaiting {
		return nil, game.ErrSessionStarted
	}
	session, err := c.backend.UpdateSession(ctx, c.SessionID(), models.SessionUpdate{Config: &cfg})
	if err != nil {
		return nil, err
	}
	c.apply(session)
	return session, nil
}

// Start records countdown_started_at = now and started_at = now + lead in one
// write. Every client derives the countdown from those two values.
func (c *HostController) Start(ctx context.Context) (*models.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.currentPhase() != HostWaiting {
		return nil, game.ErrSessionStarted
	}
	id := c.SessionID()
	roster, err := c.backend.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, game.ErrNoParticipants
	}

	countdownAt, startedAt := game.StartTimes(c.clock.Now(), c.opts.Countdown)
	session, err := c.backend.UpdateSession(ctx, id, models.SessionUpdate{
		Status:             game.StatusActive,
		CountdownStartedAt: &countdownAt,
		StartedAt:          &startedAt,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.roster = roster
	c.mu.Unlock()
	c.apply(session)
	log.Printf("live: session %d starts at %s with %d participants", id, startedAt.Format(time.RFC3339), len(roster))
	return session, nil
}

// End terminates the session now. Ending a finished session is a no-op.
func (c *HostController) End(ctx context.Context) (*TerminateReport, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	closed, phase := c.closed, c.phase
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if phase == HostCreating {
		return nil, ErrWrongPhase
	}
	if phase == HostFinished {
		return &TerminateReport{Session: c.Snapshot().Session}, nil
	}

	report, err := TerminateSession(ctx, c.backend, c.SessionID(), c.clock.Now())
	if err != nil {
		return nil, err
	}
	if roster, err := c.backend.ListParticipants(ctx, c.SessionID()); err == nil {
		c.mu.Lock()
		c.roster = roster
		c.mu.Unlock()
	}
	c.apply(report.Session)
	return report, nil
}

func (c *HostController) apply(session *models.Session) {
	c.mu.Lock()
	wasFinished := c.phase == HostFinished
	if session.Newer(c.session) {
		c.session = session
		c.scheduleLocked()
	}
	nowFinished := !wasFinished && c.phase == HostFinished
	c.mu.Unlock()

	if nowFinished {
		c.finished()
	}
}

// finished releases the watch and timers once the session is over.
func (c *HostController) finished() {
	c.mu.Lock()
	stopTimer(c.countdownTimer)
	stopTimer(c.deadlineTimer)
	cancel := c.cancelWatch
	c.cancelWatch = nil
	hook := c.onFinished
	id := c.session.ID
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if hook != nil {
		hook(id)
	}
}

func (c *HostController) currentPhase() HostPhase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

func (c *HostController) SessionID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return 0
	}
	return c.session.ID
}

func (c *HostController) HostID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return 0
	}
	return c.session.HostID
}

func (c *HostController) Snapshot() HostSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := HostSnapshot{Phase: c.phase}
	if c.session == nil {
		return snap
	}
	session := *c.session
	snap.Session = &session
	snap.Roster = append([]models.Participant(nil), c.roster...)
	snap.CanStart = c.phase == HostWaiting && len(c.roster) > 0

	now := c.clock.Now()
	snap.CountdownRemainingSeconds = game.RemainingCountdown(session.StartedAt, now).Seconds()
	if session.Status == game.StatusActive {
		if remaining, ok := game.RemainingPlay(session.StartedAt, session.TotalTimeMinutes, now); ok {
			secs := remaining.Seconds()
			snap.TimeRemainingSeconds = &secs
		}
	}
	return snap
}

// Close stops timers and the change watch. It does not end the session.
func (c *HostController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stopTimer(c.countdownTimer)
	stopTimer(c.deadlineTimer)
	cancel, done := c.cancelWatch, c.watchDone
	c.cancelWatch = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
