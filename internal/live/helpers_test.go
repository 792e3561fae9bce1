package live

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"quiz-live-backend/internal/database"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"
	"quiz-live-backend/internal/services"
)

var t0 = time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock only moves on Advance, which runs due timers in the calling
// goroutine, earliest first.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(c.now) {
				due = append(due, t)
			}
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		if len(due) == 0 {
			c.mu.Unlock()
			return
		}
		next := due[0]
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type env struct {
	backend   *services.Backend
	bus       *realtime.Bus
	clock     *fakeClock
	host      models.User
	guest     models.User
	quiz      *models.Quiz
	questions []models.Question
	opts      Options
}

func newEnv(t *testing.T, questions int) *env {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	bus := realtime.NewBus()
	e := &env{
		backend: services.NewBackend(db, bus),
		bus:     bus,
		clock:   newFakeClock(t0),
		opts: Options{
			Countdown:    5 * time.Second,
			PollInterval: time.Hour,
		},
	}
	e.backend.SetClock(e.clock.Now)

	e.host = models.User{Username: "host", PasswordHash: "x"}
	e.guest = models.User{Username: "guest", PasswordHash: "x"}
	for _, u := range []*models.User{&e.host, &e.guest} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	ctx := context.Background()
	e.quiz, err = e.backend.CreateQuiz(ctx, e.host.ID, services.QuizInput{Title: "Rivers"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i := 0; i < questions; i++ {
		q, err := e.backend.AddQuestion(ctx, e.quiz.ID, e.host.ID, services.QuestionInput{
			Text:      "Longest river?",
			TimeLimit: 20,
			Points:    1000,
			Answers: []services.AnswerInput{
				{Text: "Nile", IsCorrect: true},
				{Text: "Danube"},
				{Text: "Volga"},
			},
		})
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
		e.questions = append(e.questions, *q)
	}
	return e
}

func (e *env) manager() *Manager {
	return NewManager(e.backend, nil, e.clock, e.opts)
}

func (e *env) hostController(t *testing.T) *HostController {
	t.Helper()
	c := NewHostController(e.backend, nil, e.clock, e.opts)
	if _, err := c.Host(context.Background(), e.quiz.ID, e.host.ID); err != nil {
		t.Fatalf("host: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// player joins through an in-process backend without a change stream, so the
// test decides when the controller reconciles.
func (e *env) player(t *testing.T, m *Manager, pin, nickname string) *ParticipantController {
	t.Helper()
	p, err := JoinGame(context.Background(), m.Player(), nil, e.clock, NewMemoryDoubtfulStore(), e.opts, JoinParams{Pin: pin, Nickname: nickname})
	if err != nil {
		t.Fatalf("join %s: %v", nickname, err)
	}
	t.Cleanup(p.Close)
	return p
}

func (e *env) correct(i int) uint {
	return e.questions[i].Answers[0].ID
}

func (e *env) wrong(i int) uint {
	return e.questions[i].Answers[1].ID
}

func mustRefresh(t *testing.T, players ...*ParticipantController) {
	t.Helper()
	for _, p := range players {
		if err := p.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errNetwork = errors.New("dial tcp 10.0.0.2:8080: connection refused")

// flakyPlayer fails response writes while down is set.
type flakyPlayer struct {
	PlayerBackend

	mu   sync.Mutex
	down bool
}

func (f *flakyPlayer) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flakyPlayer) UpsertResponse(ctx context.Context, participantID uint, patch models.ResponsePatch) (*models.Response, error) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return nil, errNetwork
	}
	return f.PlayerBackend.UpsertResponse(ctx, participantID, patch)
}
