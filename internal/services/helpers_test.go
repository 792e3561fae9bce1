package services

import (
	"context"
	"testing"
	"time"

	"quiz-live-backend/internal/database"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"
)

var t0 = time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

type fixture struct {
	backend *Backend
	bus     *realtime.Bus
	host    models.User
	quiz    *models.Quiz
	// questions in play order; the first answer of each is correct
	questions []models.Question
	clock     *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	bus := realtime.NewBus()
	backend := NewBackend(db, bus)

	f := &fixture{backend: backend, bus: bus}
	now := t0
	f.clock = &now
	backend.SetClock(func() time.Time { return *f.clock })

	f.host = models.User{Username: "host", PasswordHash: "x"}
	if err := db.Create(&f.host).Error; err != nil {
		t.Fatalf("create host: %v", err)
	}

	ctx := context.Background()
	f.quiz, err = backend.CreateQuiz(ctx, f.host.ID, QuizInput{Title: "Capitals"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for _, text := range []string{"Capital of France?", "Capital of Peru?"} {
		q, err := backend.AddQuestion(ctx, f.quiz.ID, f.host.ID, QuestionInput{
			Text:      text,
			TimeLimit: 20,
			Points:    1000,
			Answers: []AnswerInput{
				{Text: "right", IsCorrect: true},
				{Text: "wrong"},
			},
		})
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
		f.questions = append(f.questions, *q)
	}
	return f
}

func (f *fixture) advance(d time.Duration) {
	next := f.clock.Add(d)
	f.clock = &next
}

func (f *fixture) createSession(t *testing.T, pin string) *models.Session {
	t.Helper()
	session, err := f.backend.CreateSession(context.Background(), f.quiz.ID, f.host.ID, pin)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func (f *fixture) join(t *testing.T, sessionID uint, nickname string) models.Participant {
	t.Helper()
	res, err := f.backend.JoinSession(context.Background(), sessionID, nickname, nil)
	if err != nil {
		t.Fatalf("join %s: %v", nickname, err)
	}
	return res.Participant
}

func (f *fixture) start(t *testing.T, sessionID uint) *models.Session {
	t.Helper()
	session, err := f.backend.UpdateSession(context.Background(), sessionID, models.SessionUpdate{Status: "active"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return session
}

func (f *fixture) answer(q models.Question, correct bool) *uint {
	id := q.Answers[1].ID
	if correct {
		id = q.Answers[0].ID
	}
	return &id
}

func at(d time.Duration) *time.Time {
	ts := t0.Add(d)
	return &ts
}
