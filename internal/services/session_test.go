package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"
)

func TestSessionStatusOnlyMovesForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.createSession(t, "123456")
	if session.Status != game.StatusWaiting || session.StartedAt != nil {
		t.Fatalf("expected fresh waiting session, got %#v", session)
	}

	started := f.start(t, session.ID)
	if started.StartedAt == nil || !started.StartedAt.Equal(t0) {
		t.Fatalf("expected started_at %s, got %v", t0, started.StartedAt)
	}

	if _, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Status: game.StatusWaiting}); !errors.Is(err, game.ErrStatusRegression) {
		t.Fatalf("expected regression error, got %v", err)
	}

	f.advance(time.Minute)
	again := t0.Add(time.Hour)
	restarted, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Status: game.StatusActive, StartedAt: &again})
	if err != nil {
		t.Fatalf("repeat start: %v", err)
	}
	if !restarted.StartedAt.Equal(t0) {
		t.Fatalf("expected started_at to be written once, got %s", restarted.StartedAt)
	}

	finished, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Status: game.StatusFinished})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	firstEnd := *finished.EndedAt

	f.advance(time.Minute)
	again2, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Status: game.StatusFinished})
	if err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if !again2.EndedAt.Equal(firstEnd) {
		t.Fatalf("expected ended_at %s to stick, got %s", firstEnd, again2.EndedAt)
	}
	if _, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Status: game.StatusActive}); !errors.Is(err, game.ErrStatusRegression) {
		t.Fatalf("expected regression error, got %v", err)
	}
}

func TestSessionStartWritesBothTimestamps(t *testing.T) {
	f := newFixture(t)
	session := f.createSession(t, "222333")
	countdownAt, startedAt := game.StartTimes(t0, 5*time.Second)

	updated, err := f.backend.UpdateSession(context.Background(), session.ID, models.SessionUpdate{
		Status:             game.StatusActive,
		CountdownStartedAt: &countdownAt,
		StartedAt:          &startedAt,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !updated.CountdownStartedAt.Equal(countdownAt) || !updated.StartedAt.Equal(startedAt) {
		t.Fatalf("unexpected timestamps %v %v", updated.CountdownStartedAt, updated.StartedAt)
	}
	if got := game.RemainingCountdown(updated.StartedAt, t0.Add(2*time.Second)); got != 3*time.Second {
		t.Fatalf("expected 3s remaining, got %s", got)
	}
}

func TestSessionUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.createSession(t, "333444")

	ts := t0
	if _, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{EndedAt: &ts}); !errors.Is(err, game.ErrInvalidUpdate) {
		t.Fatalf("expected invalid update for bare timestamp, got %v", err)
	}
	zero := 0
	if _, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Config: &models.SessionConfig{TotalTimeMinutes: &zero}}); !errors.Is(err, game.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if _, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Config: &models.SessionConfig{GameEndMode: "sudden_death"}}); !errors.Is(err, game.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}

	minutes := 3
	configured, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Config: &models.SessionConfig{
		TotalTimeMinutes: &minutes,
		GameEndMode:      game.EndModeFirstFinish,
	}})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if configured.TotalTimeMinutes == nil || *configured.TotalTimeMinutes != 3 || configured.GameEndMode != game.EndModeFirstFinish {
		t.Fatalf("unexpected config %#v", configured)
	}

	f.start(t, session.ID)
	if _, err := f.backend.UpdateSession(ctx, session.ID, models.SessionUpdate{Config: &models.SessionConfig{GameEndMode: game.EndModeWaitTimer}}); !errors.Is(err, game.ErrSessionStarted) {
		t.Fatalf("expected session started, got %v", err)
	}
}

func TestPinUniqueAmongLiveSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createSession(t, "777777")

	if _, err := f.backend.CreateSession(ctx, f.quiz.ID, f.host.ID, "777777"); !errors.Is(err, game.ErrPinTaken) {
		t.Fatalf("expected pin taken, got %v", err)
	}
	inUse, err := f.backend.PinInUse(ctx, "777777")
	if err != nil || !inUse {
		t.Fatalf("expected pin in use, got %v (%v)", inUse, err)
	}

	if _, err := f.backend.UpdateSession(ctx, first.ID, models.SessionUpdate{Status: game.StatusFinished}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := f.backend.FindSessionByPin(ctx, "777 777"); !errors.Is(err, game.ErrSessionFinished) {
		t.Fatalf("expected finished session on lookup, got %v", err)
	}

	second := f.createSession(t, "777777")
	found, err := f.backend.FindSessionByPin(ctx, "777777")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != second.ID {
		t.Fatalf("expected live session %d, got %d", second.ID, found.ID)
	}
	if _, err := f.backend.FindSessionByPin(ctx, "000001"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionUpdatesArePublished(t *testing.T) {
	f := newFixture(t)
	session := f.createSession(t, "444555")
	sub, err := f.bus.Subscribe(context.Background(), realtime.TableSessions, session.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	f.start(t, session.ID)
	select {
	case change := <-sub.C:
		if change.Type != realtime.ChangeUpdate || change.RecordID != session.ID {
			t.Fatalf("unexpected change %#v", change)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a session change")
	}

	events, err := f.backend.ListEvents(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 || events[0].Type != models.EventSessionCreated || events[1].Type != models.EventSessionStarted {
		t.Fatalf("unexpected events %#v", events)
	}
}

func TestHostSessionSummaries(t *testing.T) {
	f := newFixture(t)
	session := f.createSession(t, "121212")
	f.join(t, session.ID, "ada")
	f.join(t, session.ID, "grace")

	summaries, err := f.backend.ListHostSessions(context.Background(), f.host.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ParticipantCount != 2 || summaries[0].QuizTitle != "Capitals" {
		t.Fatalf("unexpected summaries %#v", summaries)
	}

	live, err := f.backend.ListLiveSessions(context.Background())
	if err != nil || len(live) != 1 {
		t.Fatalf("expected one live session, got %d (%v)", len(live), err)
	}
}

func TestHostSessionSummariesCountPerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	busy := f.createSession(t, "131313")
	f.join(t, busy.ID, "ada")
	f.join(t, busy.ID, "grace")
	f.join(t, busy.ID, "linus")
	f.createSession(t, "141414")

	summaries, err := f.backend.ListHostSessions(ctx, f.host.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	counts := map[string]int{}
	for _, s := range summaries {
		counts[s.Pin] = s.ParticipantCount
	}
	if len(counts) != 2 || counts["131313"] != 3 || counts["141414"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}

	none, err := f.backend.ListHostSessions(ctx, f.host.ID+100)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no sessions for another host, got %d (%v)", len(none), err)
	}
}
