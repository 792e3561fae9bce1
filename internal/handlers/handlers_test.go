package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/models"
)

func TestGameOverHTTP(t *testing.T) {
	s := newServer(t)
	host := s.register(t, "host")
	quiz, questions := s.quiz(t, host, 2)

	created := s.host(t, host, quiz.ID)
	pin := created.Session.Pin
	if created.PinDisplay != pin[:3]+" "+pin[3:] {
		t.Fatalf("unexpected pin display %q for %q", created.PinDisplay, pin)
	}
	if created.JoinURL != "https://quiz.example/join?pin="+pin {
		t.Fatalf("unexpected join url %q", created.JoinURL)
	}

	var lookup SessionLookupResponse
	expect(t, s.do(t, call{method: http.MethodGet, path: "/api/v1/play/sessions?pin=" + pin[:3] + "%20" + pin[3:]}), http.StatusOK, &lookup)
	if lookup.Session.ID != created.Session.ID {
		t.Fatalf("lookup found session %d, want %d", lookup.Session.ID, created.Session.ID)
	}

	ada := s.join(t, pin, "Ada")
	again := s.join(t, pin, "Ada")
	if again.Participant.ID != ada.Participant.ID || again.Token != ada.Token {
		t.Fatalf("expected rejoin to return the same participant")
	}

	w := s.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/api/v1/play/sessions/%d/questions", created.Session.ID), token: ada.Token})
	var public []models.PublicQuestion
	expect(t, w, http.StatusOK, &public)
	if len(public) != 2 || strings.Contains(w.Body.String(), "is_correct") {
		t.Fatalf("expected two questions without correctness, got %s", w.Body.String())
	}

	var snap live.HostSnapshot
	expect(t, s.do(t, call{method: http.MethodGet, path: sessionPath(created.Session.ID, ""), bearer: host}), http.StatusOK, &snap)
	if snap.Phase != live.HostWaiting || !snap.CanStart || len(snap.Roster) != 1 {
		t.Fatalf("unexpected waiting snapshot %+v", snap)
	}

	expect(t, s.do(t, call{method: http.MethodPost, path: sessionPath(created.Session.ID, "/start"), bearer: host}), http.StatusOK, nil)

	now := time.Now().UTC()
	correct := questions[0].Answers[0].ID
	var resp models.Response
	expect(t, s.do(t, call{
		method: http.MethodPut,
		path:   "/api/v1/play/responses",
		body:   models.ResponsePatch{QuestionID: questions[0].ID, AnswerID: &correct, StartedAt: &now},
		token:  ada.Token,
	}), http.StatusOK, &resp)
	if !resp.IsCorrect {
		t.Fatalf("expected the stored response to be correct")
	}

	var outcome live.FinishOutcome
	expect(t, s.do(t, call{method: http.MethodPost, path: "/api/v1/play/finish", token: ada.Token}), http.StatusOK, &outcome)
	if outcome.Terminated {
		t.Fatalf("wait_timer finish must not end the session")
	}
	if outcome.Participant.Score <= 0 || outcome.Participant.Score > 1000 {
		t.Fatalf("unexpected score %d", outcome.Participant.Score)
	}

	var rescored models.Participant
	expect(t, s.do(t, call{method: http.MethodPost, path: "/api/v1/play/score", token: ada.Token}), http.StatusOK, &rescored)
	if rescored.Score != outcome.Participant.Score {
		t.Fatalf("rescoring changed the score from %d to %d", outcome.Participant.Score, rescored.Score)
	}

	var ended EndSessionResponse
	expect(t, s.do(t, call{method: http.MethodPost, path: sessionPath(created.Session.ID, "/end"), bearer: host}), http.StatusOK, &ended)
	if !ended.Session.Finished() || ended.Session.EndedAt == nil {
		t.Fatalf("expected a finished session, got %+v", ended.Session)
	}
	expect(t, s.do(t, call{method: http.MethodPost, path: sessionPath(created.Session.ID, "/end"), bearer: host}), http.StatusOK, nil)

	var board []models.LeaderboardEntry
	expect(t, s.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/api/v1/play/sessions/%d/leaderboard", created.Session.ID), token: ada.Token}), http.StatusOK, &board)
	if len(board) != 1 || board[0].Rank != 1 || board[0].Score != rescored.Score {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	var events []models.SessionEvent
	expect(t, s.do(t, call{method: http.MethodGet, path: sessionPath(created.Session.ID, "/events"), bearer: host}), http.StatusOK, &events)
	if len(events) == 0 || events[0].Type != models.EventSessionCreated {
		t.Fatalf("unexpected event log %+v", events)
	}

	expectCode(t, s.do(t, call{method: http.MethodGet, path: "/api/v1/play/sessions?pin=" + pin}), http.StatusConflict, "session_finished")
}

func TestHostingErrors(t *testing.T) {
	s := newServer(t)
	owner := s.register(t, "owner")
	other := s.register(t, "other")
	empty, _ := s.quiz(t, owner, 0)
	private, _ := s.quiz(t, owner, 1)

	tests := []struct {
		name   string
		bearer string
		quizID uint
		status int
		kind   live.HostingKind
	}{
		{"no questions", owner, empty.ID, http.StatusUnprocessableEntity, live.KindNoQuestions},
		{"missing quiz", owner, 9999, http.StatusNotFound, live.KindNotFound},
		{"private quiz of another user", other, private.ID, http.StatusForbidden, live.KindPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp HostingErrorResponse
			expect(t, s.do(t, call{
				method: http.MethodPost,
				path:   "/api/v1/sessions",
				body:   CreateSessionRequest{QuizID: tt.quizID},
				bearer: tt.bearer,
			}), tt.status, &resp)
			if resp.Kind != string(tt.kind) || resp.Hint == "" {
				t.Fatalf("unexpected hosting error %+v", resp)
			}
		})
	}
}

func TestSessionRoutesAreHostOnly(t *testing.T) {
	s := newServer(t)
	host := s.register(t, "host")
	other := s.register(t, "other")
	quiz, _ := s.quiz(t, host, 1)
	created := s.host(t, host, quiz.ID)

	expect(t, s.do(t, call{method: http.MethodGet, path: sessionPath(created.Session.ID, "")}), http.StatusUnauthorized, nil)
	expectCode(t, s.do(t, call{method: http.MethodGet, path: sessionPath(created.Session.ID, ""), bearer: other}), http.StatusForbidden, "permission_denied")
	expectCode(t, s.do(t, call{method: http.MethodPost, path: sessionPath(created.Session.ID, "/start"), bearer: other}), http.StatusForbidden, "permission_denied")
	expectCode(t, s.do(t, call{method: http.MethodGet, path: sessionPath(9999, ""), bearer: host}), http.StatusNotFound, "session_not_found")
}

func TestStartAndConfigureRules(t *testing.T) {
	s := newServer(t)
	host := s.register(t, "host")
	quiz, _ := s.quiz(t, host, 1)
	created := s.host(t, host, quiz.ID)
	id := created.Session.ID

	expectCode(t, s.do(t, call{method: http.MethodPost, path: sessionPath(id, "/start"), bearer: host}), http.StatusConflict, "no_participants")

	expect(t, s.do(t, call{
		method: http.MethodPut,
		path:   sessionPath(id, "/config"),
		body:   map[string]any{"game_end_mode": "whenever"},
		bearer: host,
	}), http.StatusBadRequest, nil)

	minutes := 5
	var configured models.Session
	expect(t, s.do(t, call{
		method: http.MethodPut,
		path:   sessionPath(id, "/config"),
		body:   models.SessionConfig{TotalTimeMinutes: &minutes, GameEndMode: "first_finish"},
		bearer: host,
	}), http.StatusOK, &configured)
	if configured.GameEndMode != "first_finish" || configured.TotalTimeMinutes == nil || *configured.TotalTimeMinutes != 5 {
		t.Fatalf("unexpected configuration %+v", configured)
	}

	var me models.JoinResult
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   sessionPath(id, "/play"),
		body:   HostPlayRequest{Nickname: "Quizmaster"},
		bearer: host,
	}), http.StatusOK, &me)
	if me.Participant.UserID == nil || me.Token == "" {
		t.Fatalf("expected the host to join as a linked participant, got %+v", me.Participant)
	}

	expect(t, s.do(t, call{method: http.MethodPost, path: sessionPath(id, "/start"), bearer: host}), http.StatusOK, nil)
	expectCode(t, s.do(t, call{method: http.MethodPost, path: sessionPath(id, "/start"), bearer: host}), http.StatusConflict, "session_started")
	expectCode(t, s.do(t, call{
		method: http.MethodPut,
		path:   sessionPath(id, "/config"),
		body:   models.SessionConfig{GameEndMode: "wait_timer"},
		bearer: host,
	}), http.StatusConflict, "session_started")
	expectCode(t, s.do(t, call{method: http.MethodPost, path: "/api/v1/play/leave", token: me.Token}), http.StatusConflict, "session_started")

	var outcome live.FinishOutcome
	expect(t, s.do(t, call{method: http.MethodPost, path: "/api/v1/play/finish", token: me.Token}), http.StatusOK, &outcome)
	if !outcome.Terminated || !outcome.Session.Finished() {
		t.Fatalf("expected first_finish to end the session, got %+v", outcome)
	}

	var snap live.HostSnapshot
	expect(t, s.do(t, call{method: http.MethodGet, path: sessionPath(id, ""), bearer: host}), http.StatusOK, &snap)
	if snap.Phase != live.HostFinished {
		t.Fatalf("expected host view finished, got %s", snap.Phase)
	}
}

func TestParticipantToken(t *testing.T) {
	s := newServer(t)
	host := s.register(t, "host")
	quiz, _ := s.quiz(t, host, 1)
	first := s.host(t, host, quiz.ID)
	second := s.host(t, host, quiz.ID)
	ada := s.join(t, first.Session.Pin, "Ada")

	path := fmt.Sprintf("/api/v1/play/sessions/%d", first.Session.ID)
	expect(t, s.do(t, call{method: http.MethodGet, path: path}), http.StatusUnauthorized, nil)
	expect(t, s.do(t, call{method: http.MethodGet, path: path, token: "not-a-token"}), http.StatusUnauthorized, nil)
	expect(t, s.do(t, call{method: http.MethodGet, path: path, token: ada.Token}), http.StatusOK, nil)
	expectCode(t, s.do(t, call{
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/v1/play/sessions/%d", second.Session.ID),
		token:  ada.Token,
	}), http.StatusForbidden, "permission_denied")

	expectCode(t, s.do(t, call{method: http.MethodPost, path: "/api/v1/play/score", token: ada.Token}), http.StatusConflict, "scoring_too_early")
	expectCode(t, s.do(t, call{method: http.MethodPost, path: "/api/v1/play/finish", token: ada.Token}), http.StatusConflict, "session_not_started")

	expect(t, s.do(t, call{method: http.MethodPost, path: "/api/v1/play/leave", token: ada.Token}), http.StatusOK, nil)
	expect(t, s.do(t, call{method: http.MethodGet, path: path, token: ada.Token}), http.StatusUnauthorized, nil)
}

func TestJoinValidation(t *testing.T) {
	s := newServer(t)

	expect(t, s.do(t, call{method: http.MethodGet, path: "/api/v1/play/sessions?pin=12ab56"}), http.StatusBadRequest, nil)
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/play/join",
		body:   PlayJoinRequest{Pin: "12345", Nickname: "Ada"},
	}), http.StatusBadRequest, nil)
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/play/join",
		body:   PlayJoinRequest{Nickname: "Ada"},
	}), http.StatusBadRequest, nil)
	expectCode(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/play/join",
		body:   PlayJoinRequest{Pin: "000000", Nickname: "Ada"},
	}), http.StatusNotFound, "session_not_found")
}

func TestAuthErrors(t *testing.T) {
	s := newServer(t)
	s.register(t, "host")

	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/auth/register",
		body:   SignUpRequest{Username: "host", Password: "password123"},
	}), http.StatusConflict, nil)
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/auth/login",
		body:   SignInRequest{Username: "host", Password: "nope-nope"},
	}), http.StatusUnauthorized, nil)
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/auth/register",
		body:   map[string]string{"username": "x"},
	}), http.StatusBadRequest, nil)
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/auth/register",
		body:   SignUpRequest{Username: "   x   ", Password: "password123"},
	}), http.StatusBadRequest, nil)
}

func TestAccountNamesIgnoreSurroundingSpaces(t *testing.T) {
	s := newServer(t)

	var created AccountToken
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/auth/register",
		body:   SignUpRequest{Username: "  grace ", Password: "password123"},
	}), http.StatusCreated, &created)
	if created.Account == nil || created.Account.Username != "grace" {
		t.Fatalf("expected account grace, got %#v", created.Account)
	}

	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/auth/register",
		body:   SignUpRequest{Username: "grace", Password: "password123"},
	}), http.StatusConflict, nil)

	var signedIn AccountToken
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/auth/login",
		body:   SignInRequest{Username: "grace ", Password: "password123"},
	}), http.StatusOK, &signedIn)
	if signedIn.Token == "" || signedIn.Account.ID != created.Account.ID {
		t.Fatalf("expected a token for the same account, got %#v", signedIn)
	}

	// The token is accepted by the host API.
	quiz, _ := s.quiz(t, signedIn.Token, 1)
	s.host(t, signedIn.Token, quiz.ID)
}

func TestQuizLockedWhileLive(t *testing.T) {
	s := newServer(t)
	host := s.register(t, "host")
	quiz, questions := s.quiz(t, host, 1)
	created := s.host(t, host, quiz.ID)

	expectCode(t, s.do(t, call{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/api/v1/questions/%d", questions[0].ID),
		bearer: host,
	}), http.StatusConflict, "quiz_locked")

	expect(t, s.do(t, call{method: http.MethodPost, path: sessionPath(created.Session.ID, "/end"), bearer: host}), http.StatusOK, nil)
	expect(t, s.do(t, call{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/api/v1/quizzes/%d", quiz.ID),
		bearer: host,
	}), http.StatusOK, nil)
}
