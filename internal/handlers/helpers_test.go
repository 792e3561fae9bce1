package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-live-backend/internal/database"
	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/middleware"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"
	"quiz-live-backend/internal/services"
	"quiz-live-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	router  *gin.Engine
	backend *services.Backend
	manager *live.Manager
}

func newServer(t *testing.T) *server {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	bus := realtime.NewBus()
	backend := services.NewBackend(db, bus)
	manager := live.NewManager(backend, bus, live.SystemClock(), live.Options{Countdown: 0})
	t.Cleanup(manager.Shutdown)

	router := NewRouter(RouterDeps{
		Auth:          services.NewAuthService(db, "test-secret"),
		Backend:       backend,
		Manager:       manager,
		Hub:           ws.NewHub(bus),
		PublicBaseURL: "https://quiz.example/",
	})
	return &server{router: router, backend: backend, manager: manager}
}

type call struct {
	method string
	path   string
	body   any
	bearer string
	token  string
}

func (s *server) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&body).Encode(c.body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.token != "" {
		req.Header.Set(middleware.ParticipantTokenHeader, c.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// expect fails unless the response has the given status, then decodes it.
func expect(t *testing.T, w *httptest.ResponseRecorder, status int, out any) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	var resp ErrorResponse
	expect(t, w, status, &resp)
	if resp.Code != code {
		t.Fatalf("expected code %q, got %q (%s)", code, resp.Code, resp.Error)
	}
}

func (s *server) register(t *testing.T, username string) string {
	t.Helper()
	var resp AccountToken
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/auth/register",
		body:   SignUpRequest{Username: username, Password: "password123"},
	}), http.StatusCreated, &resp)
	return resp.Token
}

// quiz creates a quiz with n questions whose first answer is correct.
func (s *server) quiz(t *testing.T, bearer string, n int) (models.Quiz, []models.Question) {
	t.Helper()
	var quiz models.Quiz
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/quizzes",
		body:   services.QuizInput{Title: "Rivers"},
		bearer: bearer,
	}), http.StatusCreated, &quiz)

	var questions []models.Question
	for i := 0; i < n; i++ {
		var q models.Question
		expect(t, s.do(t, call{
			method: http.MethodPost,
			path:   fmt.Sprintf("/api/v1/quizzes/%d/questions", quiz.ID),
			body: services.QuestionInput{
				Text:      fmt.Sprintf("Question %d", i+1),
				TimeLimit: 20,
				Points:    1000,
				Answers: []services.AnswerInput{
					{Text: "Nile", IsCorrect: true},
					{Text: "Danube"},
				},
			},
			bearer: bearer,
		}), http.StatusCreated, &q)
		questions = append(questions, q)
	}
	return quiz, questions
}

func (s *server) host(t *testing.T, bearer string, quizID uint) CreateSessionResponse {
	t.Helper()
	var resp CreateSessionResponse
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/sessions",
		body:   CreateSessionRequest{QuizID: quizID},
		bearer: bearer,
	}), http.StatusCreated, &resp)
	return resp
}

func (s *server) join(t *testing.T, pin, nickname string) models.JoinResult {
	t.Helper()
	var result models.JoinResult
	expect(t, s.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/play/join",
		body:   PlayJoinRequest{Pin: pin, Nickname: nickname},
	}), http.StatusOK, &result)
	return result
}

func sessionPath(id uint, suffix string) string {
	return fmt.Sprintf("/api/v1/sessions/%d%s", id, suffix)
}
