package handlers

import (
	"net/http"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	manager *live.Manager
	backend *services.Backend
	baseURL string
}

func NewSessionHandler(manager *live.Manager, backend *services.Backend, baseURL string) *SessionHandler {
	return &SessionHandler{manager: manager, backend: backend, baseURL: baseURL}
}

type CreateSessionRequest struct {
	QuizID uint `json:"quiz_id" binding:"required" example:"1"`
}

type CreateSessionResponse struct {
	Session    *models.Session `json:"session"`
	PinDisplay string          `json:"pin_display" example:"123 456"`
	JoinURL    string          `json:"join_url" example:"http://localhost:8080/join?pin=123456"`
}

type HostPlayRequest struct {
	Nickname string `json:"nickname" binding:"required,min=1,max=100" example:"Quizmaster"`
}

type EndSessionResponse struct {
	Session *models.Session `json:"session"`
	Scored  int             `json:"scored"`
	Failed  int             `json:"failed"`
}

// CreateSession godoc
// @Summary      Host a quiz
// @Description  Create a waiting session with a unique six digit PIN
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSessionRequest true "Session data"
// @Success      201 {object} CreateSessionResponse
// @Failure      403 {object} HostingErrorResponse
// @Failure      404 {object} HostingErrorResponse
// @Failure      422 {object} HostingErrorResponse
// @Failure      503 {object} HostingErrorResponse
// @Router       /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctrl, err := h.manager.Host(c.Request.Context(), req.QuizID, c.GetUint("user_id"))
	if err != nil {
		respondHostingError(c, err)
		return
	}

	session := ctrl.Snapshot().Session
	c.JSON(http.StatusCreated, CreateSessionResponse{
		Session:    session,
		PinDisplay: game.FormatPin(session.Pin),
		JoinURL:    game.JoinURL(h.baseURL, session.Pin),
	})
}

// ListSessions godoc
// @Summary      List host sessions
// @Description  All sessions of the authenticated host, newest first
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} services.SessionSummary
// @Router       /api/v1/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.backend.ListHostSessions(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) controller(c *gin.Context) (*live.HostController, bool) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	ctrl, err := h.manager.ControllerFor(c.Request.Context(), sessionID, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ctrl, true
}

// GetSession godoc
// @Summary      Host view of a session
// @Description  Phase, roster, whether start is allowed and the remaining countdown and play time
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} live.HostSnapshot
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctrl.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// ConfigureSession godoc
// @Summary      Configure a waiting session
// @Description  Set the total time limit and the end mode before starting
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body models.SessionConfig true "Configuration"
// @Success      200 {object} Session
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/config [put]
func (h *SessionHandler) ConfigureSession(c *gin.Context) {
	var req models.SessionConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	session, err := ctrl.Configure(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// StartSession godoc
// @Summary      Start the game
// @Description  Begin the shared countdown; play starts when it elapses
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} Session
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	session, err := ctrl.Start(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// EndSession godoc
// @Summary      End the game
// @Description  Finish the session and score every participant. Ending twice is harmless.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} EndSessionResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/end [post]
func (h *SessionHandler) EndSession(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	report, err := ctrl.End(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, EndSessionResponse{Session: report.Session, Scored: report.Scored, Failed: report.Failed})
}

// HostPlay godoc
// @Summary      Join your own session as a player
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body HostPlayRequest true "Nickname"
// @Success      200 {object} models.JoinResult
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/play [post]
func (h *SessionHandler) HostPlay(c *gin.Context) {
	var req HostPlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	userID := c.GetUint("user_id")
	result, err := h.backend.JoinSession(c.Request.Context(), ctrl.SessionID(), req.Nickname, &userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLeaderboard godoc
// @Summary      Session leaderboard
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} LeaderboardEntry
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/leaderboard [get]
func (h *SessionHandler) GetLeaderboard(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	entries, err := h.backend.GetLeaderboard(c.Request.Context(), ctrl.SessionID())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ListEvents godoc
// @Summary      Session event log
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} SessionEvent
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/events [get]
func (h *SessionHandler) ListEvents(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	events, err := h.backend.ListEvents(c.Request.Context(), ctrl.SessionID())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}
