package handlers

import (
	"errors"
	"net/http"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/middleware"
	"quiz-live-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// PlayHandler serves participants. Everything after join is authenticated by
// the participant token and acts on that participant only.
type PlayHandler struct {
	player *live.LocalPlayer
}

func NewPlayHandler(player *live.LocalPlayer) *PlayHandler {
	return &PlayHandler{player: player}
}

type PlayJoinRequest struct {
	SessionID uint   `json:"session_id" example:"12"`
	Pin       string `json:"pin" binding:"omitempty,pin" example:"123456"`
	Nickname  string `json:"nickname" binding:"required,min=1,max=100" example:"Ada"`
}

type SessionLookupResponse struct {
	Session    *models.Session `json:"session"`
	PinDisplay string          `json:"pin_display" example:"123 456"`
}

// LookupSession godoc
// @Summary      Find a session by PIN
// @Description  Only waiting and active sessions can be found
// @Tags         play
// @Produce      json
// @Param        pin query string true "Six digit PIN"
// @Success      200 {object} SessionLookupResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/play/sessions [get]
func (h *PlayHandler) LookupSession(c *gin.Context) {
	pin := game.NormalizePin(c.Query("pin"))
	if !game.ValidPin(pin) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pin must be six digits"})
		return
	}

	session, err := h.player.FindSessionByPin(c.Request.Context(), pin)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionLookupResponse{Session: session, PinDisplay: game.FormatPin(session.Pin)})
}

// Join godoc
// @Summary      Join a session
// @Description  Join by PIN or session id. Joining again with the same nickname returns the same participant and token.
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        request body PlayJoinRequest true "Join data"
// @Success      200 {object} models.JoinResult
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/play/join [post]
func (h *PlayHandler) Join(c *gin.Context) {
	var req PlayJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sessionID := req.SessionID
	if sessionID == 0 {
		if req.Pin == "" {
			badRequest(c, errors.New("pin or session_id is required"))
			return
		}
		session, err := h.player.FindSessionByPin(c.Request.Context(), game.NormalizePin(req.Pin))
		if err != nil {
			respondError(c, err)
			return
		}
		sessionID = session.ID
	}

	result, err := h.player.JoinSession(c.Request.Context(), sessionID, req.Nickname, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ownSession checks the :id path parameter against the token's session.
func ownSession(c *gin.Context) (*models.Participant, bool) {
	participant := middleware.Participant(c)
	sessionID, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	if participant == nil || participant.SessionID != sessionID {
		respondError(c, game.ErrPermissionDenied)
		return nil, false
	}
	return participant, true
}

// GetSession godoc
// @Summary      Session state for a participant
// @Tags         play
// @Produce      json
// @Param        X-Participant-Token header string true "Participant token"
// @Param        id path int true "Session ID"
// @Success      200 {object} Session
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/play/sessions/{id} [get]
func (h *PlayHandler) GetSession(c *gin.Context) {
	participant, ok := ownSession(c)
	if !ok {
		return
	}

	session, err := h.player.GetSession(c.Request.Context(), participant.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetQuestions godoc
// @Summary      Questions of the session
// @Description  Questions in order with their answers, without correctness
// @Tags         play
// @Produce      json
// @Param        X-Participant-Token header string true "Participant token"
// @Param        id path int true "Session ID"
// @Success      200 {array} models.PublicQuestion
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/play/sessions/{id}/questions [get]
func (h *PlayHandler) GetQuestions(c *gin.Context) {
	participant, ok := ownSession(c)
	if !ok {
		return
	}

	questions, err := h.player.SessionQuestions(c.Request.Context(), participant.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// SaveResponse godoc
// @Summary      Record an interaction with a question
// @Description  Visit, select or leave a question. Earliest start and latest answer win.
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        X-Participant-Token header string true "Participant token"
// @Param        request body models.ResponsePatch true "Response patch"
// @Success      200 {object} Response
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/play/responses [put]
func (h *PlayHandler) SaveResponse(c *gin.Context) {
	var req models.ResponsePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.player.UpsertResponse(c.Request.Context(), middleware.Participant(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Finish godoc
// @Summary      Finish answering
// @Description  Under first_finish this ends the session for everyone
// @Tags         play
// @Produce      json
// @Param        X-Participant-Token header string true "Participant token"
// @Success      200 {object} live.FinishOutcome
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/play/finish [post]
func (h *PlayHandler) Finish(c *gin.Context) {
	outcome, err := h.player.FinishParticipant(c.Request.Context(), middleware.Participant(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// Score godoc
// @Summary      Compute own score
// @Description  Allowed once the participant or the session has finished. Repeating yields the same score.
// @Tags         play
// @Produce      json
// @Param        X-Participant-Token header string true "Participant token"
// @Success      200 {object} Participant
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/play/score [post]
func (h *PlayHandler) Score(c *gin.Context) {
	participant, err := h.player.ComputeScore(c.Request.Context(), middleware.Participant(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, participant)
}

// Leave godoc
// @Summary      Leave the waiting room
// @Tags         play
// @Produce      json
// @Param        X-Participant-Token header string true "Participant token"
// @Success      200 {object} MessageResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/play/leave [post]
func (h *PlayHandler) Leave(c *gin.Context) {
	if err := h.player.LeaveSession(c.Request.Context(), middleware.Participant(c).ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "left session"})
}

// GetLeaderboard godoc
// @Summary      Session leaderboard
// @Tags         play
// @Produce      json
// @Param        X-Participant-Token header string true "Participant token"
// @Param        id path int true "Session ID"
// @Success      200 {array} LeaderboardEntry
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/play/sessions/{id}/leaderboard [get]
func (h *PlayHandler) GetLeaderboard(c *gin.Context) {
	participant, ok := ownSession(c)
	if !ok {
		return
	}

	entries, err := h.player.GetLeaderboard(c.Request.Context(), participant.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
