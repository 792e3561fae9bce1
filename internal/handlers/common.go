package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	Code  string `json:"code,omitempty" example:"session_finished"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

type HostingErrorResponse struct {
	Error  string `json:"error" example:"quiz has no questions"`
	Kind   string `json:"kind" example:"no_questions"`
	Hint   string `json:"hint" example:"Add at least one question before hosting."`
	Detail string `json:"detail,omitempty"`
}

// Type aliases so swag can resolve models in annotations.
type Quiz = models.Quiz
type Question = models.Question
type Session = models.Session
type Participant = models.Participant
type Response = models.Response
type LeaderboardEntry = models.LeaderboardEntry
type SessionEvent = models.SessionEvent

var conflicts = []error{
	game.ErrPinTaken,
	game.ErrStatusRegression,
	game.ErrSessionStarted,
	game.ErrSessionNotStarted,
	game.ErrSessionFinished,
	game.ErrParticipantFinished,
	game.ErrNoParticipants,
	game.ErrScoringTooEarly,
	game.ErrQuizLocked,
	live.ErrWrongPhase,
	live.ErrClosed,
	services.ErrUsernameTaken,
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrQuizNotFound),
		errors.Is(err, game.ErrQuestionNotFound),
		errors.Is(err, game.ErrSessionNotFound),
		errors.Is(err, game.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrNoQuestions):
		return http.StatusUnprocessableEntity
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	if game.IsPermanent(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err with its status and wire code. Unexpected errors
// are logged and not echoed.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("handlers: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: game.Code(err)})
}

func hostingStatus(kind live.HostingKind) int {
	switch kind {
	case live.KindPermission:
		return http.StatusForbidden
	case live.KindNotFound:
		return http.StatusNotFound
	case live.KindNoQuestions:
		return http.StatusUnprocessableEntity
	case live.KindConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondHostingError(c *gin.Context, err error) {
	var he *live.HostingError
	if !errors.As(err, &he) {
		respondError(c, err)
		return
	}
	resp := HostingErrorResponse{Error: he.Message(), Kind: string(he.Kind), Hint: he.Hint()}
	if he.Err != nil {
		resp.Detail = he.Err.Error()
	}
	if he.Kind == live.KindUnknown {
		log.Printf("handlers: hosting failed: %v", he.Err)
	}
	c.JSON(hostingStatus(he.Kind), resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// RegisterValidators adds the pin and endmode binding tags.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return game.ValidPin(game.NormalizePin(fl.Field().String()))
	})
	v.RegisterValidation("endmode", func(fl validator.FieldLevel) bool {
		return game.ValidEndMode(fl.Field().String())
	})
}
