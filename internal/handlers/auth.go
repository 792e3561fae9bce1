package handlers

import (
	"net/http"
	"strings"

	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues bearer tokens for accounts. An account owns quizzes,
// hosts sessions of them and can join its own sessions through
// /sessions/:id/play. Anonymous players never hold one.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100" example:"quizmaster"`
	Password string `json:"password" binding:"required,min=6" example:"password123"`
}

type SignInRequest struct {
	Username string `json:"username" binding:"required" example:"quizmaster"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// AccountToken is the bearer token for the host API together with the
// account it belongs to.
type AccountToken struct {
	Token   string       `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
	Account *models.User `json:"user"`
}

// Usernames are matched after trimming surrounding spaces.
func accountName(username string) string {
	return strings.TrimSpace(username)
}

// Register godoc
// @Summary      Create a host account
// @Description  Creates an account that can author quizzes and host live sessions, and returns its bearer token. The same account may play its own sessions via /sessions/{id}/play; anonymous players join by PIN without an account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignUpRequest true "Username and password"
// @Success      201 {object} AccountToken
// @Failure      400 {object} ErrorResponse "invalid username or password"
// @Failure      409 {object} ErrorResponse "username already taken"
// @Router       /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	username := accountName(req.Username)
	if len(username) < 3 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username must have at least 3 characters"})
		return
	}

	token, account, err := h.authService.Register(username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AccountToken{Token: token, Account: account})
}

// Login godoc
// @Summary      Sign in to a host account
// @Description  Exchanges username and password for a bearer token. The token authorizes quiz authoring, hosting and the host's own play endpoints; it is not needed to join by PIN.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Username and password"
// @Success      200 {object} AccountToken
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse "unknown username or wrong password"
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, account, err := h.authService.Login(accountName(req.Username), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AccountToken{Token: token, Account: account})
}
