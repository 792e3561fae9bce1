package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/services"

	"github.com/gin-gonic/gin"
)

const ParticipantTokenHeader = "X-Participant-Token"

func JWTAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		userID, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

type ParticipantLookup interface {
	ParticipantByToken(ctx context.Context, token string) (*models.Participant, error)
}

// ParticipantAuth resolves the token handed out on join to its participant.
func ParticipantAuth(lookup ParticipantLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(ParticipantTokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "participant token required"})
			return
		}

		participant, err := lookup.ParticipantByToken(c.Request.Context(), token)
		if errors.Is(err, game.ErrParticipantNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown participant token"})
			return
		}
		if err != nil {
			log.Printf("middleware: participant lookup: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "participant lookup failed"})
			return
		}

		c.Set("participant", participant)
		c.Next()
	}
}

// Participant returns what ParticipantAuth stored.
func Participant(c *gin.Context) *models.Participant {
	v, ok := c.Get("participant")
	if !ok {
		return nil
	}
	p, _ := v.(*models.Participant)
	return p
}
