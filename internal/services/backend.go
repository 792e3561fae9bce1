package services

import (
	"context"
	"time"

	"quiz-live-backend/internal/database"
	"quiz-live-backend/internal/realtime"

	"gorm.io/gorm"
)

// Backend is the data service the live controllers talk to: every store
// operation plus a connectivity probe.
type Backend struct {
	*QuizService
	*SessionService
	*ParticipantService
	*ResponseService
	*ScoringService

	db *gorm.DB
}

func NewBackend(db *gorm.DB, pub realtime.Publisher) *Backend {
	return &Backend{
		QuizService:        NewQuizService(db),
		SessionService:     NewSessionService(db, pub),
		ParticipantService: NewParticipantService(db, pub),
		ResponseService:    NewResponseService(db, pub),
		ScoringService:     NewScoringService(db, pub),
		db:                 db,
	}
}

// SetClock replaces the time source of the services that stamp rows.
func (b *Backend) SetClock(now func() time.Time) {
	b.SessionService.now = now
	b.ParticipantService.now = now
	b.ResponseService.now = now
	b.ScoringService.now = now
}

func (b *Backend) Ping(ctx context.Context) error {
	return database.Ping(ctx, b.db)
}
