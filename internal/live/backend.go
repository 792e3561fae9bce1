package live

import (
	"context"
	"time"

	"quiz-live-backend/internal/models"
)

// Backend is the shared store the controllers drive. services.Backend
// implements it over gorm.
type Backend interface {
	Ping(ctx context.Context) error
	GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error)
	ListQuestions(ctx context.Context, quizID uint) ([]models.Question, error)

	CreateSession(ctx context.Context, quizID, hostID uint, pin string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID uint) (*models.Session, error)
	FindSessionByPin(ctx context.Context, pin string) (*models.Session, error)
	PinInUse(ctx context.Context, pin string) (bool, error)
	UpdateSession(ctx context.Context, sessionID uint, upd models.SessionUpdate) (*models.Session, error)
	ListLiveSessions(ctx context.Context) ([]models.Session, error)

	JoinSession(ctx context.Context, sessionID uint, nickname string, userID *uint) (*models.JoinResult, error)
	GetParticipant(ctx context.Context, participantID uint) (*models.Participant, error)
	ListParticipants(ctx context.Context, sessionID uint) ([]models.Participant, error)
	LeaveSession(ctx context.Context, participantID uint) error
	MarkParticipantFinished(ctx context.Context, participantID uint, at time.Time) (*models.Participant, error)

	UpsertResponse(ctx context.Context, participantID uint, patch models.ResponsePatch) (*models.Response, error)
	FinalizeResponses(ctx context.Context, sessionID uint, participantID *uint, at time.Time) (int64, error)

	ComputeScore(ctx context.Context, participantID uint) (*models.Participant, error)
	GetLeaderboard(ctx context.Context, sessionID uint) ([]models.LeaderboardEntry, error)
}

// PlayerBackend is what a participant may call. It is served in-process by
// LocalPlayer and over HTTP by apiclient.Client.
type PlayerBackend interface {
	FindSessionByPin(ctx context.Context, pin string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID uint) (*models.Session, error)
	JoinSession(ctx context.Context, sessionID uint, nickname string, userID *uint) (*models.JoinResult, error)
	SessionQuestions(ctx context.Context, sessionID uint) ([]models.PublicQuestion, error)
	LeaveSession(ctx context.Context, participantID uint) error
	UpsertResponse(ctx context.Context, participantID uint, patch models.ResponsePatch) (*models.Response, error)
	FinishParticipant(ctx context.Context, participantID uint) (*FinishOutcome, error)
	ComputeScore(ctx context.Context, participantID uint) (*models.Participant, error)
	GetLeaderboard(ctx context.Context, sessionID uint) ([]models.LeaderboardEntry, error)
}

type Options struct {
	// Countdown is the lead time between pressing start and play.
	Countdown      time.Duration
	PinMaxAttempts int
	PollInterval   time.Duration
	// RetryInterval spaces retries of a failed deadline termination.
	RetryInterval time.Duration
	NewPin        func() string
}

func (o Options) withDefaults() Options {
	if o.Countdown < 0 {
		o.Countdown = 0
	}
	if o.PinMaxAttempts <= 0 {
		o.PinMaxAttempts = 20
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 5 * time.Second
	}
	if o.NewPin == nil {
		o.NewPin = defaultPin
	}
	return o
}
