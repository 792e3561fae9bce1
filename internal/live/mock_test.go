package live

import (
	"context"
	"time"

	"quiz-live-backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockBackend) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	args := m.Called(ctx, quizID)
	quiz, _ := args.Get(0).(*models.Quiz)
	return quiz, args.Error(1)
}

func (m *mockBackend) ListQuestions(ctx context.Context, quizID uint) ([]models.Question, error) {
	args := m.Called(ctx, quizID)
	questions, _ := args.Get(0).([]models.Question)
	return questions, args.Error(1)
}

func (m *mockBackend) CreateSession(ctx context.Context, quizID, hostID uint, pin string) (*models.Session, error) {
	args := m.Called(ctx, quizID, hostID, pin)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func (m *mockBackend) GetSession(ctx context.Context, sessionID uint) (*models.Session, error) {
	args := m.Called(ctx, sessionID)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func (m *mockBackend) FindSessionByPin(ctx context.Context, pin string) (*models.Session, error) {
	args := m.Called(ctx, pin)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func (m *mockBackend) PinInUse(ctx context.Context, pin string) (bool, error) {
	args := m.Called(ctx, pin)
	return args.Bool(0), args.Error(1)
}

func (m *mockBackend) UpdateSession(ctx context.Context, sessionID uint, upd models.SessionUpdate) (*models.Session, error) {
	args := m.Called(ctx, sessionID, upd)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func (m *mockBackend) ListLiveSessions(ctx context.Context) ([]models.Session, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]models.Session)
	return sessions, args.Error(1)
}

func (m *mockBackend) JoinSession(ctx context.Context, sessionID uint, nickname string, userID *uint) (*models.JoinResult, error) {
	args := m.Called(ctx, sessionID, nickname, userID)
	res, _ := args.Get(0).(*models.JoinResult)
	return res, args.Error(1)
}

func (m *mockBackend) GetParticipant(ctx context.Context, participantID uint) (*models.Participant, error) {
	args := m.Called(ctx, participantID)
	p, _ := args.Get(0).(*models.Participant)
	return p, args.Error(1)
}

func (m *mockBackend) ListParticipants(ctx context.Context, sessionID uint) ([]models.Participant, error) {
	args := m.Called(ctx, sessionID)
	ps, _ := args.Get(0).([]models.Participant)
	return ps, args.Error(1)
}

func (m *mockBackend) LeaveSession(ctx context.Context, participantID uint) error {
	return m.Called(ctx, participantID).Error(0)
}

func (m *mockBackend) MarkParticipantFinished(ctx context.Context, participantID uint, at time.Time) (*models.Participant, error) {
	args := m.Called(ctx, participantID, at)
	p, _ := args.Get(0).(*models.Participant)
	return p, args.Error(1)
}

func (m *mockBackend) UpsertResponse(ctx context.Context, participantID uint, patch models.ResponsePatch) (*models.Response, error) {
	args := m.Called(ctx, participantID, patch)
	r, _ := args.Get(0).(*models.Response)
	return r, args.Error(1)
}

func (m *mockBackend) FinalizeResponses(ctx context.Context, sessionID uint, participantID *uint, at time.Time) (int64, error) {
	args := m.Called(ctx, sessionID, participantID, at)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *mockBackend) ComputeScore(ctx context.Context, participantID uint) (*models.Participant, error) {
	args := m.Called(ctx, participantID)
	p, _ := args.Get(0).(*models.Participant)
	return p, args.Error(1)
}

func (m *mockBackend) GetLeaderboard(ctx context.Context, sessionID uint) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, sessionID)
	board, _ := args.Get(0).([]models.LeaderboardEntry)
	return board, args.Error(1)
}
