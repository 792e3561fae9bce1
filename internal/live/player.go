package live

import (
	"context"

	"quiz-live-backend/internal/models"
)

// LocalPlayer serves the participant side in-process, straight from the
// shared backend. Finishing goes through the manager so a first_finish ends
// the session the same way a host would.
type LocalPlayer struct {
	backend Backend
	finish  func(ctx context.Context, participantID uint) (*FinishOutcome, error)
}

func NewLocalPlayer(backend Backend, finish func(ctx context.Context, participantID uint) (*FinishOutcome, error)) *LocalPlayer {
	return &LocalPlayer{backend: backend, finish: finish}
}

func (p *LocalPlayer) FindSessionByPin(ctx context.Context, pin string) (*models.Session, error) {
	return p.backend.FindSessionByPin(ctx, pin)
}

func (p *LocalPlayer) GetSession(ctx context.Context, sessionID uint) (*models.Session, error) {
	return p.backend.GetSession(ctx, sessionID)
}

func (p *LocalPlayer) JoinSession(ctx context.Context, sessionID uint, nickname string, userID *uint) (*models.JoinResult, error) {
	return p.backend.JoinSession(ctx, sessionID, nickname, userID)
}

// SessionQuestions returns the questions of the session's quiz in play order,
// without correctness.
func (p *LocalPlayer) SessionQuestions(ctx context.Context, sessionID uint) ([]models.PublicQuestion, error) {
	session, err := p.backend.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	questions, err := p.backend.ListQuestions(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicQuestion, 0, len(questions))
	for i := range questions {
		out = append(out, questions[i].Public())
	}
	return out, nil
}

func (p *LocalPlayer) LeaveSession(ctx context.Context, participantID uint) error {
	return p.backend.LeaveSession(ctx, participantID)
}

func (p *LocalPlayer) UpsertResponse(ctx context.Context, participantID uint, patch models.ResponsePatch) (*models.Response, error) {
	return p.backend.UpsertResponse(ctx, participantID, patch)
}

func (p *LocalPlayer) FinishParticipant(ctx context.Context, participantID uint) (*FinishOutcome, error) {
	return p.finish(ctx, participantID)
}

func (p *LocalPlayer) ComputeScore(ctx context.Context, participantID uint) (*models.Participant, error) {
	return p.backend.ComputeScore(ctx, participantID)
}

func (p *LocalPlayer) GetLeaderboard(ctx context.Context, sessionID uint) ([]models.LeaderboardEntry, error) {
	return p.backend.GetLeaderboard(ctx, sessionID)
}
