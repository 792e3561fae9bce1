package live

import (
	"context"
	"log"
	"time"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
)

type TerminateReport struct {
	Session *models.Session
	Scored  int
	Failed  int
}

// TerminateSession finishes a session and scores everyone in it. Finishing an
// already finished session keeps its ended_at and rescoring is harmless, so
// the whole procedure can be repeated. One participant failing to score does
// not stop the others.
func TerminateSession(ctx context.Context, b Backend, sessionID uint, now time.Time) (*TerminateReport, error) {
	session, err := b.UpdateSession(ctx, sessionID, models.SessionUpdate{
		Status:  game.StatusFinished,
		EndedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	endedAt := now
	if session.EndedAt != nil {
		endedAt = *session.EndedAt
	}

	if _, err := b.FinalizeResponses(ctx, sessionID, nil, endedAt); err != nil {
		log.Printf("live: session %d: finalize responses: %v", sessionID, err)
	}

	participants, err := b.ListParticipants(ctx, sessionID)
	if err != nil {
		return &TerminateReport{Session: session}, err
	}

	report := &TerminateReport{Session: session}
	for _, p := range participants {
		if _, err := b.MarkParticipantFinished(ctx, p.ID, endedAt); err != nil {
			log.Printf("live: session %d: finish participant %d: %v", sessionID, p.ID, err)
			report.Failed++
			continue
		}
		if _, err := b.ComputeScore(ctx, p.ID); err != nil {
			log.Printf("live: session %d: score participant %d: %v", sessionID, p.ID, err)
			report.Failed++
			continue
		}
		report.Scored++
	}
	log.Printf("live: session %d finished, %d scored, %d failed", sessionID, report.Scored, report.Failed)
	return report, nil
}

type FinishOutcome struct {
	Participant *models.Participant `json:"participant"`
	Session     *models.Session     `json:"session"`
	// Terminated is true when this finish ended the session for everyone.
	Terminated bool `json:"terminated"`
}

// FinishParticipant handles a participant pressing finish. Under first_finish
// the whole session ends and everyone is scored; under wait_timer only the
// caller is finalised and the session keeps running.
func FinishParticipant(ctx context.Context, b Backend, participantID uint, now time.Time) (*FinishOutcome, error) {
	participant, err := b.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	session, err := b.GetSession(ctx, participant.SessionID)
	if err != nil {
		return nil, err
	}

	switch {
	case session.Status == game.StatusWaiting:
		return nil, game.ErrSessionNotStarted

	case session.Finished():
		// Someone else ended it first; settle this participant against the
		// recorded end.
		endedAt := now
		if session.EndedAt != nil {
			endedAt = *session.EndedAt
		}
		scored, err := finishOne(ctx, b, participant, endedAt)
		if err != nil {
			return nil, err
		}
		return &FinishOutcome{Participant: scored, Session: session}, nil

	case session.GameEndMode == game.EndModeFirstFinish:
		if _, err := b.MarkParticipantFinished(ctx, participantID, now); err != nil {
			return nil, err
		}
		report, err := TerminateSession(ctx, b, session.ID, now)
		if err != nil {
			return nil, err
		}
		updated, err := b.GetParticipant(ctx, participantID)
		if err != nil {
			return nil, err
		}
		return &FinishOutcome{Participant: updated, Session: report.Session, Terminated: true}, nil

	default:
		scored, err := finishOne(ctx, b, participant, now)
		if err != nil {
			return nil, err
		}
		return &FinishOutcome{Participant: scored, Session: session}, nil
	}
}

func finishOne(ctx context.Context, b Backend, participant *models.Participant, at time.Time) (*models.Participant, error) {
	finished, err := b.MarkParticipantFinished(ctx, participant.ID, at)
	if err != nil {
		return nil, err
	}
	closeAt := at
	if finished.FinishedAt != nil {
		closeAt = *finished.FinishedAt
	}
	if _, err := b.FinalizeResponses(ctx, participant.SessionID, &participant.ID, closeAt); err != nil {
		return nil, err
	}
	return b.ComputeScore(ctx, participant.ID)
}
