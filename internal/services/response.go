package services

import (
	"context"
	"time"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponseService struct {
	db  *gorm.DB
	pub realtime.Publisher
	now func() time.Time
}

func NewResponseService(db *gorm.DB, pub realtime.Publisher) *ResponseService {
	return &ResponseService{db: db, pub: pub, now: utcNow}
}

// UpsertResponse records one interaction of a participant with a question.
// There is a single row per (participant, question): started_at is kept from
// the first visit, answer_id is overwritten, ended_at follows the last
// departure. Timestamps come from the client and are clamped to what the
// server has seen: started_at into [session start, now], ended_at into
// [started_at, now]. Nothing is accepted during the countdown. Once the
// participant or the session is finished only a missing ended_at can still
// be filled, and never past the finish time.
func (s *ResponseService) UpsertResponse(ctx context.Context, participantID uint, patch models.ResponsePatch) (*models.Response, error) {
	participant, err := loadParticipant(ctx, s.db, participantID)
	if err != nil {
		return nil, err
	}
	session, err := loadSession(ctx, s.db, participant.SessionID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if session.Status == game.StatusWaiting || (session.StartedAt != nil && now.Before(*session.StartedAt)) {
		return nil, game.ErrSessionNotStarted
	}

	var question models.Question
	err = s.db.WithContext(ctx).
		Where("id = ? AND quiz_id = ?", patch.QuestionID, session.QuizID).
		Preload("Answers").
		First(&question).Error
	if err != nil {
		return nil, notFound(err, game.ErrQuestionNotFound)
	}

	var selected *models.Answer
	if patch.AnswerID != nil {
		for i := range question.Answers {
			if question.Answers[i].ID == *patch.AnswerID {
				selected = &question.Answers[i]
				break
			}
		}
		if selected == nil {
			return nil, game.ErrInvalidAnswer
		}
	}

	// freezeAt is the moment this participant's answers stopped counting.
	var freezeAt *time.Time
	var frozenErr error
	switch {
	case session.Finished():
		freezeAt, frozenErr = session.EndedAt, game.ErrSessionFinished
	case participant.Status == game.ParticipantFinished:
		freezeAt, frozenErr = participant.FinishedAt, game.ErrParticipantFinished
	}
	if frozenErr != nil && (selected != nil || patch.StartedAt != nil) {
		return nil, frozenErr
	}

	var row models.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if frozenErr == nil {
			seed := models.Response{
				SessionID:     session.ID,
				ParticipantID: participantID,
				QuestionID:    question.ID,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "participant_id"}, {Name: "question_id"}},
				DoNothing: true,
			}).Create(&seed).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("participant_id = ? AND question_id = ?", participantID, question.ID).First(&row).Error; err != nil {
			if frozenErr != nil {
				return notFound(err, frozenErr)
			}
			return err
		}

		changes := map[string]any{}
		startedAt := row.StartedAt
		if patch.StartedAt != nil && row.StartedAt == nil {
			started := clampTime(patch.StartedAt.UTC(), session.StartedAt, &now)
			changes["started_at"] = started
			startedAt = &started
		}
		if selected != nil {
			changes["answer_id"] = selected.ID
			changes["is_correct"] = selected.IsCorrect
		}
		if patch.EndedAt != nil && (frozenErr == nil || row.EndedAt == nil) {
			upper := &now
			if freezeAt != nil && freezeAt.Before(now) {
				upper = freezeAt
			}
			lower := startedAt
			if lower == nil {
				lower = session.StartedAt
			}
			changes["ended_at"] = clampTime(patch.EndedAt.UTC(), lower, upper)
		}
		if len(changes) == 0 {
			return nil
		}
		update := tx.Model(&row)
		if frozenErr == nil {
			// Guard against a finish that landed after the checks above.
			update = update.Where(
				"EXISTS (SELECT 1 FROM sessions WHERE sessions.id = ? AND sessions.status = ?) AND "+
					"EXISTS (SELECT 1 FROM participants WHERE participants.id = ? AND participants.status = ?)",
				session.ID, game.StatusActive, participantID, game.ParticipantActive,
			)
		}
		res := update.Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return game.ErrSessionFinished
		}
		return tx.First(&row, row.ID).Error
	})
	if err != nil {
		return nil, err
	}

	publish(s.pub, realtime.TableResponses, realtime.ChangeUpdate, session.ID, row.ID, nil)
	return &row, nil
}

// FinalizeResponses closes every open response of a session, or of one
// participant in it, at the given time.
func (s *ResponseService) FinalizeResponses(ctx context.Context, sessionID uint, participantID *uint, at time.Time) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Response{}).
		Where("session_id = ? AND ended_at IS NULL", sessionID)
	if participantID != nil {
		q = q.Where("participant_id = ?", *participantID)
	}
	res := q.Updates(map[string]any{"ended_at": at.UTC(), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		publish(s.pub, realtime.TableResponses, realtime.ChangeUpdate, sessionID, 0, nil)
	}
	return res.RowsAffected, nil
}

func (s *ResponseService) ListResponses(ctx context.Context, participantID uint) ([]models.Response, error) {
	var responses []models.Response
	err := s.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("question_id ASC").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// clampTime bounds t to [lower, upper]; a nil bound is open. The upper bound
// wins when the two cross.
func clampTime(t time.Time, lower, upper *time.Time) time.Time {
	if lower != nil && t.Before(*lower) {
		t = lower.UTC()
	}
	if upper != nil && t.After(*upper) {
		t = upper.UTC()
	}
	return t
}
