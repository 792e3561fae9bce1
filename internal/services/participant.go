package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"quiz-live-backend/internal/database"
	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ParticipantService struct {
	db  *gorm.DB
	pub realtime.Publisher
	now func() time.Time
}

func NewParticipantService(db *gorm.DB, pub realtime.Publisher) *ParticipantService {
	return &ParticipantService{db: db, pub: pub, now: utcNow}
}

// JoinSession registers nickname in a waiting or running session. Joining again
// with the same nickname returns the existing participant.
func (s *ParticipantService) JoinSession(ctx context.Context, sessionID uint, nickname string, userID *uint) (*models.JoinResult, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, game.ErrNicknameRequired
	}

	session, err := loadSession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finished() {
		return nil, game.ErrSessionFinished
	}

	if existing, err := s.byNickname(ctx, sessionID, nickname); err == nil {
		return &models.JoinResult{Participant: *existing, Token: existing.Token, Session: *session}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	participant := models.Participant{
		SessionID: sessionID,
		UserID:    userID,
		Nickname:  nickname,
		Token:     uuid.NewString(),
		Status:    game.ParticipantActive,
		JoinedAt:  s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&participant).Error; err != nil {
			return err
		}
		return recordEvent(tx, sessionID, &participant.ID, models.EventParticipantJoined, map[string]any{
			"nickname": nickname,
		})
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			// Lost a race with a join under the same nickname.
			existing, findErr := s.byNickname(ctx, sessionID, nickname)
			if findErr != nil {
				return nil, findErr
			}
			return &models.JoinResult{Participant: *existing, Token: existing.Token, Session: *session}, nil
		}
		return nil, err
	}

	publish(s.pub, realtime.TableParticipants, realtime.ChangeInsert, sessionID, participant.ID, participant)
	return &models.JoinResult{Participant: participant, Token: participant.Token, Session: *session}, nil
}

func (s *ParticipantService) byNickname(ctx context.Context, sessionID uint, nickname string) (*models.Participant, error) {
	var participant models.Participant
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND nickname = ?", sessionID, nickname).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (s *ParticipantService) GetParticipant(ctx context.Context, participantID uint) (*models.Participant, error) {
	return loadParticipant(ctx, s.db, participantID)
}

func (s *ParticipantService) ParticipantByToken(ctx context.Context, token string) (*models.Participant, error) {
	if token == "" {
		return nil, game.ErrParticipantNotFound
	}
	var participant models.Participant
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&participant).Error; err != nil {
		return nil, notFound(err, game.ErrParticipantNotFound)
	}
	return &participant, nil
}

// ListParticipants orders by score, then join time.
func (s *ParticipantService) ListParticipants(ctx context.Context, sessionID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("score DESC, joined_at ASC, id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// LeaveSession removes a participant before the game starts.
func (s *ParticipantService) LeaveSession(ctx context.Context, participantID uint) error {
	participant, err := loadParticipant(ctx, s.db, participantID)
	if err != nil {
		return err
	}
	session, err := loadSession(ctx, s.db, participant.SessionID)
	if err != nil {
		return err
	}
	if session.Status != game.StatusWaiting {
		return game.ErrSessionStarted
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Participant{}, participantID).Error; err != nil {
			return err
		}
		return recordEvent(tx, session.ID, &participant.ID, models.EventParticipantLeft, map[string]any{
			"nickname": participant.Nickname,
		})
	})
	if err != nil {
		return err
	}

	publish(s.pub, realtime.TableParticipants, realtime.ChangeDelete, session.ID, participantID, nil)
	return nil
}

// MarkParticipantFinished records that a participant is done answering. The
// first finish time wins.
func (s *ParticipantService) MarkParticipantFinished(ctx context.Context, participantID uint, at time.Time) (*models.Participant, error) {
	participant, err := loadParticipant(ctx, s.db, participantID)
	if err != nil {
		return nil, err
	}
	if participant.Status == game.ParticipantFinished {
		return participant, nil
	}

	at = at.UTC()
	applied := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Participant{}).
			Where("id = ? AND status = ?", participantID, game.ParticipantActive).
			Updates(map[string]any{
				"status":      game.ParticipantFinished,
				"finished_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return recordEvent(tx, participant.SessionID, &participant.ID, models.EventParticipantFinished, map[string]any{
			"finished_at": at,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := loadParticipant(ctx, s.db, participantID)
	if err != nil {
		return nil, err
	}
	if applied {
		publish(s.pub, realtime.TableParticipants, realtime.ChangeUpdate, updated.SessionID, updated.ID, updated)
	}
	return updated, nil
}
