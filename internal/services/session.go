package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-live-backend/internal/database"
	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"

	"gorm.io/gorm"
)

// updateAttempts bounds the compare-and-set loop in UpdateSession.
const updateAttempts = 3

var errConcurrentUpdate = errors.New("session changed concurrently")

type SessionService struct {
	db  *gorm.DB
	pub realtime.Publisher
	now func() time.Time
}

func NewSessionService(db *gorm.DB, pub realtime.Publisher) *SessionService {
	return &SessionService{db: db, pub: pub, now: utcNow}
}

// CreateSession inserts a waiting session under pin. A pin already held by a
// live session yields game.ErrPinTaken.
func (s *SessionService) CreateSession(ctx context.Context, quizID, hostID uint, pin string) (*models.Session, error) {
	if !game.ValidPin(pin) {
		return nil, fmt.Errorf("%w: malformed pin", game.ErrInvalidUpdate)
	}

	session := models.Session{
		QuizID:      quizID,
		HostID:      hostID,
		Pin:         pin,
		Status:      game.StatusWaiting,
		GameEndMode: game.EndModeWaitTimer,
		CreatedAt:   s.now(),
	}
	session.UpdatedAt = session.CreatedAt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		return recordEvent(tx, session.ID, nil, models.EventSessionCreated, map[string]any{
			"quiz_id": quizID,
			"pin":     pin,
		})
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, game.ErrPinTaken
		}
		return nil, err
	}

	publish(s.pub, realtime.TableSessions, realtime.ChangeInsert, session.ID, session.ID, session)
	return &session, nil
}

func (s *SessionService) GetSession(ctx context.Context, sessionID uint) (*models.Session, error) {
	return loadSession(ctx, s.db, sessionID)
}

// FindSessionByPin resolves a join code to its live session.
func (s *SessionService) FindSessionByPin(ctx context.Context, pin string) (*models.Session, error) {
	pin = game.NormalizePin(pin)
	if !game.ValidPin(pin) {
		return nil, game.ErrSessionNotFound
	}

	var session models.Session
	err := s.db.WithContext(ctx).
		Where("pin = ? AND status <> ?", pin, game.StatusFinished).
		First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var past int64
	if err := s.db.WithContext(ctx).Model(&models.Session{}).Where("pin = ?", pin).Count(&past).Error; err != nil {
		return nil, err
	}
	if past > 0 {
		return nil, game.ErrSessionFinished
	}
	return nil, game.ErrSessionNotFound
}

func (s *SessionService) PinInUse(ctx context.Context, pin string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("pin = ? AND status <> ?", pin, game.StatusFinished).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type plannedEvent struct {
	typ     string
	payload map[string]any
}

// planSessionUpdate turns a requested update into column changes against the
// current row. An empty change set means the request is already satisfied.
func planSessionUpdate(current *models.Session, upd models.SessionUpdate, now time.Time) (map[string]any, []plannedEvent, error) {
	changes := map[string]any{}
	var events []plannedEvent

	if upd.Config != nil {
		if current.Status != game.StatusWaiting {
			return nil, nil, game.ErrSessionStarted
		}
		if upd.Config.TotalTimeMinutes != nil && *upd.Config.TotalTimeMinutes <= 0 {
			return nil, nil, fmt.Errorf("%w: total_time_minutes must be positive", game.ErrInvalidConfig)
		}
		if upd.Config.GameEndMode != "" && !game.ValidEndMode(upd.Config.GameEndMode) {
			return nil, nil, fmt.Errorf("%w: unknown game_end_mode %q", game.ErrInvalidConfig, upd.Config.GameEndMode)
		}
		changes["total_time_minutes"] = upd.Config.TotalTimeMinutes
		payload := map[string]any{"total_time_minutes": upd.Config.TotalTimeMinutes}
		if upd.Config.GameEndMode != "" {
			changes["game_end_mode"] = upd.Config.GameEndMode
			payload["game_end_mode"] = upd.Config.GameEndMode
		}
		events = append(events, plannedEvent{models.EventSessionConfigured, payload})
	}

	stamped := upd.CountdownStartedAt != nil || upd.StartedAt != nil || upd.EndedAt != nil
	if upd.Status == "" {
		if stamped {
			return nil, nil, fmt.Errorf("%w: timestamps require a status change", game.ErrInvalidUpdate)
		}
		return changes, events, nil
	}
	if !game.ValidStatus(upd.Status) {
		return nil, nil, fmt.Errorf("%w: unknown status %q", game.ErrInvalidUpdate, upd.Status)
	}
	if !game.CanTransition(current.Status, upd.Status) {
		return nil, nil, game.ErrStatusRegression
	}
	if upd.Status == current.Status {
		// Repeating a start or a finish keeps the first timestamps.
		return changes, events, nil
	}

	switch upd.Status {
	case game.StatusActive:
		if upd.EndedAt != nil {
			return nil, nil, fmt.Errorf("%w: ended_at requires finished", game.ErrInvalidUpdate)
		}
		startedAt := now
		if upd.StartedAt != nil {
			startedAt = upd.StartedAt.UTC()
		}
		countdownAt := now
		if upd.CountdownStartedAt != nil {
			countdownAt = upd.CountdownStartedAt.UTC()
		}
		if countdownAt.After(startedAt) {
			return nil, nil, fmt.Errorf("%w: countdown must begin before the game", game.ErrInvalidUpdate)
		}
		changes["status"] = game.StatusActive
		changes["countdown_started_at"] = countdownAt
		changes["started_at"] = startedAt
		events = append(events, plannedEvent{models.EventSessionStarted, map[string]any{
			"countdown_started_at": countdownAt,
			"started_at":           startedAt,
		}})

	case game.StatusFinished:
		if upd.StartedAt != nil || upd.CountdownStartedAt != nil {
			return nil, nil, fmt.Errorf("%w: start timestamps require active", game.ErrInvalidUpdate)
		}
		endedAt := now
		if upd.EndedAt != nil {
			endedAt = upd.EndedAt.UTC()
		}
		changes["status"] = game.StatusFinished
		changes["ended_at"] = endedAt
		events = append(events, plannedEvent{models.EventSessionFinished, map[string]any{
			"ended_at": endedAt,
		}})
	}
	return changes, events, nil
}

// UpdateSession applies a partial update. The write only lands if the status is
// still the one the update was planned against; otherwise it is re-planned.
func (s *SessionService) UpdateSession(ctx context.Context, sessionID uint, upd models.SessionUpdate) (*models.Session, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		current, err := loadSession(ctx, s.db, sessionID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		changes, events, err := planSessionUpdate(current, upd, now)
		if err != nil {
			return nil, err
		}
		if len(changes) == 0 {
			return current, nil
		}
		changes["updated_at"] = now

		applied := false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Session{}).
				Where("id = ? AND status = ?", sessionID, current.Status).
				Updates(changes)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			applied = true
			for _, ev := range events {
				if err := recordEvent(tx, sessionID, nil, ev.typ, ev.payload); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if !applied {
			continue
		}

		updated, err := loadSession(ctx, s.db, sessionID)
		if err != nil {
			return nil, err
		}
		publish(s.pub, realtime.TableSessions, realtime.ChangeUpdate, sessionID, sessionID, updated)
		return updated, nil
	}
	return nil, fmt.Errorf("update session %d: %w", sessionID, errConcurrentUpdate)
}

func (s *SessionService) ListLiveSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("status <> ?", game.StatusFinished).
		Order("created_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

type SessionSummary struct {
	ID               uint       `json:"id"`
	QuizID           uint       `json:"quiz_id"`
	QuizTitle        string     `json:"quiz_title"`
	Pin              string     `json:"pin"`
	Status           string     `json:"status"`
	GameEndMode      string     `json:"game_end_mode"`
	ParticipantCount int        `json:"participant_count"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (s *SessionService) ListHostSessions(ctx context.Context, hostID uint) ([]SessionSummary, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).Where("host_id = ?", hostID).
		Preload("Quiz").
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(sessions))
	if len(sessions) > 0 {
		ids := make([]uint, len(sessions))
		for i, sess := range sessions {
			ids[i] = sess.ID
		}
		var rows []struct {
			SessionID uint
			Count     int
		}
		if err := s.db.WithContext(ctx).Model(&models.Participant{}).
			Select("session_id, COUNT(*) AS count").
			Where("session_id IN ?", ids).
			Group("session_id").
			Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			counts[row.SessionID] = row.Count
		}
	}

	result := make([]SessionSummary, len(sessions))
	for i, sess := range sessions {
		result[i] = SessionSummary{
			ID:               sess.ID,
			QuizID:           sess.QuizID,
			QuizTitle:        sess.Quiz.Title,
			Pin:              sess.Pin,
			Status:           sess.Status,
			GameEndMode:      sess.GameEndMode,
			ParticipantCount: counts[sess.ID],
			StartedAt:        sess.StartedAt,
			EndedAt:          sess.EndedAt,
			CreatedAt:        sess.CreatedAt,
		}
	}
	return result, nil
}

func (s *SessionService) ListEvents(ctx context.Context, sessionID uint) ([]models.SessionEvent, error) {
	var events []models.SessionEvent
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
