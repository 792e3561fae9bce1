package services

import (
	"context"
	"log"
	"time"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"

	"gorm.io/gorm"
)

type ScoringService struct {
	db  *gorm.DB
	pub realtime.Publisher
	now func() time.Time
}

func NewScoringService(db *gorm.DB, pub realtime.Publisher) *ScoringService {
	return &ScoringService{db: db, pub: pub, now: utcNow}
}

type scoredResponse struct {
	response models.Response
	correct  bool
	points   int
	elapsed  time.Duration
	timed    bool
}

// scoreResponses evaluates every response of one participant against the quiz.
// fallbackEnd stands in for a missing ended_at.
func scoreResponses(questions map[uint]models.Question, responses []models.Response, fallbackEnd *time.Time) ([]scoredResponse, int) {
	total := 0
	out := make([]scoredResponse, 0, len(responses))
	for _, r := range responses {
		q, ok := questions[r.QuestionID]
		if !ok {
			continue
		}
		correctID, hasCorrect := q.CorrectAnswerID()
		answered := r.AnswerID != nil
		correct := answered && hasCorrect && *r.AnswerID == correctID
		elapsed := game.Elapsed(r.StartedAt, r.EndedAt, fallbackEnd, q.Limit())
		points := game.Points(game.ScoreInput{
			Answered:  answered,
			Correct:   correct,
			Elapsed:   elapsed,
			TimeLimit: q.Limit(),
			Points:    q.Points,
		})
		total += points
		out = append(out, scoredResponse{
			response: r,
			correct:  correct,
			points:   points,
			elapsed:  elapsed,
			timed:    r.StartedAt != nil,
		})
	}
	return out, total
}

func (s *ScoringService) questionMap(ctx context.Context, quizID uint) (map[uint]models.Question, error) {
	var questions []models.Question
	if err := s.db.WithContext(ctx).Where("quiz_id = ?", quizID).Preload("Answers").Find(&questions).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return byID, nil
}

// fallbackEnd is the participant's finish time, else the session's end.
func fallbackEnd(participant *models.Participant, session *models.Session) *time.Time {
	if participant.FinishedAt != nil {
		return participant.FinishedAt
	}
	return session.EndedAt
}

// ComputeScore recomputes a participant's total from their stored responses.
// It is refused until the participant or the session is finished, so the
// inputs are frozen and repeating it stores the same score.
func (s *ScoringService) ComputeScore(ctx context.Context, participantID uint) (*models.Participant, error) {
	participant, err := loadParticipant(ctx, s.db, participantID)
	if err != nil {
		return nil, err
	}
	session, err := loadSession(ctx, s.db, participant.SessionID)
	if err != nil {
		return nil, err
	}
	if participant.Status != game.ParticipantFinished && !session.Finished() {
		return nil, game.ErrScoringTooEarly
	}

	questions, err := s.questionMap(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}
	var responses []models.Response
	if err := s.db.WithContext(ctx).Where("participant_id = ?", participantID).Find(&responses).Error; err != nil {
		return nil, err
	}

	scored, total := scoreResponses(questions, responses, fallbackEnd(participant, session))
	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sr := range scored {
			if sr.response.IsCorrect == sr.correct && sr.response.Points == sr.points {
				continue
			}
			if err := tx.Model(&models.Response{}).Where("id = ?", sr.response.ID).
				Updates(map[string]any{"is_correct": sr.correct, "points": sr.points}).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Participant{}).Where("id = ?", participantID).
			Updates(map[string]any{"score": total, "scored_at": now}).Error; err != nil {
			return err
		}
		return recordEvent(tx, session.ID, &participant.ID, models.EventParticipantScored, map[string]any{
			"score":     total,
			"responses": len(scored),
		})
	})
	if err != nil {
		return nil, err
	}

	if participant.ScoredAt != nil && participant.Score != total {
		log.Printf("scoring: participant %d score changed on recompute (%d -> %d)", participantID, participant.Score, total)
	}
	participant.Score = total
	participant.ScoredAt = &now
	publish(s.pub, realtime.TableParticipants, realtime.ChangeUpdate, session.ID, participant.ID, participant)
	return participant, nil
}

// GetLeaderboard ranks a session's participants. Unscored participants are
// listed last with rank 0.
func (s *ScoringService) GetLeaderboard(ctx context.Context, sessionID uint) ([]models.LeaderboardEntry, error) {
	session, err := loadSession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}

	var participants []models.Participant
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&participants).Error; err != nil {
		return nil, err
	}
	var responses []models.Response
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&responses).Error; err != nil {
		return nil, err
	}
	questions, err := s.questionMap(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	byParticipant := make(map[uint][]models.Response)
	for _, r := range responses {
		byParticipant[r.ParticipantID] = append(byParticipant[r.ParticipantID], r)
	}

	standings := make([]game.Standing, 0, len(participants))
	status := make(map[uint]string, len(participants))
	for i := range participants {
		p := &participants[i]
		status[p.ID] = p.Status

		scored, _ := scoreResponses(questions, byParticipant[p.ID], fallbackEnd(p, session))
		var durations []time.Duration
		for _, sr := range scored {
			if sr.timed {
				durations = append(durations, sr.elapsed)
			}
		}
		avg, timed := game.AverageResponse(durations)
		standings = append(standings, game.Standing{
			ParticipantID: p.ID,
			Nickname:      p.Nickname,
			Score:         p.Score,
			Scored:        p.ScoredAt != nil,
			AvgResponse:   avg,
			Timed:         timed,
			JoinedAt:      p.JoinedAt,
		})
	}

	ranked := game.Rank(standings)
	entries := make([]models.LeaderboardEntry, len(ranked))
	for i, st := range ranked {
		entries[i] = models.LeaderboardEntry{
			ParticipantID:          st.ParticipantID,
			Nickname:               st.Nickname,
			Score:                  st.Score,
			AvgResponseTimeSeconds: st.AvgResponse.Seconds(),
			Rank:                   st.Rank,
			Status:                 status[st.ParticipantID],
		}
	}
	return entries, nil
}
