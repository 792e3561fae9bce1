package models

import (
	"time"

	"quiz-live-backend/internal/game"
)

type Session struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	QuizID             uint          `gorm:"not null;index" json:"quiz_id"`
	Quiz               Quiz          `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"-"`
	HostID             uint          `gorm:"not null;index" json:"host_id"`
	Pin                string        `gorm:"size:6;not null;uniqueIndex:idx_sessions_live_pin,where:status <> 'finished'" json:"pin"`
	Status             string        `gorm:"size:20;not null;default:'waiting';index" json:"status"`
	TotalTimeMinutes   *int          `json:"total_time_minutes"`
	GameEndMode        string        `gorm:"size:20;not null;default:'wait_timer'" json:"game_end_mode"`
	CountdownStartedAt *time.Time    `json:"countdown_started_at"`
	StartedAt          *time.Time    `json:"started_at"`
	EndedAt            *time.Time    `json:"ended_at"`
	Participants       []Participant `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Deadline is started_at + total_time_minutes for timed sessions.
func (s *Session) Deadline() (time.Time, bool) {
	return game.Deadline(s.StartedAt, s.TotalTimeMinutes)
}

func (s *Session) Finished() bool {
	return s.Status == game.StatusFinished
}

// Newer reports whether s should replace held in a client's view. Status order
// wins over timestamps so a late "waiting" snapshot never undoes a start.
func (s *Session) Newer(held *Session) bool {
	if held == nil {
		return true
	}
	sr, hr := game.StatusRank(s.Status), game.StatusRank(held.Status)
	if sr != hr {
		return sr > hr
	}
	return !s.UpdatedAt.Before(held.UpdatedAt)
}

type SessionConfig struct {
	TotalTimeMinutes *int   `json:"total_time_minutes" binding:"omitempty,min=1,max=600"`
	GameEndMode      string `json:"game_end_mode" binding:"omitempty,endmode"`
}

// SessionUpdate is a partial write to a session row. Nil fields are left alone.
type SessionUpdate struct {
	Config             *SessionConfig
	Status             string
	CountdownStartedAt *time.Time
	StartedAt          *time.Time
	EndedAt            *time.Time
}
