package models

import "time"

type Participant struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SessionID  uint       `gorm:"not null;index;uniqueIndex:idx_participant_nickname" json:"session_id"`
	UserID     *uint      `gorm:"index" json:"user_id,omitempty"`
	Nickname   string     `gorm:"size:100;not null;uniqueIndex:idx_participant_nickname" json:"nickname"`
	Token      string     `gorm:"size:64;uniqueIndex" json:"-"`
	Status     string     `gorm:"size:20;not null;default:'active'" json:"status"`
	Score      int        `gorm:"not null;default:0" json:"score"`
	ScoredAt   *time.Time `json:"scored_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	JoinedAt   time.Time  `json:"joined_at"`
}

// JoinResult is returned once, on join; it is the only place the token leaves
// the server.
type JoinResult struct {
	Participant Participant `json:"participant"`
	Token       string      `json:"token"`
	Session     Session     `json:"session"`
}
