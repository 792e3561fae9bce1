package models

import "time"

type Response struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	SessionID     uint       `gorm:"not null;index" json:"session_id"`
	ParticipantID uint       `gorm:"not null;uniqueIndex:idx_response_unique" json:"participant_id"`
	QuestionID    uint       `gorm:"not null;uniqueIndex:idx_response_unique" json:"question_id"`
	AnswerID      *uint      `json:"answer_id"`
	IsCorrect     bool       `gorm:"not null;default:false" json:"is_correct"`
	Points        int        `gorm:"not null;default:0" json:"points"`
	StartedAt     *time.Time `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ResponsePatch is one participant interaction with a question. StartedAt only
// fills an empty column; EndedAt moves while the game is running.
type ResponsePatch struct {
	QuestionID uint       `json:"question_id" binding:"required"`
	AnswerID   *uint      `json:"answer_id"`
	StartedAt  *time.Time `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
}
