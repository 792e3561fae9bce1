package models

import "time"

const (
	DefaultTimeLimitSeconds = 30
	DefaultPoints           = 1000
)

type Question struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	QuizID    uint     `gorm:"not null;index" json:"quiz_id"`
	Text      string   `gorm:"type:text;not null" json:"text"`
	ImageURL  string   `gorm:"size:500" json:"image_url,omitempty"`
	TimeLimit int      `gorm:"not null;default:30" json:"time_limit"`
	Points    int      `gorm:"not null;default:1000" json:"points"`
	OrderNum  int      `gorm:"not null" json:"order_num"`
	Answers   []Answer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

func (q *Question) Limit() time.Duration {
	return time.Duration(q.TimeLimit) * time.Second
}

// CorrectAnswerID returns the id of the single correct answer, if any.
func (q *Question) CorrectAnswerID() (uint, bool) {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.ID, true
		}
	}
	return 0, false
}
