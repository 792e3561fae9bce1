package models

type Answer struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"size:500;not null" json:"text"`
	ImageURL   string `gorm:"size:500" json:"image_url,omitempty"`
	Color      string `gorm:"size:7;default:''" json:"color"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct"`
}

// PublicAnswer is what participants see while playing.
type PublicAnswer struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
	Color    string `json:"color"`
}

type PublicQuestion struct {
	ID        uint           `json:"id"`
	Text      string         `json:"text"`
	ImageURL  string         `json:"image_url,omitempty"`
	TimeLimit int            `json:"time_limit"`
	Points    int            `json:"points"`
	OrderNum  int            `json:"order_num"`
	Answers   []PublicAnswer `json:"answers"`
}

// Public strips correctness from a question.
func (q *Question) Public() PublicQuestion {
	out := PublicQuestion{
		ID:        q.ID,
		Text:      q.Text,
		ImageURL:  q.ImageURL,
		TimeLimit: q.TimeLimit,
		Points:    q.Points,
		OrderNum:  q.OrderNum,
		Answers:   make([]PublicAnswer, 0, len(q.Answers)),
	}
	for _, a := range q.Answers {
		out.Answers = append(out.Answers, PublicAnswer{ID: a.ID, Text: a.Text, ImageURL: a.ImageURL, Color: a.Color})
	}
	return out
}
