package services

import (
	"context"
	"fmt"
	"strings"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"

	"gorm.io/gorm"
)

type QuizService struct {
	db *gorm.DB
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{db: db}
}

type QuizInput struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type AnswerInput struct {
	Text      string `json:"text" binding:"required,max=500"`
	ImageURL  string `json:"image_url" binding:"omitempty,url"`
	Color     string `json:"color" binding:"omitempty,hexcolor"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionInput struct {
	Text      string        `json:"text" binding:"required"`
	ImageURL  string        `json:"image_url" binding:"omitempty,url"`
	TimeLimit int           `json:"time_limit" binding:"omitempty,min=1,max=3600"`
	Points    int           `json:"points" binding:"omitempty,min=1"`
	OrderNum  int           `json:"order_num"`
	Answers   []AnswerInput `json:"answers" binding:"required,dive"`
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("order_num ASC, id ASC")
}

func orderedAnswers(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// ListQuizzes returns the user's own quizzes followed by public ones.
func (s *QuizService) ListQuizzes(ctx context.Context, userID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.WithContext(ctx).
		Where("creator_id = ? OR is_public = ?", userID, true).
		Preload("Questions", orderedQuestions).
		Preload("Questions.Answers", orderedAnswers).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, userID uint, input QuizInput) (*models.Quiz, error) {
	quiz := models.Quiz{
		CreatorID:   userID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		IsPublic:    input.IsPublic,
	}
	if err := s.db.WithContext(ctx).Create(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

// GetQuiz loads a quiz with its questions and answers, without access checks.
func (s *QuizService) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("Questions.Answers", orderedAnswers).
		First(&quiz, quizID).Error
	if err != nil {
		return nil, notFound(err, game.ErrQuizNotFound)
	}
	return &quiz, nil
}

// GetQuizForUser allows the creator and, for public quizzes, anyone.
func (s *QuizService) GetQuizForUser(ctx context.Context, quizID, userID uint) (*models.Quiz, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.CanHost(userID) {
		return nil, game.ErrPermissionDenied
	}
	return quiz, nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, quizID, userID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := s.db.WithContext(ctx).First(&quiz, quizID).Error; err != nil {
		return nil, notFound(err, game.ErrQuizNotFound)
	}
	if quiz.CreatorID != userID {
		return nil, game.ErrPermissionDenied
	}
	return &quiz, nil
}

// ensureEditable refuses changes while a session of the quiz is waiting or
// running; questions are frozen for the life of a session.
func (s *QuizService) ensureEditable(ctx context.Context, quizID uint) error {
	var live int64
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("quiz_id = ? AND status <> ?", quizID, game.StatusFinished).
		Count(&live).Error
	if err != nil {
		return err
	}
	if live > 0 {
		return game.ErrQuizLocked
	}
	return nil
}

func (s *QuizService) UpdateQuiz(ctx context.Context, quizID, userID uint, input QuizInput) (*models.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	quiz.Title = strings.TrimSpace(input.Title)
	quiz.Description = input.Description
	quiz.IsPublic = input.IsPublic
	if err := s.db.WithContext(ctx).Save(quiz).Error; err != nil {
		return nil, err
	}
	return s.GetQuiz(ctx, quizID)
}

func (s *QuizService) DeleteQuiz(ctx context.Context, quizID, userID uint) error {
	if _, err := s.ownedQuiz(ctx, quizID, userID); err != nil {
		return err
	}
	if err := s.ensureEditable(ctx, quizID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		past := "session_id IN (SELECT id FROM sessions WHERE quiz_id = ?)"
		if err := tx.Where(past, quizID).Delete(&models.Response{}).Error; err != nil {
			return err
		}
		if err := tx.Where(past, quizID).Delete(&models.SessionEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where(past, quizID).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id IN (SELECT id FROM questions WHERE quiz_id = ?)", quizID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quiz{}, quizID).Error
	})
}

func validateQuestion(input QuestionInput) error {
	if strings.TrimSpace(input.Text) == "" {
		return fmt.Errorf("%w: text is required", game.ErrInvalidQuestion)
	}
	if len(input.Answers) < 2 || len(input.Answers) > 6 {
		return fmt.Errorf("%w: 2 to 6 answers required", game.ErrInvalidQuestion)
	}
	correct := 0
	for _, a := range input.Answers {
		if strings.TrimSpace(a.Text) == "" && a.ImageURL == "" {
			return fmt.Errorf("%w: answer needs text or an image", game.ErrInvalidQuestion)
		}
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: exactly one answer must be correct", game.ErrInvalidQuestion)
	}
	if input.TimeLimit < 0 || input.Points < 0 {
		return fmt.Errorf("%w: time limit and points must be positive", game.ErrInvalidQuestion)
	}
	return nil
}

func (s *QuizService) AddQuestion(ctx context.Context, quizID, userID uint, input QuestionInput) (*models.Question, error) {
	if _, err := s.ownedQuiz(ctx, quizID, userID); err != nil {
		return nil, err
	}
	if err := validateQuestion(input); err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, quizID); err != nil {
		return nil, err
	}

	question := models.Question{
		QuizID:    quizID,
		Text:      strings.TrimSpace(input.Text),
		ImageURL:  input.ImageURL,
		TimeLimit: input.TimeLimit,
		Points:    input.Points,
		OrderNum:  input.OrderNum,
	}
	if question.TimeLimit == 0 {
		question.TimeLimit = models.DefaultTimeLimitSeconds
	}
	if question.Points == 0 {
		question.Points = models.DefaultPoints
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if question.OrderNum == 0 {
			var maxOrder int
			if err := tx.Model(&models.Question{}).Where("quiz_id = ?", quizID).
				Select("COALESCE(MAX(order_num), 0)").Scan(&maxOrder).Error; err != nil {
				return err
			}
			question.OrderNum = maxOrder + 1
		}
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
		for _, a := range input.Answers {
			answer := models.Answer{
				QuestionID: question.ID,
				Text:       strings.TrimSpace(a.Text),
				ImageURL:   a.ImageURL,
				Color:      a.Color,
				IsCorrect:  a.IsCorrect,
			}
			if err := tx.Create(&answer).Error; err != nil {
				return err
			}
			question.Answers = append(question.Answers, answer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, questionID, userID uint) error {
	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, questionID).Error; err != nil {
		return notFound(err, game.ErrQuestionNotFound)
	}
	if _, err := s.ownedQuiz(ctx, question.QuizID, userID); err != nil {
		return err
	}
	if err := s.ensureEditable(ctx, question.QuizID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&question).Error
	})
}

// ListQuestions returns a quiz's questions in play order.
func (s *QuizService) ListQuestions(ctx context.Context, quizID uint) ([]models.Question, error) {
	var questions []models.Question
	err := orderedQuestions(s.db.WithContext(ctx)).
		Where("quiz_id = ?", quizID).
		Preload("Answers", orderedAnswers).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}
