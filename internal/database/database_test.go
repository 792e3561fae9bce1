package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"quiz-live-backend/internal/config"
	"quiz-live-backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestOpenMemoryMigratesSchema(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, table := range []string{"users", "quizzes", "questions", "answers", "sessions", "participants", "responses", "session_events"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
	if err := Ping(context.Background(), db); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestLivePinIndexIgnoresFinishedSessions(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	user := models.User{Username: "host", PasswordHash: "x"}
	db.Create(&user)
	quiz := models.Quiz{CreatorID: user.ID, Title: "q"}
	db.Create(&quiz)

	finished := models.Session{QuizID: quiz.ID, HostID: user.ID, Pin: "111111", Status: "finished"}
	if err := db.Create(&finished).Error; err != nil {
		t.Fatalf("create finished: %v", err)
	}
	live := models.Session{QuizID: quiz.ID, HostID: user.ID, Pin: "111111", Status: "waiting"}
	if err := db.Create(&live).Error; err != nil {
		t.Fatalf("expected finished pin to be reusable, got %v", err)
	}
	dup := models.Session{QuizID: quiz.ID, HostID: user.ID, Pin: "111111", Status: "active"}
	err = db.Create(&dup).Error
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatalf("expected postgres 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatalf("expected other postgres codes to be ignored")
	}
	if IsUniqueViolation(errors.New("boom")) || IsUniqueViolation(nil) {
		t.Fatalf("expected plain errors to be ignored")
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.DBDriver = "oracle"
	if _, err := Connect(cfg); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
