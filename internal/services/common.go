package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

// notFound maps gorm's missing-row error onto a domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func loadSession(ctx context.Context, db *gorm.DB, id uint) (*models.Session, error) {
	var session models.Session
	if err := db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, notFound(err, game.ErrSessionNotFound)
	}
	return &session, nil
}

func loadParticipant(ctx context.Context, db *gorm.DB, id uint) (*models.Participant, error) {
	var participant models.Participant
	if err := db.WithContext(ctx).First(&participant, id).Error; err != nil {
		return nil, notFound(err, game.ErrParticipantNotFound)
	}
	return &participant, nil
}

func publish(pub realtime.Publisher, table, typ string, sessionID, recordID uint, record any) {
	if pub == nil {
		return
	}
	pub.Publish(realtime.Change{
		Table:     table,
		Type:      typ,
		SessionID: sessionID,
		RecordID:  recordID,
		Record:    record,
		At:        utcNow(),
	})
}

// recordEvent appends to the session audit log inside the caller's transaction.
func recordEvent(tx *gorm.DB, sessionID uint, participantID *uint, typ string, payload any) error {
	event := models.SessionEvent{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Type:          typ,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("events: marshal %s payload: %v", typ, err)
		} else {
			event.Payload = datatypes.JSON(raw)
		}
	}
	return tx.Create(&event).Error
}
