package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventSessionCreated      = "session_created"
	EventSessionConfigured   = "session_configured"
	EventSessionStarted      = "session_started"
	EventSessionFinished     = "session_finished"
	EventParticipantJoined   = "participant_joined"
	EventParticipantLeft     = "participant_left"
	EventParticipantFinished = "participant_finished"
	EventParticipantScored   = "participant_scored"
)

type SessionEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SessionID     uint           `gorm:"not null;index" json:"session_id"`
	ParticipantID *uint          `json:"participant_id,omitempty"`
	Type          string         `gorm:"size:40;not null" json:"type"`
	Payload       datatypes.JSON `json:"payload,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
