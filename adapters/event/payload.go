package event

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	ProfileEventTypeCreated     EventType = "profile.created"
	ProfileEventTypeUpdated     EventType = "profile.updated"
	FieldReportEventTypeCreated EventType = "fieldreport.created"
	FieldReportEventTypeUpdated EventType = "fieldreport.updated"
)

type ProfileEventPayload struct {
	EventID    uuid.UUID `json:"eventId"`
	EventType  EventType `json:"eventType"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurredAt"`
}

type FieldReportEventPayload struct {
	EventID    uuid.UUID `json:"eventId"`
	EventType  EventType `json:"eventType"`
	Username   string    `json:"username"`
	SessionID  string    `json:"sessionID"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewProfileEvent(t EventType, email string) ProfileEventPayload {
	return ProfileEventPayload{
		EventID:    uuid.New(),
		EventType:  t,
		Email:      email,
		OccurredAt: time.Now().UTC(),
	}
}

func NewFieldReportEvent(t EventType, username, sessionID string) FieldReportEventPayload {
	return FieldReportEventPayload{
		EventID:    uuid.New(),
		EventType:  t,
		Username:   username,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
	}
}
