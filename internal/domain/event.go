package domain

import "time"

type IncidentEventType string

const (
	IncidentCreated IncidentEventType = "incident.created"
	IncidentDeleted IncidentEventType = "incident.deleted"
)

// IncidentEvent is the payload pushed to the event queue and delivered to the webhook.
type IncidentEvent struct {
	Type       IncidentEventType `json:"type"`
	Incident   Incident          `json:"incident"`
	OccurredAt time.Time         `json:"occurred_at"`
}
