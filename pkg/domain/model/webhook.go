package model

import "time"

// WebhookEventType represents the type of webhook event received
type WebhookEventType string

const (
	EventTypePush    WebhookEventType = "push"
	EventTypePing    WebhookEventType = "ping"
	EventTypeUnknown WebhookEventType = "unknown"
)

// WebhookEvent represents a push webhook received from a source forge
type WebhookEvent struct {
	ID         string           // Retrieved from X-GitHub-Delivery header
	Type       WebhookEventType // Retrieved from X-GitHub-Event header
	Repository string           // Repository name, without owner
	Ref        string
	Before     string
	After      string
	Sender     string
	ReceivedAt time.Time
	RawPayload []byte
}

// IsSupportedEvent checks if the event should trigger a pipeline run
func (e *WebhookEvent) IsSupportedEvent() bool {
	switch e.Type {
	case EventTypePush:
		return e.Repository != "" && e.After != "" && !isZero(e.After)
	default:
		return false
	}
}

// PushEvent converts a supported webhook event into the hook arguments of a push
func (e *WebhookEvent) PushEvent() (*PushEvent, error) {
	before := e.Before
	if before == "" {
		before = ZeroObject
	}
	return NewPushEvent(e.Ref, before, e.After)
}
