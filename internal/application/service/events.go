package service

import (
	"context"

	"github.com/khoahotran/town-notes/adapters/event"
)

// EventPublisher announces successful writes to other consumers.
type EventPublisher interface {
	PublishProfileEvent(ctx context.Context, payload event.ProfileEventPayload) error
	PublishFieldReportEvent(ctx context.Context, payload event.FieldReportEventPayload) error
}

// ProfileCacheInvalidator drops a cached profile so the next read goes to the store.
type ProfileCacheInvalidator interface {
	Invalidate(ctx context.Context, email string) error
}
