package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/adapters/event"
	"github.com/khoahotran/town-notes/internal/application/service"
	"github.com/khoahotran/town-notes/pkg/logger"
)

// InvalidateProfileUseCase drops cached profiles when another instance
// announces a write.
type InvalidateProfileUseCase struct {
	cache  service.ProfileCacheInvalidator
	logger logger.Logger
}

func NewInvalidateProfileUseCase(cache service.ProfileCacheInvalidator, log logger.Logger) *InvalidateProfileUseCase {
	return &InvalidateProfileUseCase{cache: cache, logger: log}
}

func (uc *InvalidateProfileUseCase) Execute(ctx context.Context, payload event.ProfileEventPayload) error {
	if payload.Email == "" {
		uc.logger.Warn("Profile event without email, skip.", zap.String("event_id", payload.EventID.String()))
		return nil
	}

	switch payload.EventType {
	case event.ProfileEventTypeCreated, event.ProfileEventTypeUpdated:
	default:
		uc.logger.Info("Ignoring profile event", zap.String("event_type", string(payload.EventType)))
		return nil
	}

	if err := uc.cache.Invalidate(ctx, payload.Email); err != nil {
		return fmt.Errorf("invalidate profile cache failed: %w", err)
	}
	uc.logger.Info("Profile cache invalidated",
		zap.String("email", payload.Email),
		zap.String("event_type", string(payload.EventType)),
	)
	return nil
}
