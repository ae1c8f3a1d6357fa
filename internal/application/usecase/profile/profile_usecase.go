package profile

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/adapters/event"
	"github.com/khoahotran/town-notes/internal/application/service"
	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

var tracer = otel.Tracer("profile_usecase")

type ProfileUseCase struct {
	profileRepo profile.Repository
	publisher   service.EventPublisher
	logger      logger.Logger
}

func NewProfileUseCase(repo profile.Repository, publisher service.EventPublisher, log logger.Logger) *ProfileUseCase {
	return &ProfileUseCase{
		profileRepo: repo,
		publisher:   publisher,
		logger:      log,
	}
}

type CreateProfileInput struct {
	Email      string
	Username   string
	FirstName  string
	LastName   string
	Pronouns   *string
	Occupation *string
	Bio        *string
}

type CreateProfileOutput struct {
	ID string
}

// CreateProfile inserts unconditionally. It does not look for an existing
// profile with the same email; the store's unique index rejects that case.
func (uc *ProfileUseCase) CreateProfile(ctx context.Context, input CreateProfileInput) (*CreateProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "CreateProfile")
	defer span.End()

	p := &profile.Profile{
		Email:      input.Email,
		Username:   input.Username,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Pronouns:   input.Pronouns,
		Occupation: input.Occupation,
		Bio:        input.Bio,
	}
	if err := p.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("profile validation failed", err)
	}

	id, err := uc.profileRepo.Insert(ctx, p)
	if err != nil {
		span.RecordError(err)
		if !errors.Is(err, apperror.ErrDuplicateKey) {
			uc.logger.Error("Failed to insert profile", err, zap.String("email", p.Email))
		}
		return nil, fmt.Errorf("create profile failed: %w", err)
	}
	span.SetAttributes(attribute.String("profile_id", id))

	uc.publish(event.NewProfileEvent(event.ProfileEventTypeCreated, p.Email))
	return &CreateProfileOutput{ID: id}, nil
}

type FetchProfileInput struct {
	Email string
}

type FetchProfileOutput struct {
	Profile *profile.Profile
}

func (uc *ProfileUseCase) FetchProfile(ctx context.Context, input FetchProfileInput) (*FetchProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "FetchProfile")
	defer span.End()

	if input.Email == "" {
		return nil, apperror.NewInvalidInput("email is required", profile.ErrEmailRequired)
	}

	p, err := uc.profileRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			span.RecordError(err)
			uc.logger.Error("Failed to fetch profile", err, zap.String("email", input.Email))
		}
		return nil, fmt.Errorf("fetch profile failed: %w", err)
	}
	return &FetchProfileOutput{Profile: p}, nil
}

type UpdateUserInput struct {
	Email      string
	Username   string
	FirstName  string
	LastName   string
	Pronouns   *string
	Occupation *string
	Bio        *string
}

type UpdateUserOutput struct {
	Result profile.UpdateResult
}

// UpdateUser replaces every mutable field of the profile matched by email.
// Zero matches is reported through the result counters, not as an error.
func (uc *ProfileUseCase) UpdateUser(ctx context.Context, input UpdateUserInput) (*UpdateUserOutput, error) {
	ctx, span := tracer.Start(ctx, "UpdateUser")
	defer span.End()

	p := &profile.Profile{
		Email:      input.Email,
		Username:   input.Username,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Pronouns:   input.Pronouns,
		Occupation: input.Occupation,
		Bio:        input.Bio,
	}
	if err := p.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("profile validation failed", err)
	}

	res, err := uc.profileRepo.UpdateByEmail(ctx, p)
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to update profile", err, zap.String("email", p.Email))
		return nil, fmt.Errorf("update profile failed: %w", err)
	}
	span.SetAttributes(
		attribute.Int64("matched_count", res.MatchedCount),
		attribute.Int64("modified_count", res.ModifiedCount),
	)

	if res.MatchedCount > 0 {
		uc.publish(event.NewProfileEvent(event.ProfileEventTypeUpdated, p.Email))
	}
	return &UpdateUserOutput{Result: res}, nil
}

func (uc *ProfileUseCase) publish(payload event.ProfileEventPayload) {
	go func() {
		if err := uc.publisher.PublishProfileEvent(context.Background(), payload); err != nil {
			uc.logger.Error("Failed to publish profile event", err,
				zap.String("event_type", string(payload.EventType)),
				zap.String("email", payload.Email),
			)
		}
	}()
}
