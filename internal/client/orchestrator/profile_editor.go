package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type ProfileService interface {
	FetchProfile(ctx context.Context, email string) (*profile.Profile, error)
	CreateProfile(ctx context.Context, p profile.Profile) (string, error)
	UpdateUser(ctx context.Context, p profile.Profile) (profile.UpdateResult, error)
}

// ProfileForm holds the editable fields. A nil optional stays absent.
type ProfileForm struct {
	Username   string
	FirstName  string
	LastName   string
	Pronouns   *string
	Occupation *string
	Bio        *string
}

// ProfileEditor edits the caller's own profile. The email comes from the
// caller identity and is never edited.
type ProfileEditor struct {
	svc      ProfileService
	notifier Notifier
	logger   logger.Logger
	email    string

	exists  bool
	current profile.Profile
}

func NewProfileEditor(svc ProfileService, notifier Notifier, email string, log logger.Logger) *ProfileEditor {
	return &ProfileEditor{
		svc:      svc,
		notifier: notifier,
		logger:   log.With(zap.String("email", email)),
		email:    email,
		current:  profile.Profile{Email: email},
	}
}

// Current returns the last loaded or saved profile.
func (e *ProfileEditor) Current() profile.Profile {
	return e.current
}

func (e *ProfileEditor) Exists() bool {
	return e.exists
}

// Load fetches the stored profile. NotFound seeds an empty form.
func (e *ProfileEditor) Load(ctx context.Context) error {
	p, err := e.svc.FetchProfile(ctx, e.email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			e.exists = false
			e.current = profile.Profile{Email: e.email}
			return nil
		}
		e.notifier.Failure(apperror.MessageOf(err))
		return fmt.Errorf("load profile failed: %w", err)
	}
	e.exists = true
	e.current = *p
	return nil
}

// Save validates the form and writes it. Nothing is sent when a required
// field is empty.
func (e *ProfileEditor) Save(ctx context.Context, form ProfileForm) error {
	p := profile.Profile{
		Email:      e.email,
		Username:   form.Username,
		FirstName:  form.FirstName,
		LastName:   form.LastName,
		Pronouns:   form.Pronouns,
		Occupation: form.Occupation,
		Bio:        form.Bio,
	}
	if err := p.ValidateRequired(); err != nil {
		appErr := apperror.NewAppError(apperror.ErrInvalidInput, err.Error(), "profile form is incomplete", err)
		e.notifier.Failure(appErr.Message)
		return appErr
	}

	if err := e.write(ctx, p); err != nil {
		e.notifier.Failure(apperror.MessageOf(err))
		return fmt.Errorf("save profile failed: %w", err)
	}
	e.exists = true
	e.current = p
	e.notifier.Success("Profile saved")
	return nil
}

func (e *ProfileEditor) write(ctx context.Context, p profile.Profile) error {
	if e.exists {
		res, err := e.svc.UpdateUser(ctx, p)
		if err != nil {
			return err
		}
		if res.MatchedCount > 0 {
			return nil
		}
		e.logger.Info("Stored profile vanished, creating it")
	}

	_, err := e.svc.CreateProfile(ctx, p)
	if errors.Is(err, apperror.ErrDuplicateKey) {
		e.logger.Info("Profile was created elsewhere, updating it")
		_, err = e.svc.UpdateUser(ctx, p)
	}
	return err
}
