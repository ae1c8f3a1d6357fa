package fieldreport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/adapters/event"
	"github.com/khoahotran/town-notes/internal/application/service"
	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

var tracer = otel.Tracer("fieldreport_usecase")

type FieldReportUseCase struct {
	repo      fieldreport.Repository
	publisher service.EventPublisher
	logger    logger.Logger
	now       func() time.Time
}

func NewFieldReportUseCase(repo fieldreport.Repository, publisher service.EventPublisher, log logger.Logger) *FieldReportUseCase {
	return &FieldReportUseCase{
		repo:      repo,
		publisher: publisher,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type ListFieldReportInput struct {
	Username  string
	SessionID string
}

type ListFieldReportOutput struct {
	Report *fieldreport.FieldReport
}

// ListFieldReport returns the caller's report for the session. NotFound is
// the normal answer on a first visit.
func (uc *FieldReportUseCase) ListFieldReport(ctx context.Context, input ListFieldReportInput) (*ListFieldReportOutput, error) {
	ctx, span := tracer.Start(ctx, "ListFieldReport")
	defer span.End()

	key := fieldreport.Key{Username: input.Username, SessionID: input.SessionID}
	if err := key.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("field report key is incomplete", err)
	}

	r, err := uc.repo.Find(ctx, key)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			span.RecordError(err)
			uc.logger.Error("Failed to find field report", err, zap.String("key", key.String()))
		}
		return nil, fmt.Errorf("list field report failed: %w", err)
	}
	return &ListFieldReportOutput{Report: r}, nil
}

type WriteFieldReportInput struct {
	Username     string
	SessionID    string
	FieldReports string
	Time         time.Time
}

func (uc *FieldReportUseCase) toReport(input WriteFieldReportInput) (*fieldreport.FieldReport, error) {
	r := &fieldreport.FieldReport{
		Username:     input.Username,
		SessionID:    input.SessionID,
		FieldReports: input.FieldReports,
		Time:         input.Time,
	}
	if err := r.Key().Validate(); err != nil {
		return nil, apperror.NewInvalidInput("field report key is incomplete", err)
	}
	if r.Time.IsZero() {
		r.Time = uc.now()
	}
	// Every store keeps at least milliseconds; Mongo keeps no more.
	r.Time = r.Time.UTC().Truncate(time.Millisecond)
	return r, nil
}

// CreateFieldReport inserts without re-checking for an existing record. Two
// racing first saves for one key leave the second with a DuplicateKey error.
func (uc *FieldReportUseCase) CreateFieldReport(ctx context.Context, input WriteFieldReportInput) error {
	ctx, span := tracer.Start(ctx, "CreateFieldReport")
	defer span.End()

	r, err := uc.toReport(input)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("key", r.Key().String()))

	if err := uc.repo.Insert(ctx, r); err != nil {
		span.RecordError(err)
		if !errors.Is(err, apperror.ErrDuplicateKey) {
			uc.logger.Error("Failed to insert field report", err, zap.String("key", r.Key().String()))
		}
		return fmt.Errorf("create field report failed: %w", err)
	}

	uc.publish(event.NewFieldReportEvent(event.FieldReportEventTypeCreated, r.Username, r.SessionID))
	return nil
}

// UpdateFieldReport replaces body and time of the existing record. A missing
// record is NotFound so the caller can fall back to create.
func (uc *FieldReportUseCase) UpdateFieldReport(ctx context.Context, input WriteFieldReportInput) error {
	ctx, span := tracer.Start(ctx, "UpdateFieldReport")
	defer span.End()

	r, err := uc.toReport(input)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("key", r.Key().String()))

	if err := uc.repo.Update(ctx, r); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			span.RecordError(err)
			uc.logger.Error("Failed to update field report", err, zap.String("key", r.Key().String()))
		}
		return fmt.Errorf("update field report failed: %w", err)
	}

	uc.publish(event.NewFieldReportEvent(event.FieldReportEventTypeUpdated, r.Username, r.SessionID))
	return nil
}

type SaveFieldReportOutput struct {
	Created bool
}

// SaveFieldReport is the atomic insert-if-absent-else-update variant.
func (uc *FieldReportUseCase) SaveFieldReport(ctx context.Context, input WriteFieldReportInput) (*SaveFieldReportOutput, error) {
	ctx, span := tracer.Start(ctx, "SaveFieldReport")
	defer span.End()

	r, err := uc.toReport(input)
	if err != nil {
		return nil, err
	}

	created, err := uc.repo.Upsert(ctx, r)
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to upsert field report", err, zap.String("key", r.Key().String()))
		return nil, fmt.Errorf("save field report failed: %w", err)
	}
	span.SetAttributes(attribute.Bool("created", created))

	t := event.FieldReportEventTypeUpdated
	if created {
		t = event.FieldReportEventTypeCreated
	}
	uc.publish(event.NewFieldReportEvent(t, r.Username, r.SessionID))
	return &SaveFieldReportOutput{Created: created}, nil
}

func (uc *FieldReportUseCase) publish(payload event.FieldReportEventPayload) {
	go func() {
		if err := uc.publisher.PublishFieldReportEvent(context.Background(), payload); err != nil {
			uc.logger.Error("Failed to publish field report event", err,
				zap.String("event_type", string(payload.EventType)),
				zap.String("username", payload.Username),
				zap.String("session_id", payload.SessionID),
			)
		}
	}()
}
