package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type postgresFieldReportRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresFieldReportRepo(db *pgxpool.Pool, logger logger.Logger) fieldreport.Repository {
	return &postgresFieldReportRepo{db: db, logger: logger}
}

func (r *postgresFieldReportRepo) Find(ctx context.Context, key fieldreport.Key) (*fieldreport.FieldReport, error) {
	query := `
		SELECT username, session_id, body, reported_at
		FROM field_reports
		WHERE username = $1 AND session_id = $2
	`
	fr := &fieldreport.FieldReport{}
	err := r.db.QueryRow(ctx, query, key.Username, key.SessionID).Scan(
		&fr.Username, &fr.SessionID, &fr.FieldReports, &fr.Time,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("field report", key.String())
		}
		return nil, apperror.NewStorage("failed to query field report", err)
	}
	fr.Time = fr.Time.UTC()
	return fr, nil
}

func (r *postgresFieldReportRepo) Insert(ctx context.Context, fr *fieldreport.FieldReport) error {
	query := `
		INSERT INTO field_reports (id, username, session_id, body, reported_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, uuid.New(), fr.Username, fr.SessionID, fr.FieldReports, fr.Time)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicateKey("field report", fr.Key().String(), err)
		}
		return apperror.NewStorage("failed to insert field report", err)
	}
	return nil
}

func (r *postgresFieldReportRepo) Update(ctx context.Context, fr *fieldreport.FieldReport) error {
	query := `
		UPDATE field_reports SET body = $3, reported_at = $4
		WHERE username = $1 AND session_id = $2
	`
	cmdTag, err := r.db.Exec(ctx, query, fr.Username, fr.SessionID, fr.FieldReports, fr.Time)
	if err != nil {
		return apperror.NewStorage("failed to update field report", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("field report", fr.Key().String())
	}
	return nil
}

// Upsert reports creation through xmax, which is zero only for a row the
// statement inserted.
func (r *postgresFieldReportRepo) Upsert(ctx context.Context, fr *fieldreport.FieldReport) (bool, error) {
	query := `
		INSERT INTO field_reports (id, username, session_id, body, reported_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username, session_id) DO UPDATE SET
			body = EXCLUDED.body,
			reported_at = EXCLUDED.reported_at
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err := r.db.QueryRow(ctx, query, uuid.New(), fr.Username, fr.SessionID, fr.FieldReports, fr.Time).Scan(&inserted)
	if err != nil {
		return false, apperror.NewStorage("failed to upsert field report", err)
	}
	return inserted, nil
}
