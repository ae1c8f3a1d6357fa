package persistence

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type postgresProfileRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresProfileRepo(db *pgxpool.Pool, logger logger.Logger) profile.Repository {
	return &postgresProfileRepo{db: db, logger: logger}
}

var psqlProfile = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *postgresProfileRepo) Insert(ctx context.Context, p *profile.Profile) (string, error) {
	id := uuid.New()
	query := `
		INSERT INTO profiles (id, email, username, first_name, last_name, pronouns, occupation, bio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		id, p.Email, p.Username, p.FirstName, p.LastName,
		p.Pronouns, p.Occupation, p.Bio,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", apperror.NewDuplicateKey("profile", p.Email, err)
		}
		return "", apperror.NewStorage("this did not work", err)
	}
	return id.String(), nil
}

func (r *postgresProfileRepo) FindByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	query := `
		SELECT email, username, first_name, last_name, pronouns, occupation, bio
		FROM profiles
		WHERE email = $1
	`
	p := &profile.Profile{}
	err := r.db.QueryRow(ctx, query, email).Scan(
		&p.Email,
		&p.Username,
		&p.FirstName,
		&p.LastName,
		&p.Pronouns,
		&p.Occupation,
		&p.Bio,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("profile", email)
		}
		return nil, apperror.NewStorage("failed to query profile", err)
	}
	return p, nil
}

// UpdateByEmail only touches rows whose values differ, so the affected row
// count is the modified count. A second query tells matched from missing
// when nothing was modified.
func (r *postgresProfileRepo) UpdateByEmail(ctx context.Context, p *profile.Profile) (profile.UpdateResult, error) {
	builder := psqlProfile.Update("profiles").
		SetMap(map[string]any{
			"username":   p.Username,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
			"pronouns":   p.Pronouns,
			"occupation": p.Occupation,
			"bio":        p.Bio,
			"updated_at": sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"email": p.Email}).
		Where(sq.Or{
			sq.Expr("username IS DISTINCT FROM ?", p.Username),
			sq.Expr("first_name IS DISTINCT FROM ?", p.FirstName),
			sq.Expr("last_name IS DISTINCT FROM ?", p.LastName),
			sq.Expr("pronouns IS DISTINCT FROM ?", p.Pronouns),
			sq.Expr("occupation IS DISTINCT FROM ?", p.Occupation),
			sq.Expr("bio IS DISTINCT FROM ?", p.Bio),
		})

	sql, args, err := builder.ToSql()
	if err != nil {
		return profile.UpdateResult{}, apperror.NewInternal("failed to build update profile query", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return profile.UpdateResult{}, apperror.NewStorage("error has occured when updating document in database", err)
	}
	if modified := cmdTag.RowsAffected(); modified > 0 {
		return profile.UpdateResult{MatchedCount: modified, ModifiedCount: modified}, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE email = $1)`, p.Email).Scan(&exists); err != nil {
		return profile.UpdateResult{}, apperror.NewStorage("error has occured when updating document in database", err)
	}
	if !exists {
		r.logger.Warn("Profile update matched no row", zap.String("email", p.Email))
		return profile.UpdateResult{}, nil
	}
	return profile.UpdateResult{MatchedCount: 1}, nil
}
