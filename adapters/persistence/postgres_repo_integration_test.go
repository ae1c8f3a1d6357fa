package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type PostgresRepoIntegrationTestSuite struct {
	suite.Suite
	dbPool      *pgxpool.Pool
	pgContainer *postgres.PostgresContainer
	profileRepo profile.Repository
	reportRepo  fieldreport.Repository
}

func (s *PostgresRepoIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(1*time.Minute),
		),
	)
	if err != nil {
		s.T().Fatalf("Failed to start postgres container: %s", err)
	}
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		s.T().Fatalf("Failed to get connection string: %s", err)
	}

	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		s.T().Fatalf("Failed to create migrate instance: %s", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.T().Fatalf("Failed to run migrations: %s", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		s.T().Fatalf("Failed to create pgxpool: %s", err)
	}
	s.dbPool = pool

	s.profileRepo = NewPostgresProfileRepo(s.dbPool, logger.NewNop())
	s.reportRepo = NewPostgresFieldReportRepo(s.dbPool, logger.NewNop())
}

func (s *PostgresRepoIntegrationTestSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate postgres container: %s", err)
		}
	}
}

func TestPostgresRepoIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(PostgresRepoIntegrationTestSuite))
}

func (s *PostgresRepoIntegrationTestSuite) Test_Profile_InsertFindUpdate() {
	ctx := context.Background()

	p := &profile.Profile{
		Email: "alice@town.test", Username: "alice", FirstName: "Alice", LastName: "Liddell",
		Bio: profile.Optional(""),
	}
	id, err := s.profileRepo.Insert(ctx, p)
	s.NoError(err)
	s.NotEmpty(id)

	_, err = s.profileRepo.Insert(ctx, p)
	s.ErrorIs(err, apperror.ErrDuplicateKey)

	got, err := s.profileRepo.FindByEmail(ctx, p.Email)
	s.NoError(err)
	s.Equal(p, got)

	res, err := s.profileRepo.UpdateByEmail(ctx, got)
	s.NoError(err)
	s.Equal(profile.UpdateResult{MatchedCount: 1, ModifiedCount: 0}, res)

	changed := got.Merge(profile.Profile{Username: "alice2", FirstName: "Alice", LastName: "L", Occupation: profile.Optional("explorer")})
	res, err = s.profileRepo.UpdateByEmail(ctx, &changed)
	s.NoError(err)
	s.Equal(profile.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, res)

	got, err = s.profileRepo.FindByEmail(ctx, p.Email)
	s.NoError(err)
	s.Equal("alice2", got.Username)
	s.Equal("explorer", profile.Value(got.Occupation))
	s.Nil(got.Bio)

	res, err = s.profileRepo.UpdateByEmail(ctx, &profile.Profile{Email: "ghost@town.test"})
	s.NoError(err)
	s.Zero(res.MatchedCount)

	_, err = s.profileRepo.FindByEmail(ctx, "ghost@town.test")
	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *PostgresRepoIntegrationTestSuite) Test_FieldReport_Lifecycle() {
	ctx := context.Background()
	key := fieldreport.Key{Username: "alice", SessionID: "s1"}
	t1 := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	_, err := s.reportRepo.Find(ctx, key)
	s.ErrorIs(err, apperror.ErrNotFound)

	s.ErrorIs(s.reportRepo.Update(ctx, &fieldreport.FieldReport{Username: "alice", SessionID: "s1", Time: t1}), apperror.ErrNotFound)

	s.NoError(s.reportRepo.Insert(ctx, &fieldreport.FieldReport{Username: "alice", SessionID: "s1", FieldReports: "hello", Time: t1}))
	s.ErrorIs(s.reportRepo.Insert(ctx, &fieldreport.FieldReport{Username: "alice", SessionID: "s1", FieldReports: "dup", Time: t1}), apperror.ErrDuplicateKey)

	t2 := t1.Add(time.Hour)
	s.NoError(s.reportRepo.Update(ctx, &fieldreport.FieldReport{Username: "alice", SessionID: "s1", FieldReports: "hello world", Time: t2}))

	got, err := s.reportRepo.Find(ctx, key)
	s.NoError(err)
	s.Equal("hello world", got.FieldReports)
	s.True(t2.Equal(got.Time))

	var count int
	s.NoError(s.dbPool.QueryRow(ctx, `SELECT COUNT(*) FROM field_reports WHERE username = $1 AND session_id = $2`, "alice", "s1").Scan(&count))
	s.Equal(1, count)
}

func (s *PostgresRepoIntegrationTestSuite) Test_FieldReport_Upsert() {
	ctx := context.Background()
	fr := &fieldreport.FieldReport{Username: "bob", SessionID: "s9", FieldReports: "first", Time: time.Now().UTC()}

	created, err := s.reportRepo.Upsert(ctx, fr)
	s.NoError(err)
	s.True(created)

	fr.FieldReports = "second"
	created, err = s.reportRepo.Upsert(ctx, fr)
	s.NoError(err)
	s.False(created)

	got, err := s.reportRepo.Find(ctx, fr.Key())
	s.NoError(err)
	s.Equal("second", got.FieldReports)
}
