package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
)

func TestMemoryProfiles_InsertFindUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Profiles()

	p := &profile.Profile{
		Email: "alice@town.test", Username: "alice", FirstName: "Alice", LastName: "Liddell",
		Bio: profile.Optional("curious"),
	}
	id, err := repo.Insert(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// the stored copy must not alias the caller's pointers
	*p.Bio = "mutated"

	got, err := repo.FindByEmail(ctx, "alice@town.test")
	require.NoError(t, err)
	assert.Equal(t, "curious", profile.Value(got.Bio))
	assert.Nil(t, got.Pronouns)

	res, err := repo.UpdateByEmail(ctx, &profile.Profile{
		Email: "alice@town.test", Username: "alice", FirstName: "Alice", LastName: "Liddell",
		Pronouns: profile.Optional("she/her"),
	})
	require.NoError(t, err)
	assert.Equal(t, profile.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, res)

	got, err = repo.FindByEmail(ctx, "alice@town.test")
	require.NoError(t, err)
	assert.Equal(t, "she/her", profile.Value(got.Pronouns))
	assert.Nil(t, got.Bio, "absent optional field is removed by a replace")
}

func TestMemoryProfiles_UnchangedUpdateIsNotModified(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Profiles()
	p := &profile.Profile{Email: "a@town.test", Username: "a", FirstName: "A", LastName: "B"}
	_, err := repo.Insert(ctx, p)
	require.NoError(t, err)

	res, err := repo.UpdateByEmail(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, profile.UpdateResult{MatchedCount: 1, ModifiedCount: 0}, res)
}

func TestMemoryProfiles_UpdateMissingMatchesNothing(t *testing.T) {
	res, err := NewMemoryStore().Profiles().UpdateByEmail(context.Background(), &profile.Profile{Email: "ghost@town.test"})
	require.NoError(t, err)
	assert.Zero(t, res.MatchedCount)
}

func TestMemoryProfiles_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Profiles()
	_, err := repo.Insert(ctx, &profile.Profile{Email: "a@town.test"})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, &profile.Profile{Email: "a@town.test"})
	assert.ErrorIs(t, err, apperror.ErrDuplicateKey)
}

func TestMemoryProfiles_NotFound(t *testing.T) {
	_, err := NewMemoryStore().Profiles().FindByEmail(context.Background(), "ghost@town.test")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMemoryStore_FailWith(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.FailWith(errors.New("disk on fire"))

	_, err := store.Profiles().Insert(ctx, &profile.Profile{Email: "a@town.test"})
	assert.ErrorIs(t, err, apperror.ErrStorage)

	err = store.FieldReports().Insert(ctx, &fieldreport.FieldReport{Username: "a", SessionID: "s"})
	assert.ErrorIs(t, err, apperror.ErrStorage)

	store.FailWith(nil)
	_, err = store.Profiles().Insert(ctx, &profile.Profile{Email: "a@town.test"})
	assert.NoError(t, err)
}

func TestMemoryFieldReports_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := store.FieldReports()
	key := fieldreport.Key{Username: "alice", SessionID: "s1"}
	t1 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.Find(ctx, key)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = repo.Update(ctx, &fieldreport.FieldReport{Username: "alice", SessionID: "s1", FieldReports: "x", Time: t1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, repo.Insert(ctx, &fieldreport.FieldReport{Username: "alice", SessionID: "s1", FieldReports: "hello", Time: t1}))

	err = repo.Insert(ctx, &fieldreport.FieldReport{Username: "alice", SessionID: "s1", FieldReports: "again", Time: t1})
	assert.ErrorIs(t, err, apperror.ErrDuplicateKey)

	t2 := t1.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, &fieldreport.FieldReport{Username: "alice", SessionID: "s1", FieldReports: "hello world", Time: t2}))

	got, err := repo.Find(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.FieldReports)
	assert.Equal(t, t2, got.Time)
	assert.Equal(t, 1, store.ReportCount(key))
}

func TestMemoryFieldReports_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().FieldReports()
	fr := &fieldreport.FieldReport{Username: "bob", SessionID: "s2", FieldReports: "one"}

	created, err := repo.Upsert(ctx, fr)
	require.NoError(t, err)
	assert.True(t, created)

	fr.FieldReports = "two"
	created, err = repo.Upsert(ctx, fr)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.Find(ctx, fr.Key())
	require.NoError(t, err)
	assert.Equal(t, "two", got.FieldReports)
}

func TestMemoryFieldReports_RacingInsertsLeaveOneRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := store.FieldReports()
	key := fieldreport.Key{Username: "carol", SessionID: "s3"}

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Insert(ctx, &fieldreport.FieldReport{Username: key.Username, SessionID: key.SessionID, FieldReports: "x"})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperror.ErrDuplicateKey):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, dup)
	assert.Equal(t, 1, store.ReportCount(key))
}
