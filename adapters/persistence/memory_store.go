package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
)

// MemoryStore keeps both collections in process. Each method holds the lock
// for its whole body, which gives the same single-document atomicity the
// real stores provide. Keys are unique, like the indexes on the real stores.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]memoryProfile
	reports  map[fieldreport.Key]fieldreport.FieldReport
	failure  error
}

type memoryProfile struct {
	id      string
	profile profile.Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]memoryProfile),
		reports:  make(map[fieldreport.Key]fieldreport.FieldReport),
	}
}

// FailWith makes every following operation fail with a storage error
// wrapping err, until called again with nil.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

func (s *MemoryStore) Profiles() profile.Repository {
	return memoryProfileRepo{s}
}

func (s *MemoryStore) FieldReports() fieldreport.Repository {
	return memoryFieldReportRepo{s}
}

// ReportCount returns how many reports exist for a key. Always 0 or 1.
func (s *MemoryStore) ReportCount(key fieldreport.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[key]; ok {
		return 1
	}
	return 0
}

func (s *MemoryStore) checkFailure(op string) error {
	if s.failure != nil {
		return apperror.NewStorage(op, s.failure)
	}
	return nil
}

func copyOptional(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyProfile(p profile.Profile) profile.Profile {
	p.Pronouns = copyOptional(p.Pronouns)
	p.Occupation = copyOptional(p.Occupation)
	p.Bio = copyOptional(p.Bio)
	return p
}

type memoryProfileRepo struct {
	s *MemoryStore
}

func (r memoryProfileRepo) Insert(_ context.Context, p *profile.Profile) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("failed to insert profile"); err != nil {
		return "", err
	}
	if _, ok := r.s.profiles[p.Email]; ok {
		return "", apperror.NewDuplicateKey("profile", p.Email, nil)
	}
	id := uuid.NewString()
	r.s.profiles[p.Email] = memoryProfile{id: id, profile: copyProfile(*p)}
	return id, nil
}

func (r memoryProfileRepo) FindByEmail(_ context.Context, email string) (*profile.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("failed to query profile"); err != nil {
		return nil, err
	}
	mp, ok := r.s.profiles[email]
	if !ok {
		return nil, apperror.NewNotFound("profile", email)
	}
	p := copyProfile(mp.profile)
	return &p, nil
}

func (r memoryProfileRepo) UpdateByEmail(_ context.Context, p *profile.Profile) (profile.UpdateResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("failed to update profile"); err != nil {
		return profile.UpdateResult{}, err
	}
	mp, ok := r.s.profiles[p.Email]
	if !ok {
		return profile.UpdateResult{}, nil
	}
	next := copyProfile(*p)
	res := profile.UpdateResult{MatchedCount: 1}
	if !sameProfile(mp.profile, next) {
		res.ModifiedCount = 1
	}
	mp.profile = next
	r.s.profiles[p.Email] = mp
	return res, nil
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameProfile(a, b profile.Profile) bool {
	return a.Username == b.Username &&
		a.FirstName == b.FirstName &&
		a.LastName == b.LastName &&
		sameOptional(a.Pronouns, b.Pronouns) &&
		sameOptional(a.Occupation, b.Occupation) &&
		sameOptional(a.Bio, b.Bio)
}

type memoryFieldReportRepo struct {
	s *MemoryStore
}

func (r memoryFieldReportRepo) Find(_ context.Context, key fieldreport.Key) (*fieldreport.FieldReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("failed to query field report"); err != nil {
		return nil, err
	}
	fr, ok := r.s.reports[key]
	if !ok {
		return nil, apperror.NewNotFound("field report", key.String())
	}
	return &fr, nil
}

func (r memoryFieldReportRepo) Insert(_ context.Context, fr *fieldreport.FieldReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("failed to insert field report"); err != nil {
		return err
	}
	key := fr.Key()
	if _, ok := r.s.reports[key]; ok {
		return apperror.NewDuplicateKey("field report", key.String(), nil)
	}
	r.s.reports[key] = *fr
	return nil
}

func (r memoryFieldReportRepo) Update(_ context.Context, fr *fieldreport.FieldReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("failed to update field report"); err != nil {
		return err
	}
	key := fr.Key()
	if _, ok := r.s.reports[key]; !ok {
		return apperror.NewNotFound("field report", key.String())
	}
	r.s.reports[key] = *fr
	return nil
}

func (r memoryFieldReportRepo) Upsert(_ context.Context, fr *fieldreport.FieldReport) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("failed to upsert field report"); err != nil {
		return false, err
	}
	key := fr.Key()
	_, existed := r.s.reports[key]
	r.s.reports[key] = *fr
	return !existed, nil
}
