package orchestrator

import (
	"context"
	"sync"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
)

type fakeStream struct {
	mu       sync.Mutex
	paused   int
	resumed  int
	pauseErr error
}

func (s *fakeStream) Pause(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pauseErr != nil {
		return s.pauseErr
	}
	s.paused++
	return nil
}

func (s *fakeStream) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumed++
	return nil
}

func (s *fakeStream) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused, s.resumed
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(m string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, m)
}

func (n *recordingNotifier) Failure(m string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, m)
}

// fakeReports is an in-process FieldReportService with injectable errors.
type fakeReports struct {
	mu        sync.Mutex
	reports   map[fieldreport.Key]fieldreport.FieldReport
	listErr   error
	createErr error
	updateErr error
	calls     []string
}

func newFakeReports() *fakeReports {
	return &fakeReports{reports: make(map[fieldreport.Key]fieldreport.FieldReport)}
}

func (f *fakeReports) ListFieldReport(_ context.Context, key fieldreport.Key) (*fieldreport.FieldReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	r, ok := f.reports[key]
	if !ok {
		return nil, apperror.NewNotFound("field report", key.String())
	}
	return &r, nil
}

func (f *fakeReports) CreateFieldReport(_ context.Context, r fieldreport.FieldReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.reports[r.Key()]; ok {
		return apperror.NewDuplicateKey("field report", r.Key().String(), nil)
	}
	f.reports[r.Key()] = r
	return nil
}

func (f *fakeReports) UpdateFieldReport(_ context.Context, r fieldreport.FieldReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update")
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.reports[r.Key()]; !ok {
		return apperror.NewNotFound("field report", r.Key().String())
	}
	f.reports[r.Key()] = r
	return nil
}

func (f *fakeReports) put(r fieldreport.FieldReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[r.Key()] = r
}

func (f *fakeReports) drop(key fieldreport.Key) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reports, key)
}

func (f *fakeReports) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeProfiles struct {
	profiles  map[string]profile.Profile
	fetchErr  error
	createErr error
	calls     []string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]profile.Profile)}
}

func (f *fakeProfiles) FetchProfile(_ context.Context, email string) (*profile.Profile, error) {
	f.calls = append(f.calls, "fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	p, ok := f.profiles[email]
	if !ok {
		return nil, apperror.NewNotFound("profile", email)
	}
	return &p, nil
}

func (f *fakeProfiles) CreateProfile(_ context.Context, p profile.Profile) (string, error) {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return "", f.createErr
	}
	if _, ok := f.profiles[p.Email]; ok {
		return "", apperror.NewDuplicateKey("profile", p.Email, nil)
	}
	f.profiles[p.Email] = p
	return "id-" + p.Email, nil
}

func (f *fakeProfiles) UpdateUser(_ context.Context, p profile.Profile) (profile.UpdateResult, error) {
	f.calls = append(f.calls, "update")
	if _, ok := f.profiles[p.Email]; !ok {
		return profile.UpdateResult{}, nil
	}
	f.profiles[p.Email] = p
	return profile.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

// gatedReports blocks the gated call until release is closed, signalling
// entered first.
type gatedReports struct {
	*fakeReports
	gate    string
	entered chan struct{}
	release chan struct{}
}

func newGatedReports(inner *fakeReports, gate string) *gatedReports {
	return &gatedReports{
		fakeReports: inner,
		gate:        gate,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedReports) wait(call string) {
	if g.gate != call {
		return
	}
	close(g.entered)
	<-g.release
}

func (g *gatedReports) ListFieldReport(ctx context.Context, key fieldreport.Key) (*fieldreport.FieldReport, error) {
	g.wait("list")
	return g.fakeReports.ListFieldReport(ctx, key)
}

func (g *gatedReports) UpdateFieldReport(ctx context.Context, r fieldreport.FieldReport) error {
	g.wait("update")
	return g.fakeReports.UpdateFieldReport(ctx, r)
}
