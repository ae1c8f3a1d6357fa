// Package orchestrator drives the field report and profile editors on top of
// the API client. It owns the editor state machine and the pause held on the
// presentation stream while a report is open.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type State int

const (
	Unopened State = iota
	Loading
	NoExistingReport
	HasExistingReport
	Editing
	Saving
	Saved
	SaveFailed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Loading:
		return "loading"
	case NoExistingReport:
		return "no-existing-report"
	case HasExistingReport:
		return "has-existing-report"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case SaveFailed:
		return "save-failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrInvalidTransition = errors.New("invalid editor transition")
	ErrEditorClosed      = errors.New("editor closed")
)

// FieldReportService is the subset of the API the editor calls.
type FieldReportService interface {
	ListFieldReport(ctx context.Context, key fieldreport.Key) (*fieldreport.FieldReport, error)
	CreateFieldReport(ctx context.Context, r fieldreport.FieldReport) error
	UpdateFieldReport(ctx context.Context, r fieldreport.FieldReport) error
}

// Stream is the presentation stream playing alongside the editor.
type Stream interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Notifier shows the user the outcome of an editor action.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// pause is a held Pause on a stream. Release resumes it at most once.
type pause struct {
	stream Stream
	once   sync.Once
	err    error
}

func acquirePause(ctx context.Context, s Stream) (*pause, error) {
	if err := s.Pause(ctx); err != nil {
		return nil, err
	}
	return &pause{stream: s}, nil
}

func (p *pause) Release(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.once.Do(func() { p.err = p.stream.Resume(ctx) })
	return p.err
}

type ReportEditor struct {
	svc      FieldReportService
	stream   Stream
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	key    fieldreport.Key
	state  State
	exists bool
	saved  string
	draft  string
	hold   *pause
	// epoch advances on every Close so in-flight calls can tell they lost.
	epoch uint64
}

func NewReportEditor(svc FieldReportService, stream Stream, notifier Notifier, key fieldreport.Key, log logger.Logger) *ReportEditor {
	return &ReportEditor{
		svc:      svc,
		stream:   stream,
		notifier: notifier,
		logger:   log.With(zap.String("key", key.String())),
		now:      func() time.Time { return time.Now().UTC() },
		key:      key,
		state:    Unopened,
	}
}

func (e *ReportEditor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Draft returns the text currently in the editor.
func (e *ReportEditor) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Saved returns the last text known to be persisted.
func (e *ReportEditor) Saved() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saved
}

// Exists reports whether a stored report is known for the key.
func (e *ReportEditor) Exists() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exists
}

func (e *ReportEditor) transition(from []State, to State) error {
	for _, s := range from {
		if e.state == s {
			e.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, e.state, to)
}

// Open pauses the stream and loads the stored report. A missing report
// opens an empty editor. Any other failure resumes the stream and leaves
// the editor unopened.
func (e *ReportEditor) Open(ctx context.Context) error {
	e.mu.Lock()
	if err := e.transition([]State{Unopened}, Loading); err != nil {
		e.mu.Unlock()
		return err
	}
	epoch := e.epoch
	e.mu.Unlock()

	hold, err := acquirePause(ctx, e.stream)
	if err != nil {
		e.logger.Warn("Failed to pause stream", zap.Error(err))
	}

	r, err := e.svc.ListFieldReport(ctx, e.key)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != epoch {
		if rerr := hold.Release(ctx); rerr != nil {
			e.logger.Warn("Failed to resume stream", zap.Error(rerr))
		}
		return ErrEditorClosed
	}
	e.hold = hold

	switch {
	case err == nil:
		e.state = HasExistingReport
		e.exists = true
		e.saved = r.FieldReports
		e.draft = r.FieldReports
		return nil
	case errors.Is(err, apperror.ErrNotFound):
		e.state = NoExistingReport
		e.exists = false
		e.saved = ""
		e.draft = ""
		return nil
	default:
		e.state = Unopened
		e.releaseLocked(ctx)
		e.notifier.Failure(apperror.MessageOf(err))
		return fmt.Errorf("open field report failed: %w", err)
	}
}

// Edit replaces the draft text.
func (e *ReportEditor) Edit(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.transition([]State{NoExistingReport, HasExistingReport, Editing, Saved, SaveFailed}, Editing); err != nil {
		return err
	}
	e.draft = text
	return nil
}

// Submit persists the draft. It creates when no stored report is known and
// updates otherwise, switching to the other write if the store disagrees.
func (e *ReportEditor) Submit(ctx context.Context) error {
	e.mu.Lock()
	if err := e.transition([]State{NoExistingReport, HasExistingReport, Editing}, Saving); err != nil {
		e.mu.Unlock()
		return err
	}
	exists := e.exists
	r := fieldreport.FieldReport{
		Username:     e.key.Username,
		SessionID:    e.key.SessionID,
		FieldReports: e.draft,
		Time:         e.now(),
	}
	epoch := e.epoch
	e.mu.Unlock()

	err := e.write(ctx, exists, r)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != epoch {
		// Closed mid-save: report the write outcome, keep the reset state.
		if err != nil {
			return fmt.Errorf("save field report failed: %w", err)
		}
		return nil
	}
	if err != nil {
		e.state = SaveFailed
		e.notifier.Failure(apperror.MessageOf(err))
		return fmt.Errorf("save field report failed: %w", err)
	}
	e.state = Saved
	e.exists = true
	e.saved = r.FieldReports
	e.notifier.Success("Field report saved")
	return nil
}

func (e *ReportEditor) write(ctx context.Context, exists bool, r fieldreport.FieldReport) error {
	if exists {
		err := e.svc.UpdateFieldReport(ctx, r)
		if errors.Is(err, apperror.ErrNotFound) {
			e.logger.Info("Stored report vanished, creating it")
			return e.svc.CreateFieldReport(ctx, r)
		}
		return err
	}

	err := e.svc.CreateFieldReport(ctx, r)
	if errors.Is(err, apperror.ErrDuplicateKey) {
		e.logger.Info("Report was created elsewhere, updating it")
		return e.svc.UpdateFieldReport(ctx, r)
	}
	return err
}

// Retry returns a failed save to editing with the draft intact.
func (e *ReportEditor) Retry() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transition([]State{SaveFailed}, Editing)
}

// Close resumes the stream and resets the editor. Safe to call more than
// once and from any state. An Open or Submit still in flight finishes
// without touching the reset editor.
func (e *ReportEditor) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.releaseLocked(ctx)
	e.state = Unopened
	e.epoch++
	return err
}

func (e *ReportEditor) releaseLocked(ctx context.Context) error {
	hold := e.hold
	e.hold = nil
	if err := hold.Release(ctx); err != nil {
		e.logger.Warn("Failed to resume stream", zap.Error(err))
		return err
	}
	return nil
}

// WithEditor opens an editor, hands it to fn and closes it on every path,
// panics included.
func WithEditor(ctx context.Context, e *ReportEditor, fn func(ctx context.Context, e *ReportEditor) error) (err error) {
	if err := e.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, e)
}
