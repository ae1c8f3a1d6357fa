package fieldreport

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Key identifies the single report a user keeps for a session.
type Key struct {
	Username  string
	SessionID string
}

func (k Key) String() string {
	return k.Username + "/" + k.SessionID
}

func (k Key) Validate() error {
	if strings.TrimSpace(k.Username) == "" {
		return ErrUsernameRequired
	}
	if strings.TrimSpace(k.SessionID) == "" {
		return ErrSessionRequired
	}
	return nil
}

// FieldReport is one free-text note. FieldReports holds the whole body.
type FieldReport struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"sessionID"`
	FieldReports string    `json:"fieldReports"`
	Time         time.Time `json:"time"`
}

func (r *FieldReport) Key() Key {
	return Key{Username: r.Username, SessionID: r.SessionID}
}

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrSessionRequired  = errors.New("session id is required")
)

// Repository stores at most one report per Key. Update returns an
// apperror NotFound when nothing matched. Upsert reports whether it created.
type Repository interface {
	Find(ctx context.Context, key Key) (*FieldReport, error)
	Insert(ctx context.Context, r *FieldReport) error
	Update(ctx context.Context, r *FieldReport) error
	Upsert(ctx context.Context, r *FieldReport) (bool, error)
}
