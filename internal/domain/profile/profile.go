package profile

import (
	"context"
	"errors"
	"strings"
)

// Profile is keyed by Email. Optional fields are nil when never provided,
// which is distinct from an empty string.
type Profile struct {
	Email      string  `json:"email"`
	Username   string  `json:"username"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Pronouns   *string `json:"pronouns,omitempty"`
	Occupation *string `json:"occupation,omitempty"`
	Bio        *string `json:"bio,omitempty"`
}

// UpdateResult mirrors the store's match/modify counters. A zero
// MatchedCount means the update did not find a profile for the email.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

var (
	ErrEmailRequired     = errors.New("email is required")
	ErrFirstNameRequired = errors.New("first name is required")
	ErrLastNameRequired  = errors.New("last name is required")
	ErrUsernameRequired  = errors.New("username is required")
)

func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return ErrEmailRequired
	}
	return nil
}

// ValidateRequired checks the fields the edit form refuses to submit empty.
func (p *Profile) ValidateRequired() error {
	if err := p.Validate(); err != nil {
		return err
	}
	switch {
	case p.FirstName == "":
		return ErrFirstNameRequired
	case p.LastName == "":
		return ErrLastNameRequired
	case p.Username == "":
		return ErrUsernameRequired
	}
	return nil
}

// Merge returns a copy of p with the mutable fields of m applied. The email
// of p is kept.
func (p Profile) Merge(m Profile) Profile {
	m.Email = p.Email
	return m
}

// Optional is a helper for building optional fields.
func Optional(s string) *string {
	return &s
}

// Value returns the optional field or "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type Repository interface {
	Insert(ctx context.Context, p *Profile) (string, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	UpdateByEmail(ctx context.Context, p *Profile) (UpdateResult, error)
}
