package http

import (
	"time"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/internal/domain/profile"
)

// Profile DTOs

type CreateProfileRequest struct {
	Email      string  `json:"email"`
	Username   string  `json:"username"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Pronouns   *string `json:"pronouns"`
	Occupation *string `json:"occupation"`
	Bio        *string `json:"bio"`
}

// UpdateProfileRequest carries every mutable field. An omitted optional
// field removes the stored value; email comes from the path.
type UpdateProfileRequest struct {
	Username   string  `json:"username"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Pronouns   *string `json:"pronouns"`
	Occupation *string `json:"occupation"`
	Bio        *string `json:"bio"`
}

type ProfileDTO struct {
	Email      string  `json:"email"`
	Username   string  `json:"username"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Pronouns   *string `json:"pronouns,omitempty"`
	Occupation *string `json:"occupation,omitempty"`
	Bio        *string `json:"bio,omitempty"`
}

type UpdateResultDTO struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

func ToProfileDTO(p *profile.Profile) ProfileDTO {
	return ProfileDTO{
		Email:      p.Email,
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Pronouns:   p.Pronouns,
		Occupation: p.Occupation,
		Bio:        p.Bio,
	}
}

func ToUpdateResultDTO(r profile.UpdateResult) UpdateResultDTO {
	return UpdateResultDTO{MatchedCount: r.MatchedCount, ModifiedCount: r.ModifiedCount}
}

// Field report DTOs

type CreateFieldReportRequest struct {
	Username     string     `json:"username"`
	FieldReports string     `json:"fieldReports"`
	Time         *time.Time `json:"time"`
}

type WriteFieldReportRequest struct {
	FieldReports string     `json:"fieldReports"`
	Time         *time.Time `json:"time"`
}

type FieldReportDTO struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"sessionID"`
	FieldReports string    `json:"fieldReports"`
	Time         time.Time `json:"time"`
}

type SaveFieldReportDTO struct {
	Created bool `json:"created"`
}

func ToFieldReportDTO(r *fieldreport.FieldReport) FieldReportDTO {
	return FieldReportDTO{
		Username:     r.Username,
		SessionID:    r.SessionID,
		FieldReports: r.FieldReports,
		Time:         r.Time,
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
