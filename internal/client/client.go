// Package client talks to the town-notes API and turns failed envelopes back
// into apperror values, so callers branch with errors.Is exactly as the
// services do.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/envelope"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with httptest.Server.Client().
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateProfile returns the storage identifier of the new profile.
func (c *Client) CreateProfile(ctx context.Context, p profile.Profile) (string, error) {
	id, err := do[string](ctx, c, http.MethodPost, "/api/profiles", p)
	if err != nil {
		return "", err
	}
	return *id, nil
}

func (c *Client) FetchProfile(ctx context.Context, email string) (*profile.Profile, error) {
	return do[profile.Profile](ctx, c, http.MethodGet, "/api/profiles/"+url.PathEscape(email), nil)
}

func (c *Client) UpdateUser(ctx context.Context, p profile.Profile) (profile.UpdateResult, error) {
	res, err := do[profile.UpdateResult](ctx, c, http.MethodPatch, "/api/profiles/"+url.PathEscape(p.Email), p)
	if err != nil {
		return profile.UpdateResult{}, err
	}
	return *res, nil
}

func (c *Client) ListFieldReport(ctx context.Context, key fieldreport.Key) (*fieldreport.FieldReport, error) {
	return do[fieldreport.FieldReport](ctx, c, http.MethodGet, reportPath(key), nil)
}

func (c *Client) CreateFieldReport(ctx context.Context, r fieldreport.FieldReport) error {
	body := writeBody{Username: r.Username, FieldReports: r.FieldReports, Time: timePtr(r.Time)}
	_, err := do[envelope.Ack](ctx, c, http.MethodPost, "/api/sessions/"+url.PathEscape(r.SessionID)+"/field-reports", body)
	return err
}

func (c *Client) UpdateFieldReport(ctx context.Context, r fieldreport.FieldReport) error {
	body := writeBody{FieldReports: r.FieldReports, Time: timePtr(r.Time)}
	_, err := do[envelope.Ack](ctx, c, http.MethodPatch, reportPath(r.Key()), body)
	return err
}

// SaveFieldReport reports whether the record was created.
func (c *Client) SaveFieldReport(ctx context.Context, r fieldreport.FieldReport) (bool, error) {
	body := writeBody{FieldReports: r.FieldReports, Time: timePtr(r.Time)}
	res, err := do[struct {
		Created bool `json:"created"`
	}](ctx, c, http.MethodPut, reportPath(r.Key()), body)
	if err != nil {
		return false, err
	}
	return res.Created, nil
}

type writeBody struct {
	Username     string     `json:"username,omitempty"`
	FieldReports string     `json:"fieldReports"`
	Time         *time.Time `json:"time,omitempty"`
}

func reportPath(key fieldreport.Key) string {
	return "/api/sessions/" + url.PathEscape(key.SessionID) + "/field-reports/" + url.PathEscape(key.Username)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func do[T any](ctx context.Context, c *Client, method, path string, in any) (*T, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.NewStorage("service unreachable", err)
	}
	defer resp.Body.Close()

	var env envelope.Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, apperror.NewInternal(fmt.Sprintf("undecodable response with status %d", resp.StatusCode), err)
	}
	if !env.Valid() {
		return nil, apperror.NewInternal(fmt.Sprintf("malformed envelope with status %d", resp.StatusCode), nil)
	}
	if !env.IsOK {
		return nil, errorFromStatus(resp.StatusCode, env.Err())
	}
	return env.Response, nil
}

// errorFromStatus restores the error kind the server mapped to status.
func errorFromStatus(status int, failure error) error {
	base := apperror.ErrStorage
	switch status {
	case http.StatusNotFound:
		base = apperror.ErrNotFound
	case http.StatusBadRequest:
		base = apperror.ErrInvalidInput
	case http.StatusConflict:
		base = apperror.ErrDuplicateKey
	case http.StatusUnauthorized:
		base = apperror.ErrUnauthorized
	case http.StatusForbidden:
		base = apperror.ErrPermission
	}
	return apperror.NewAppError(base, failure.Error(), fmt.Sprintf("server answered %d", status), failure)
}
