// Package client is the HTTP client for the incident API. It mirrors the
// server's validation so bad input is rejected before any request is made.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"incidentLog/internal/domain"
	"incidentLog/pkg/validator"
)

var ErrIncidentNotFound = errors.New("incident not found")

// APIError is any non-2xx, non-404 answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client for baseURL, e.g. "http://localhost:7777/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetIncidents(ctx context.Context) ([]domain.Incident, error) {
	var out []domain.Incident
	if err := c.do(ctx, http.MethodGet, "/incidents", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch incidents: %w", err)
	}
	if out == nil {
		out = []domain.Incident{}
	}
	return out, nil
}

// CreateIncident validates locally first; a *e.ValidationError means nothing was sent.
func (c *Client) CreateIncident(ctx context.Context, req domain.CreateIncidentRequest) (*domain.Incident, error) {
	clean, err := validator.ValidateIncident(req)
	if err != nil {
		return nil, err
	}

	var out domain.Incident
	if err := c.do(ctx, http.MethodPost, "/incidents", clean, &out); err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}
	return &out, nil
}

func (c *Client) GetIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	var out domain.Incident
	if err := c.do(ctx, http.MethodGet, "/incidents/"+id.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch incident: %w", err)
	}
	return &out, nil
}

// GetIncidentByTitle returns the most recently reported incident with exactly this title.
func (c *Client) GetIncidentByTitle(ctx context.Context, title string) (*domain.Incident, error) {
	return c.byTitle(ctx, title, false)
}

// DeleteIncident removes the incident whose title matches case-insensitively.
func (c *Client) DeleteIncident(ctx context.Context, title string) error {
	inc, err := c.byTitle(ctx, title, true)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if err := c.do(ctx, http.MethodDelete, "/incidents/"+inc.ID.String(), nil, nil); err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	return nil
}

func (c *Client) DeleteIncidentByID(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/incidents/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	return nil
}

func (c *Client) Stats(ctx context.Context) (*domain.SeverityStats, error) {
	var out domain.SeverityStats
	if err := c.do(ctx, http.MethodGet, "/incidents/stats", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}
	return &out, nil
}

func (c *Client) byTitle(ctx context.Context, title string, ignoreCase bool) (*domain.Incident, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrIncidentNotFound
	}
	q := url.Values{}
	q.Set("title", title)
	if ignoreCase {
		q.Set("ignore_case", "true")
	}

	var out domain.Incident
	if err := c.do(ctx, http.MethodGet, "/incidents/by-title?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("request done",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrIncidentNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &APIError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &msg) == nil && msg.Message != "" {
		return msg.Message
	}
	return strings.TrimSpace(string(b))
}
