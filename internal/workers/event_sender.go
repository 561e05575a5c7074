package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"incidentLog/internal/config"
	"incidentLog/internal/domain"
	"incidentLog/pkg/e"
)

const (
	popTimeout   = 5 * time.Second
	errorBackoff = 500 * time.Millisecond
)

type EventSource interface {
	BRPop(ctx context.Context, timeout time.Duration) (domain.IncidentEvent, error)
}

// EventSender drains the event queue and POSTs each event to the webhook once.
// Failed deliveries are logged and dropped.
type EventSender struct {
	logger *slog.Logger
	cfg    config.WebhookConfig
	queue  EventSource
	http   *http.Client
}

func NewEventSender(logger *slog.Logger, cfg config.WebhookConfig, q EventSource) *EventSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventSender{
		logger: logger,
		cfg:    cfg,
		queue:  q,
		http:   &http.Client{Timeout: timeout},
	}
}

func (s *EventSender) Run(ctx context.Context) {
	s.logger.Info("eventSender STARTED", slog.String("url", s.cfg.URL))

	for {
		if ctx.Err() != nil {
			s.logger.Info("eventSender STOPPED", slog.String("reason", ctx.Err().Error()))
			return
		}

		ev, err := s.queue.BRPop(ctx, popTimeout)
		if err != nil {
			if errors.Is(err, e.ErrQueueEmpty) || ctx.Err() != nil {
				continue
			}
			s.logger.Error("BRPop failed", slog.Any("error", err))
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}

		if err := s.send(ctx, ev); err != nil {
			s.logger.Warn("webhook failed",
				slog.String("type", string(ev.Type)),
				slog.String("id", ev.Incident.ID.String()),
				slog.String("reason", err.Error()),
			)
			continue
		}
		s.logger.Debug("webhook delivered", slog.String("type", string(ev.Type)), slog.String("id", ev.Incident.ID.String()))
	}
}

func (s *EventSender) send(ctx context.Context, ev domain.IncidentEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
