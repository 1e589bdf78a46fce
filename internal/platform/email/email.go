// Package email dispatches transactional mail through the Resend API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"agentsid/internal/platform/config"
	"agentsid/internal/platform/metrics"
)

// Sender delivers a message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendClient implements Sender against the Resend REST API.
type ResendClient struct {
	apiKey  string
	from    string
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

type Option func(*ResendClient)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ResendClient) {
		c.metrics = m
	}
}

func NewResend(cfg config.ResendConfig, opts ...Option) *ResendClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &ResendClient{
		apiKey:  cfg.APIKey,
		from:    cfg.FromEmail,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("agentsid/platform/email"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ResendClient) Send(ctx context.Context, to, subject, html string) error {
	ctx, span := c.tracer.Start(ctx, "resend.send")
	defer span.End()

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveExternalLatency("resend", time.Since(start))
		}
	}()

	body, err := json.Marshal(map[string]any{
		"from":    c.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("email dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}
	return nil
}

// MemorySender captures sent messages for tests.
type MemorySender struct {
	Messages []SentMessage
	Err      error
}

// SentMessage is one captured delivery.
type SentMessage struct {
	To      string
	Subject string
	HTML    string
}

func (s *MemorySender) Send(_ context.Context, to, subject, html string) error {
	if s.Err != nil {
		return s.Err
	}
	s.Messages = append(s.Messages, SentMessage{To: to, Subject: subject, HTML: html})
	return nil
}
