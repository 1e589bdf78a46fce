// Package oauth verifies human identity through the LinkedIn OAuth flow:
// provider-side authentication is the proof, no claim code is involved.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"agentsid/internal/platform/config"
	"agentsid/internal/platform/metrics"
)

const tracerName = "agentsid/verification/oauth"

// Identity is the provider's claim set for an authenticated user.
type Identity struct {
	Subject   string `json:"sub"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"picture"`
}

// Provider is the external OAuth surface the verifier depends on.
type Provider interface {
	// Exchange swaps an authorization code for an access token.
	Exchange(ctx context.Context, authCode, redirectURI string) (string, error)

	// UserInfo fetches the standard identity claims for a token.
	UserInfo(ctx context.Context, accessToken string) (*Identity, error)
}

// Client implements Provider against LinkedIn. Calls carry the configured
// timeout; provider outages must not hang the callback request.
type Client struct {
	cfg     config.LinkedInConfig
	http    *http.Client
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

type ClientOption func(*Client)

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(cfg config.LinkedInConfig, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthorizeURL builds the provider redirect for flow start.
func (c *Client) AuthorizeURL(state, redirectURI string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("scope", "openid profile email")
	return c.cfg.AuthorizeURL + "?" + q.Encode()
}

func (c *Client) Exchange(ctx context.Context, authCode, redirectURI string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "linkedin.token_exchange")
	defer span.End()
	start := time.Now()
	defer c.observe(start)

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", authCode)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}
	return payload.AccessToken, nil
}

func (c *Client) UserInfo(ctx context.Context, accessToken string) (*Identity, error) {
	ctx, span := c.tracer.Start(ctx, "linkedin.userinfo")
	defer span.End()
	start := time.Now()
	defer c.observe(start)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}
	if identity.Subject == "" {
		return nil, fmt.Errorf("userinfo response carried no subject")
	}
	return &identity, nil
}

func (c *Client) observe(start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveExternalLatency("linkedin", time.Since(start))
	}
}
