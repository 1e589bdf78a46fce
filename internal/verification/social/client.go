// Package social verifies agent handles against the Moltbook content
// platform: the agent proves control of an account by publishing the
// issued claim code in a post or comment.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agentsid/internal/platform/config"
	"agentsid/internal/platform/metrics"
)

const tracerName = "agentsid/verification/social"

// Post is one content item from the platform feed.
type Post struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Comment is one reply under a post.
type Comment struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ContentAPI is the read surface the verifier scans.
type ContentAPI interface {
	// RecentPosts returns up to limit recent posts by the named account.
	RecentPosts(ctx context.Context, handle string, limit int) ([]Post, error)

	// Comments returns the comment thread for a post.
	Comments(ctx context.Context, postID string) ([]Comment, error)
}

// Client talks to the Moltbook read API with a bearer token. Every call
// carries the configured timeout so a platform outage cannot hang a
// verifying request.
type Client struct {
	baseURL string
	apiKey  string
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

func NewClient(cfg config.MoltbookConfig, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) RecentPosts(ctx context.Context, handle string, limit int) ([]Post, error) {
	ctx, span := c.tracer.Start(ctx, "moltbook.recent_posts",
		trace.WithAttributes(attribute.String("moltbook.handle", handle)))
	defer span.End()

	endpoint := fmt.Sprintf("%s/agents/%s/posts?limit=%s",
		c.baseURL, url.PathEscape(handle), strconv.Itoa(limit))

	var payload struct {
		Posts []Post `json:"posts"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("moltbook.posts", len(payload.Posts)))
	return payload.Posts, nil
}

func (c *Client) Comments(ctx context.Context, postID string) ([]Comment, error) {
	ctx, span := c.tracer.Start(ctx, "moltbook.comments",
		trace.WithAttributes(attribute.String("moltbook.post_id", postID)))
	defer span.End()

	endpoint := fmt.Sprintf("%s/posts/%s/comments", c.baseURL, url.PathEscape(postID))

	var payload struct {
		Comments []Comment `json:"comments"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return payload.Comments, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveExternalLatency("moltbook", time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build moltbook request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("moltbook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("moltbook returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode moltbook response: %w", err)
	}
	return nil
}
