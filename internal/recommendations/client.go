// Package recommendations asks the external recommender for ranked post
// and user ids. The recommender is advisory: every failure degrades to an
// empty ranking and callers fall back to their own ordering.
package recommendations

import (
	"context"
	"fmt"
	"time"

	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/metrics"
	"github.com/campuslink/backend/internal/telemetry"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const serviceName = "recommender"

// Ranker returns ids best first. An empty result means "no opinion".
type Ranker interface {
	RankPosts(ctx context.Context, userID string) []string
	RankUsers(ctx context.Context, userID string) []string
}

// Client calls the recommender over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient returns a Ranker for baseURL, or a no-op Ranker when no
// recommender is configured.
func NewClient(baseURL string, timeout time.Duration) Ranker {
	if baseURL == "" {
		return NopRanker{}
	}
	return &Client{
		http: telemetry.NewUpstreamClient(telemetry.HTTPClientConfig{
			ServiceName: serviceName,
			BaseURL:     baseURL,
			Timeout:     timeout,
		}),
	}
}

// RankPosts calls GET /recommendations/posts?user_id=.
func (c *Client) RankPosts(ctx context.Context, userID string) []string {
	return c.rank(ctx, "posts", userID)
}

// RankUsers calls GET /recommendations/users?user_id=.
func (c *Client) RankUsers(ctx context.Context, userID string) []string {
	return c.rank(ctx, "users", userID)
}

func (c *Client) rank(ctx context.Context, kind, userID string) []string {
	ctx, span := telemetry.TraceExternalCall(ctx, serviceName, "rank_"+kind)
	defer span.End()

	m := metrics.Get()
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		Get("/recommendations/" + kind)
	m.UpstreamDuration.WithLabelValues(serviceName).Observe(time.Since(start).Seconds())

	if err == nil && resp.IsError() {
		err = fmt.Errorf("recommender returned status %d", resp.StatusCode())
	}
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode()
		}
		telemetry.RecordExternalCallError(span, err, status)
		m.UpstreamRequestsTotal.WithLabelValues(serviceName, "error").Inc()
		logger.WarnWithFields("Recommender unavailable, falling back", err,
			logger.WithUserID(userID), zap.String("kind", kind))
		return nil
	}

	ids, err := NormalizeIDs(resp.Body())
	if err != nil {
		telemetry.RecordExternalCallError(span, err, resp.StatusCode())
		m.UpstreamRequestsTotal.WithLabelValues(serviceName, "malformed").Inc()
		logger.WarnWithFields("Recommender returned an unrecognised payload", err,
			logger.WithUserID(userID), zap.String("kind", kind))
		return nil
	}

	m.UpstreamRequestsTotal.WithLabelValues(serviceName, "ok").Inc()
	return ids
}

// NopRanker never has an opinion.
type NopRanker struct{}

func (NopRanker) RankPosts(context.Context, string) []string { return nil }
func (NopRanker) RankUsers(context.Context, string) []string { return nil }
