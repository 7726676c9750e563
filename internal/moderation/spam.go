// Package moderation classifies user text through the external spam
// service.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/metrics"
	"github.com/campuslink/backend/internal/telemetry"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const serviceName = "spam"

// Verdict is the normalized classifier answer. Checked is false when the
// classifier could not be consulted; the text is then treated as clean.
type Verdict struct {
	Spam    bool    `json:"spam"`
	Score   float64 `json:"spam_score"`
	Label   string  `json:"spam_label"`
	Checked bool    `json:"spam_checked"`
}

// Classifier never fails: an unavailable upstream yields an unchecked
// clean verdict.
type Classifier interface {
	Classify(ctx context.Context, text string) Verdict
}

// SpamClient posts {"text": ...} to the classifier.
type SpamClient struct {
	http *resty.Client
}

// NewSpamClient returns a Classifier for url, or a no-op Classifier when
// none is configured.
func NewSpamClient(url string, timeout time.Duration) Classifier {
	if url == "" {
		return NopClassifier{}
	}
	return &SpamClient{
		http: telemetry.NewUpstreamClient(telemetry.HTTPClientConfig{
			ServiceName: serviceName,
			BaseURL:     url,
			Timeout:     timeout,
		}),
	}
}

func (c *SpamClient) Classify(ctx context.Context, text string) Verdict {
	ctx, span := telemetry.TraceExternalCall(ctx, serviceName, "classify")
	defer span.End()

	m := metrics.Get()
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": text}).
		Post("")
	m.UpstreamDuration.WithLabelValues(serviceName).Observe(time.Since(start).Seconds())

	if err == nil && resp.IsError() {
		err = fmt.Errorf("spam classifier returned status %d", resp.StatusCode())
	}
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode()
		}
		telemetry.RecordExternalCallError(span, err, status)
		m.UpstreamRequestsTotal.WithLabelValues(serviceName, "error").Inc()
		logger.WarnWithFields("Spam classifier unavailable, accepting text unchecked", err)
		return Verdict{}
	}

	verdict, err := NormalizeVerdict(resp.Body())
	if err != nil {
		telemetry.RecordExternalCallError(span, err, resp.StatusCode())
		m.UpstreamRequestsTotal.WithLabelValues(serviceName, "malformed").Inc()
		logger.WarnWithFields("Spam classifier returned an unrecognised payload", err)
		return Verdict{}
	}

	m.UpstreamRequestsTotal.WithLabelValues(serviceName, "ok").Inc()
	logger.Log.Debug("Text classified",
		zap.Bool("spam", verdict.Spam),
		zap.Float64("score", verdict.Score),
		zap.String("label", verdict.Label),
	)
	return verdict
}

// NormalizeVerdict maps the classifier payload onto a Verdict. It accepts
// spam|is_spam for the flag, score|probability|confidence for the score
// and label|prediction for the label. Without a flag, a "spam" label
// decides.
func NormalizeVerdict(body []byte) (Verdict, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Verdict{}, fmt.Errorf("decode spam verdict: %w", err)
	}

	v := Verdict{Checked: true}
	v.Label = strings.ToLower(strings.TrimSpace(firstString(raw, "label", "prediction")))
	v.Score = firstNumber(raw, "score", "probability", "confidence")

	flag, hasFlag := firstBool(raw, "spam", "is_spam")
	switch {
	case hasFlag:
		v.Spam = flag
	case v.Label != "":
		v.Spam = v.Label == "spam"
	default:
		return Verdict{}, fmt.Errorf("spam verdict has neither flag nor label")
	}
	return v, nil
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok {
			return s
		}
	}
	return ""
}

func firstNumber(raw map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		switch n := raw[k].(type) {
		case float64:
			return n
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func firstBool(raw map[string]interface{}, keys ...string) (bool, bool) {
	for _, k := range keys {
		switch b := raw[k].(type) {
		case bool:
			return b, true
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return parsed, true
			}
		case float64:
			return b != 0, true
		}
	}
	return false, false
}

// NopClassifier accepts everything unchecked.
type NopClassifier struct{}

func (NopClassifier) Classify(context.Context, string) Verdict { return Verdict{} }
