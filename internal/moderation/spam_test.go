package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVerdict(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Verdict
	}{
		{"flag and score", `{"spam":true,"score":0.93,"label":"SPAM"}`, Verdict{Spam: true, Score: 0.93, Label: "spam", Checked: true}},
		{"is_spam with probability", `{"is_spam":false,"probability":0.1}`, Verdict{Spam: false, Score: 0.1, Checked: true}},
		{"label only", `{"prediction":"spam","confidence":0.7}`, Verdict{Spam: true, Score: 0.7, Label: "spam", Checked: true}},
		{"ham label", `{"label":"ham"}`, Verdict{Label: "ham", Checked: true}},
		{"flag wins over label", `{"spam":false,"label":"spam"}`, Verdict{Label: "spam", Checked: true}},
		{"string values", `{"is_spam":"true","score":"0.5"}`, Verdict{Spam: true, Score: 0.5, Checked: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeVerdict([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeVerdictRejectsUnknownShapes(t *testing.T) {
	for _, body := range []string{`{"score":0.4}`, `[]`, `nope`} {
		_, err := NormalizeVerdict([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestSpamClientClassify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req["text"] == "buy followers now" {
			_, _ = w.Write([]byte(`{"is_spam":true,"probability":0.99}`))
			return
		}
		_, _ = w.Write([]byte(`{"is_spam":false,"probability":0.02}`))
	}))
	defer server.Close()

	client := NewSpamClient(server.URL, time.Second)
	spam := client.Classify(context.Background(), "buy followers now")
	assert.True(t, spam.Spam)
	assert.True(t, spam.Checked)

	ham := client.Classify(context.Background(), "see you at the library")
	assert.False(t, ham.Spam)
	assert.True(t, ham.Checked)
}

func TestSpamClientDegrades(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer garbled.Close()

	for _, url := range []string{failing.URL, garbled.URL} {
		v := NewSpamClient(url, time.Second).Classify(context.Background(), "hello")
		assert.Equal(t, Verdict{}, v)
	}
	assert.Equal(t, Verdict{}, NewSpamClient("", time.Second).Classify(context.Background(), "hello"))
}
