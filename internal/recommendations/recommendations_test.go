package recommendations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIDs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"bare array", `["p1","p2"]`, []string{"p1", "p2"}},
		{"objects", `[{"id":"p1"},{"_id":"p2"},{"item_id":"p3"},{"ItemId":"p4"}]`, []string{"p1", "p2", "p3", "p4"}},
		{"wrapped", `{"recommendations":["p1"]}`, []string{"p1"}},
		{"wrapped data objects", `{"data":[{"id":7},{"id":"x"}]}`, []string{"7", "x"}},
		{"dedupes and skips junk", `["p1",{"score":1},"p1","",null,"p2"]`, []string{"p1", "p2"}},
		{"empty", `[]`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeIDs([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIDsRejectsUnknownShapes(t *testing.T) {
	for _, body := range []string{`{"foo":[]}`, `"p1"`, `not json`, `42`} {
		_, err := NormalizeIDs([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestClientRanksAndDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/recommendations/posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"ItemId":"p2"},{"ItemId":"p1"}]}`))
	})
	mux.HandleFunc("/recommendations/users", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	assert.Equal(t, []string{"p2", "p1"}, client.RankPosts(context.Background(), "u1"))
	assert.Empty(t, client.RankUsers(context.Background(), "u1"))
}

func TestClientTimeoutDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`["late"]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)
	assert.Empty(t, client.RankPosts(context.Background(), "u1"))
}

func TestNewClientWithoutURLIsNop(t *testing.T) {
	client := NewClient("", time.Second)
	assert.IsType(t, NopRanker{}, client)
	assert.Nil(t, client.RankPosts(context.Background(), "u1"))
}
