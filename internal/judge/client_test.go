package judge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/judge"
)

func TestNewClientWithoutURLIsNil(t *testing.T) {
	assert.Nil(t, judge.NewClient(judge.Config{}))
}

func TestClientJudge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/judge", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Quake hits coast", req["seed_headline"])
		assert.Equal(t, "Magnitude 6 quake strikes coastal town", req["candidate_title"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"same_event": true, "score": 8.5, "confidence": 0.92}`))
	}))
	defer srv.Close()

	client := judge.NewClient(judge.Config{URL: srv.URL, APIKey: "test-key"})
	require.NotNil(t, client)

	seed := &domain.SeedStory{Headline: "Quake hits coast", Summary: "A strong earthquake struck the coast"}
	verdict, err := client.Judge(context.Background(), seed, "Magnitude 6 quake strikes coastal town", "body text")
	require.NoError(t, err)

	assert.True(t, verdict.SameEvent)
	assert.InDelta(t, 8.5, verdict.Score, 1e-9)
	assert.InDelta(t, 0.92, verdict.Confidence, 1e-9)
}

func TestClientJudgeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := judge.NewClient(judge.Config{URL: srv.URL})
	_, err := client.Judge(context.Background(), &domain.SeedStory{}, "t", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, judge.ErrUnavailable)
}

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := judge.NewClient(judge.Config{URL: srv.URL})
	assert.NoError(t, client.Health(context.Background()))
}
