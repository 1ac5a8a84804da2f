package service

import (
	"contest_leaderboard/internal/config"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPScorerReturnsScore(t *testing.T) {
	var got ScoreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"score": 87.5}`))
	}))
	defer srv.Close()

	scorer := NewHTTPScorer(config.ScorerConfig{URL: srv.URL, APIKey: "secret"})
	score, err := scorer.SubmitSolution(context.Background(), "u1", "T1", [][]string{{"1", "x", "6"}})

	require.NoError(t, err)
	assert.Equal(t, 87.5, score)
	assert.Equal(t, ScoreRequest{UserID: "u1", TaskID: "T1", Rows: [][]string{{"1", "x", "6"}}}, got)
}

func TestHTTPScorerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"error status with message", http.StatusBadRequest, `{"error":{"message":"task key missing"}}`, "task key missing"},
		{"error status with raw body", http.StatusInternalServerError, `boom`, "boom"},
		{"missing score", http.StatusOK, `{}`, "no score"},
		{"error in ok response", http.StatusOK, `{"error":{"message":"late"}}`, "late"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPScorer(config.ScorerConfig{URL: srv.URL}).
				SubmitSolution(context.Background(), "u1", "T1", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
