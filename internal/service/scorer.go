package service

import (
	"bytes"
	"contest_leaderboard/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Scorer 外部评分方：对比答案并持久化提交与分数，返回本次得分
type Scorer interface {
	SubmitSolution(ctx context.Context, userID, taskID string, rows [][]string) (float64, error)
}

type ScoreRequest struct {
	UserID string     `json:"userId"`
	TaskID string     `json:"taskId"`
	Rows   [][]string `json:"rows"`
}

type ScoreResponse struct {
	Score *float64 `json:"score"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPScorer 通过 HTTP 调用评分服务
type HTTPScorer struct {
	config config.ScorerConfig
	client *http.Client
}

func NewHTTPScorer(cfg config.ScorerConfig) *HTTPScorer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPScorer{config: cfg, client: &http.Client{Timeout: timeout}}
}

func (s *HTTPScorer) SubmitSolution(ctx context.Context, userID, taskID string, rows [][]string) (float64, error) {
	jsonData, err := json.Marshal(ScoreRequest{UserID: userID, TaskID: taskID, Rows: rows})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var result ScoreResponse
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
			return 0, fmt.Errorf("scorer error (status %d): %s", resp.StatusCode, result.Error.Message)
		}
		return 0, fmt.Errorf("scorer error (status %d): %s", resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return 0, decodeErr
	}
	if result.Error != nil {
		return 0, fmt.Errorf("scorer error: %s", result.Error.Message)
	}
	if result.Score == nil {
		return 0, fmt.Errorf("scorer returned no score")
	}

	return *result.Score, nil
}
