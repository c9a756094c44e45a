package scoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/shared/config"
)

// Client talks to the external ML scoring service that derives stability
// index, NEWS2 score, and trend from raw vitals.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient builds a scoring client from config. The retry policy covers
// transient failures only; a non-2xx response is returned to the caller.
func NewClient(cfg config.ScoringConfig, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// ScoreBatch requests scores for a set of patients in a single call.
// Patients the service has no vitals for are simply absent from the result.
func (c *Client) ScoreBatch(ctx context.Context, patients []ScoreRequest) ([]VitalScore, error) {
	if len(patients) == 0 {
		return nil, nil
	}

	var result scoreBatchResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(scoreBatchRequest{Patients: patients}).
		SetResult(&result).
		Post("/api/v1/scores/batch")
	if err != nil {
		return nil, fmt.Errorf("scoring service call failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Error("scoring service returned non-OK status",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("requested", len(patients)),
		)
		return nil, fmt.Errorf("scoring service returned status %d", resp.StatusCode())
	}

	c.logger.Debug("scored patient batch",
		zap.Int("requested", len(patients)),
		zap.Int("scored", len(result.Scores)),
		zap.String("model", result.Model),
	)
	return result.Scores, nil
}

// Health checks whether the scoring service is reachable and ready.
func (c *Client) Health(ctx context.Context) error {
	var result healthResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/health")
	if err != nil {
		return fmt.Errorf("scoring service unreachable: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || result.Status != "ok" {
		return fmt.Errorf("scoring service unhealthy: status %d", resp.StatusCode())
	}
	return nil
}
