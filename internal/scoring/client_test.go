package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/shared/config"
	"github.com/vitalwatch/platform/internal/shared/types"
	"github.com/vitalwatch/platform/internal/triage"
)

func newTestClient(url string) *Client {
	return NewClient(config.ScoringConfig{
		URL:     url,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestScoreBatch(t *testing.T) {
	patientID := types.NewID()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/scores/batch" {
			t.Errorf("Expected path /api/v1/scores/batch, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		var req scoreBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Patients) != 1 {
			t.Errorf("Expected 1 patient in request, got %d", len(req.Patients))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scoreBatchResponse{
			Scores: []VitalScore{
				{
					PatientID:      patientID,
					StabilityIndex: 65,
					News2Score:     2,
					Trend:          triage.TrendDown,
					ScoredAt:       time.Now().UTC(),
				},
			},
			Model: "vitals-v3",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	scores, err := client.ScoreBatch(context.Background(), []ScoreRequest{
		{PatientID: patientID, Sector: "cardiology"},
	})
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("Expected 1 score, got %d", len(scores))
	}
	if scores[0].PatientID != patientID {
		t.Errorf("Expected patient ID %s, got %s", patientID, scores[0].PatientID)
	}
	if scores[0].StabilityIndex != 65 {
		t.Errorf("Expected stability index 65, got %d", scores[0].StabilityIndex)
	}
	if scores[0].Trend != triage.TrendDown {
		t.Errorf("Expected trend down, got %s", scores[0].Trend)
	}
}

func TestScoreBatchEmptyInput(t *testing.T) {
	client := newTestClient("http://localhost:1")

	scores, err := client.ScoreBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected no error for empty input, got %v", err)
	}
	if scores != nil {
		t.Errorf("Expected nil scores for empty input, got %v", scores)
	}
}

func TestScoreBatchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.ScoreBatch(context.Background(), []ScoreRequest{{PatientID: types.NewID()}})
	if err == nil {
		t.Fatal("Expected error for server failure, got nil")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"healthy", http.StatusOK, `{"status":"ok","model":"vitals-v3"}`, false},
		{"degraded", http.StatusOK, `{"status":"degraded"}`, true},
		{"unavailable", http.StatusServiceUnavailable, `{"status":"down"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := newTestClient(server.URL).Health(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Health() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
