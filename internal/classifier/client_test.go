package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testClientConfig(baseURL string) *config.ClassifierConfig {
	return &config.ClassifierConfig{
		BaseURL:               baseURL,
		APIKey:                "test-key",
		ModelVersion:          "v2.3.0",
		RequestTimeoutSeconds: 5,
		MaxRetries:            0,
		RateLimitPerSecond:    1000,
		CacheTTLSeconds:       60,
		CacheMaxSize:          100,
	}
}

func testGames(n int) []models.GameRecord {
	games := make([]models.GameRecord, 0, n)
	for i := 0; i < n; i++ {
		games = append(games, models.GameRecord{
			ID:              uuid.New(),
			Season:          "2025-26",
			GameDate:        time.Date(2026, 1, 10+i, 0, 0, 0, 0, time.UTC),
			HomeTeam:        "Duke",
			AwayTeam:        "UNC",
			NeutralSite:     i%2 == 1,
			HomeGamesPlayed: 10 + i,
			AwayGamesPlayed: 12 + i,
		})
	}
	return games
}

func predictionServer(t *testing.T, prob float64, requestCount *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/predictions" {
			http.NotFound(w, r)
			return
		}
		if requestCount != nil {
			*requestCount++
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing or wrong Authorization header: %q", got)
		}

		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := predictResponse{ModelVersion: req.ModelVersion}
		for _, g := range req.Games {
			resp.Predictions = append(resp.Predictions, gamePrediction{
				GameID:             g.GameID,
				HomeWinProbability: prob,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestPredictBatch(t *testing.T) {
	server := predictionServer(t, 0.72, nil)
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	games := testGames(3)
	preds, err := client.Predict(context.Background(), games)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(preds))
	}

	for i, p := range preds {
		if p.GameID != games[i].ID {
			t.Errorf("prediction %d: expected game %s, got %s", i, games[i].ID, p.GameID)
		}
		if p.HomeWinProbability != 0.72 {
			t.Errorf("prediction %d: expected probability 0.72, got %f", i, p.HomeWinProbability)
		}
		if p.ModelVersion != "v2.3.0" {
			t.Errorf("prediction %d: expected model version v2.3.0, got %s", i, p.ModelVersion)
		}
		if p.Context.NeutralSite != games[i].NeutralSite {
			t.Errorf("prediction %d: context neutral site mismatch", i)
		}
		if p.Context.MinGamesPlayed() != games[i].HomeGamesPlayed {
			t.Errorf("prediction %d: expected min games %d, got %d",
				i, games[i].HomeGamesPlayed, p.Context.MinGamesPlayed())
		}
	}
}

func TestPredictEmptyInput(t *testing.T) {
	client := NewClient(testClientConfig("http://unused"), testLogger())
	defer client.Close()

	preds, err := client.Predict(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error for empty input, got %v", err)
	}
	if len(preds) != 0 {
		t.Errorf("expected no predictions, got %d", len(preds))
	}
}

func TestPredictServesFromCache(t *testing.T) {
	requestCount := 0
	server := predictionServer(t, 0.6, &requestCount)
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	games := testGames(2)
	if _, err := client.Predict(context.Background(), games); err != nil {
		t.Fatalf("first Predict failed: %v", err)
	}
	if _, err := client.Predict(context.Background(), games); err != nil {
		t.Fatalf("second Predict failed: %v", err)
	}

	if requestCount != 1 {
		t.Errorf("expected 1 upstream request, got %d", requestCount)
	}
	hits, misses := client.CacheStats()
	if hits != 2 {
		t.Errorf("expected 2 cache hits, got %d", hits)
	}
	if misses != 2 {
		t.Errorf("expected 2 cache misses, got %d", misses)
	}
}

func TestPredictRejectsOutOfRangeProbability(t *testing.T) {
	server := predictionServer(t, 1.2, nil)
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	_, err := client.Predict(context.Background(), testGames(1))
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestPredictRejectsUnknownGame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := predictResponse{
			ModelVersion: "v2.3.0",
			Predictions: []gamePrediction{
				{GameID: uuid.NewString(), HomeWinProbability: 0.5},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	_, err := client.Predict(context.Background(), testGames(1))
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestPredictRejectsIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{ModelVersion: "v2.3.0"})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	_, err := client.Predict(context.Background(), testGames(2))
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestPredictServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	_, err := client.Predict(context.Background(), testGames(1))
	if !errors.Is(err, ErrClassifierUnavailable) {
		t.Errorf("expected ErrClassifierUnavailable, got %v", err)
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	for i := 0; i < 5; i++ {
		// Distinct games so the cache never short-circuits the request
		if _, err := client.Predict(context.Background(), testGames(1)); err == nil {
			t.Fatalf("request %d: expected error", i)
		}
	}

	_, err := client.Predict(context.Background(), testGames(1))
	if err == nil || !strings.Contains(err.Error(), "circuit breaker") {
		t.Errorf("expected circuit breaker error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
}

func TestHealthCheckUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), testLogger())
	defer client.Close()

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrClassifierUnavailable) {
		t.Errorf("expected ErrClassifierUnavailable, got %v", err)
	}
}
