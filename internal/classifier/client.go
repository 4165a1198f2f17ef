package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/models"
)

// Client fetches raw win probabilities from the classifier service with
// rate limiting, retries, and a circuit breaker.
type Client struct {
	client       *retryablehttp.Client
	limiter      *rate.Limiter
	cache        *PredictionCache
	baseURL      string
	apiKey       string
	modelVersion string
	logger       *logrus.Logger

	mu                sync.Mutex
	breakerMax        int
	consecutiveErrors int
	isOpen            bool
	lastError         error
}

// NewClient creates a classifier client from configuration
func NewClient(cfg *config.ClassifierConfig, logger *logrus.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.CheckRetry = customRetryPolicy()
	retryClient.Logger = nil

	return &Client{
		client:       retryClient,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1),
		cache:        NewPredictionCache(cfg.CacheTTL(), cfg.CacheMaxSize),
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		modelVersion: cfg.ModelVersion,
		breakerMax:   5,
		logger:       logger,
	}
}

// gameRequest is the wire representation of a game sent for inference
type gameRequest struct {
	GameID          string `json:"game_id"`
	Season          string `json:"season"`
	GameDate        string `json:"game_date"`
	HomeTeam        string `json:"home_team"`
	AwayTeam        string `json:"away_team"`
	NeutralSite     bool   `json:"neutral_site"`
	Tournament      bool   `json:"tournament"`
	Rivalry         bool   `json:"rivalry"`
	HomeGamesPlayed int    `json:"home_games_played"`
	AwayGamesPlayed int    `json:"away_games_played"`
}

type predictRequest struct {
	ModelVersion string        `json:"model_version"`
	Games        []gameRequest `json:"games"`
}

type gamePrediction struct {
	GameID             string  `json:"game_id"`
	HomeWinProbability float64 `json:"home_win_probability"`
}

type predictResponse struct {
	ModelVersion string           `json:"model_version"`
	Predictions  []gamePrediction `json:"predictions"`
}

// Predict returns raw home-win probabilities for a batch of games. Cached
// predictions are served without a network call; misses are fetched in a
// single batch request.
func (c *Client) Predict(ctx context.Context, games []models.GameRecord) ([]models.RawPrediction, error) {
	if len(games) == 0 {
		return nil, nil
	}

	results := make([]models.RawPrediction, 0, len(games))
	var misses []models.GameRecord
	for _, g := range games {
		key := CacheKey{GameID: g.ID, ModelVersion: c.modelVersion}
		if cached := c.cache.Get(key); cached != nil {
			results = append(results, *cached)
			continue
		}
		misses = append(misses, g)
	}

	if len(misses) == 0 {
		return results, nil
	}

	fetched, err := c.fetchBatch(ctx, misses)
	if err != nil {
		return nil, err
	}

	for i := range fetched {
		key := CacheKey{GameID: fetched[i].GameID, ModelVersion: c.modelVersion}
		c.cache.Set(key, &fetched[i])
	}

	c.logger.WithFields(logrus.Fields{
		"requested": len(games),
		"cached":    len(games) - len(misses),
		"fetched":   len(fetched),
	}).Debug("Classifier batch complete")

	return append(results, fetched...), nil
}

func (c *Client) fetchBatch(ctx context.Context, games []models.GameRecord) ([]models.RawPrediction, error) {
	reqBody := predictRequest{
		ModelVersion: c.modelVersion,
		Games:        make([]gameRequest, 0, len(games)),
	}
	for _, g := range games {
		reqBody.Games = append(reqBody.Games, gameRequest{
			GameID:          g.ID.String(),
			Season:          g.Season,
			GameDate:        g.GameDate.Format("2006-01-02"),
			HomeTeam:        g.HomeTeam,
			AwayTeam:        g.AwayTeam,
			NeutralSite:     g.NeutralSite,
			Tournament:      g.Tournament,
			Rivalry:         g.Rivalry,
			HomeGamesPlayed: g.HomeGamesPlayed,
			AwayGamesPlayed: g.AwayGamesPlayed,
		})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/predictions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrClassifierUnavailable, resp.StatusCode, string(body))
	}

	var predResp predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&predResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return c.toRawPredictions(games, predResp)
}

func (c *Client) toRawPredictions(games []models.GameRecord, resp predictResponse) ([]models.RawPrediction, error) {
	byID := make(map[string]models.GameRecord, len(games))
	for _, g := range games {
		byID[g.ID.String()] = g
	}

	now := time.Now().UTC()
	out := make([]models.RawPrediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		game, ok := byID[p.GameID]
		if !ok {
			return nil, fmt.Errorf("%w: prediction for unknown game %s", ErrInvalidResponse, p.GameID)
		}
		if p.HomeWinProbability < 0 || p.HomeWinProbability > 1 {
			return nil, fmt.Errorf("%w: probability %f out of range for game %s", ErrInvalidResponse, p.HomeWinProbability, p.GameID)
		}
		out = append(out, models.RawPrediction{
			GameID:             game.ID,
			HomeWinProbability: p.HomeWinProbability,
			ModelVersion:       resp.ModelVersion,
			Context:            game.Context(),
			PredictedAt:        now,
		})
	}

	if len(out) != len(games) {
		return nil, fmt.Errorf("%w: got %d predictions for %d games", ErrInvalidResponse, len(out), len(games))
	}
	return out, nil
}

// HealthCheck verifies the classifier service is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrClassifierUnavailable, resp.StatusCode)
	}
	return nil
}

// CacheStats returns cache hit and miss counts
func (c *Client) CacheStats() (hits, misses uint64) {
	return c.cache.Stats()
}

// do executes a request through the rate limiter and circuit breaker
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	if c.isOpen {
		lastErr := c.lastError
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, lastErr)
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(retryReq)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.consecutiveErrors++
		c.lastError = err
		if c.consecutiveErrors >= c.breakerMax {
			c.isOpen = true
			c.logger.WithField("consecutive_errors", c.consecutiveErrors).
				Warn("Classifier circuit breaker opened")
		}
		return nil, err
	}

	if resp.StatusCode < 500 {
		c.consecutiveErrors = 0
		c.isOpen = false
	}
	return resp, nil
}

// Close releases idle connections held by the client
func (c *Client) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// customRetryPolicy retries on network errors, rate limiting, and server errors
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, err
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}
