package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/models"
	"github.com/yourusername/hoopcal/internal/repository"
)

type fakeGameRepo struct {
	games []models.GameRecord
}

func (f *fakeGameRepo) Create(ctx context.Context, game *models.GameRecord) error { return nil }
func (f *fakeGameRepo) CreateBatch(ctx context.Context, games []models.GameRecord) error {
	return nil
}
func (f *fakeGameRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GameRecord, error) {
	return nil, models.ErrNotFound
}
func (f *fakeGameRepo) ListChronological(ctx context.Context, from, to time.Time) ([]models.GameRecord, error) {
	var out []models.GameRecord
	for _, g := range f.games {
		if g.GameDate.After(from) && !g.GameDate.After(to) {
			out = append(out, g)
		}
	}
	return out, nil
}
func (f *fakeGameRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	return len(f.games), nil
}

type fakeModelRepo struct {
	created   []*models.CalibrationModel
	activated []uuid.UUID
	active    *models.CalibrationModel
	createErr error
}

func (f *fakeModelRepo) Create(ctx context.Context, model *models.CalibrationModel) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, model)
	return nil
}
func (f *fakeModelRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CalibrationModel, error) {
	return nil, models.ErrNotFound
}
func (f *fakeModelRepo) GetActive(ctx context.Context) (*models.CalibrationModel, error) {
	if f.active == nil {
		return nil, models.ErrNotFound
	}
	return f.active, nil
}
func (f *fakeModelRepo) Activate(ctx context.Context, id uuid.UUID) error {
	f.activated = append(f.activated, id)
	return nil
}
func (f *fakeModelRepo) List(ctx context.Context, limit int) ([]*models.CalibrationModel, error) {
	return f.created, nil
}

type fakePredictionRepo struct {
	stored    []models.CalibratedPrediction
	threshold float64
	outcomes  []models.PredictionOutcome
}

func (f *fakePredictionRepo) InsertBatch(ctx context.Context, predictions []models.CalibratedPrediction, confidenceThreshold float64) error {
	f.stored = append(f.stored, predictions...)
	f.threshold = confidenceThreshold
	return nil
}
func (f *fakePredictionRepo) GetByGameID(ctx context.Context, gameID uuid.UUID) ([]models.CalibratedPrediction, error) {
	return nil, nil
}
func (f *fakePredictionRepo) ListWithOutcomes(ctx context.Context, from, to time.Time) ([]models.PredictionOutcome, error) {
	return f.outcomes, nil
}

type fakeClassifier struct {
	probFor func(g models.GameRecord) float64
	err     error
}

func (f *fakeClassifier) Predict(ctx context.Context, games []models.GameRecord) ([]models.RawPrediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.RawPrediction, 0, len(games))
	for _, g := range games {
		out = append(out, models.RawPrediction{
			GameID:             g.ID,
			HomeWinProbability: f.probFor(g),
			ModelVersion:       "v1",
			Context:            g.Context(),
			PredictedAt:        time.Now(),
		})
	}
	return out, nil
}
func (f *fakeClassifier) HealthCheck(ctx context.Context) error { return nil }

func testCalibrationConfig() *config.CalibrationConfig {
	return &config.CalibrationConfig{
		ValidationWindowDays: 14,
		TestWindowDays:       7,
		HistoryDays:          180,
		TemperatureMin:       0.3,
		TemperatureMax:       1.5,
		TargetHomeWinRate:    0.6,
		ConfidenceCap:        0.85,
		EarlySeasonConfidenceCap:  0.75,
		EarlySeasonGamesThreshold: 3,
		EarlySeasonFactors: []models.EarlySeasonFactor{
			{GamesPlayed: 0, Factor: 0.5},
			{GamesPlayed: 3, Factor: 0.9},
			{GamesPlayed: 5, Factor: 1.0},
		},
		ConfidenceThreshold: 0.65,
		ECEBins:             10,
	}
}

// settledHistory builds one settled game per day ending at end, with a 60%
// home win rate.
func settledHistory(days int, end time.Time) []models.GameRecord {
	games := make([]models.GameRecord, 0, days)
	for i := 0; i < days; i++ {
		homeScore, awayScore := 70, 60
		if i%5 >= 3 {
			homeScore, awayScore = 60, 70
		}
		games = append(games, models.GameRecord{
			ID:              uuid.New(),
			Season:          "2025-26",
			GameDate:        end.AddDate(0, 0, -(days - 1 - i)),
			HomeTeam:        "Home",
			AwayTeam:        "Away",
			HomeScore:       homeScore,
			AwayScore:       awayScore,
			HomeGamesPlayed: 10,
			AwayGamesPlayed: 10,
		})
	}
	return games
}

func newTestCalibrator(gameRepo *fakeGameRepo, modelRepo *fakeModelRepo, predRepo *fakePredictionRepo, classifier ClassifierClient, now time.Time) *Calibrator {
	log := logrus.New()
	log.SetOutput(io.Discard)

	c := NewCalibrator(&repository.Repositories{
		Game:             gameRepo,
		CalibrationModel: modelRepo,
		Prediction:       predRepo,
	}, classifier, testCalibrationConfig(), log)
	c.now = func() time.Time { return now }
	return c
}

func TestRefitActivatesNewModel(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	gameRepo := &fakeGameRepo{games: settledHistory(120, now)}
	modelRepo := &fakeModelRepo{}
	classifier := &fakeClassifier{probFor: func(g models.GameRecord) float64 {
		if g.HomeWon() {
			return 0.8
		}
		return 0.7
	}}

	c := newTestCalibrator(gameRepo, modelRepo, &fakePredictionRepo{}, classifier, now)

	model, err := c.Refit(context.Background())
	if err != nil {
		t.Fatalf("Refit failed: %v", err)
	}
	if !c.HasActiveModel() {
		t.Fatal("expected active model after refit")
	}
	if c.ActiveModel().ID != model.ID {
		t.Error("active model does not match refit result")
	}
	if len(modelRepo.created) != 1 {
		t.Fatalf("expected 1 persisted model, got %d", len(modelRepo.created))
	}
	if len(modelRepo.activated) != 1 || modelRepo.activated[0] != model.ID {
		t.Error("expected new model to be activated")
	}
	if model.ValidationGames == 0 {
		t.Error("expected validation games to be recorded")
	}
}

func TestRefitKeepsPreviousModelOnInsufficientData(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	gameRepo := &fakeGameRepo{games: settledHistory(10, now)}
	modelRepo := &fakeModelRepo{}
	classifier := &fakeClassifier{probFor: func(models.GameRecord) float64 { return 0.6 }}

	c := newTestCalibrator(gameRepo, modelRepo, &fakePredictionRepo{}, classifier, now)

	previous := &models.CalibrationModel{ID: uuid.New(), Temperature: 1.0}
	c.active.Store(previous)

	_, err := c.Refit(context.Background())
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if c.ActiveModel() != previous {
		t.Error("previous model should keep serving after a failed refit")
	}
	if len(modelRepo.created) != 0 {
		t.Error("no model should be persisted on a failed refit")
	}
}

func TestRefitClassifierDown(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	gameRepo := &fakeGameRepo{games: settledHistory(120, now)}
	classifier := &fakeClassifier{err: errors.New("classifier unreachable")}

	c := newTestCalibrator(gameRepo, &fakeModelRepo{}, &fakePredictionRepo{}, classifier, now)

	if _, err := c.Refit(context.Background()); err == nil {
		t.Fatal("expected error when classifier is down")
	}
	if c.HasActiveModel() {
		t.Error("no model should be active after a failed first refit")
	}
}

func TestPredictBatchStoresAdjustedPredictions(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	predRepo := &fakePredictionRepo{}
	classifier := &fakeClassifier{probFor: func(models.GameRecord) float64 { return 0.8 }}

	c := newTestCalibrator(&fakeGameRepo{}, &fakeModelRepo{}, predRepo, classifier, now)
	c.active.Store(&models.CalibrationModel{
		ID:                   uuid.New(),
		Temperature:          1.0,
		ConfidenceCap:        0.85,
		EarlySeasonCap:       0.75,
		EarlySeasonThreshold: 3,
	})

	games := settledHistory(3, now)
	preds, err := c.PredictBatch(context.Background(), games)
	if err != nil {
		t.Fatalf("PredictBatch failed: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(preds))
	}
	if len(predRepo.stored) != 3 {
		t.Fatalf("expected 3 stored predictions, got %d", len(predRepo.stored))
	}
	if predRepo.threshold != 0.65 {
		t.Errorf("expected confidence threshold 0.65, got %v", predRepo.threshold)
	}
	for _, p := range preds {
		if p.Confidence > 0.85 {
			t.Errorf("confidence %v exceeds cap", p.Confidence)
		}
		if p.CalibrationVersion != c.ActiveModel().ID {
			t.Error("prediction not tagged with active model version")
		}
	}
}

func TestPredictBatchIsolatesFailures(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	predRepo := &fakePredictionRepo{}

	// The fake bypasses client-side validation, so one game carries an
	// impossible probability that only the pipeline can reject.
	games := settledHistory(3, now)
	bad := games[1].ID
	classifier := &fakeClassifier{probFor: func(g models.GameRecord) float64 {
		if g.ID == bad {
			return 1.5
		}
		return 0.7
	}}

	c := newTestCalibrator(&fakeGameRepo{}, &fakeModelRepo{}, predRepo, classifier, now)
	c.active.Store(&models.CalibrationModel{
		ID:            uuid.New(),
		Temperature:   1.0,
		ConfidenceCap: 0.85,
	})

	preds, err := c.PredictBatch(context.Background(), games)
	if err != nil {
		t.Fatalf("PredictBatch failed: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions after skipping the bad one, got %d", len(preds))
	}
	for _, p := range preds {
		if p.GameID == bad {
			t.Error("rejected game should not appear in results")
		}
	}
}

func TestPredictBatchWithoutActiveModel(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	classifier := &fakeClassifier{probFor: func(models.GameRecord) float64 { return 0.7 }}
	c := newTestCalibrator(&fakeGameRepo{}, &fakeModelRepo{}, &fakePredictionRepo{}, classifier, now)

	_, err := c.PredictBatch(context.Background(), settledHistory(1, now))
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadActiveModel(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	stored := &models.CalibrationModel{
		ID:          uuid.New(),
		FittedAt:    now.Add(-24 * time.Hour),
		Temperature: 0.9,
		Active:      true,
	}
	modelRepo := &fakeModelRepo{active: stored}
	classifier := &fakeClassifier{probFor: func(models.GameRecord) float64 { return 0.7 }}

	c := newTestCalibrator(&fakeGameRepo{}, modelRepo, &fakePredictionRepo{}, classifier, now)

	if err := c.LoadActiveModel(context.Background()); err != nil {
		t.Fatalf("LoadActiveModel failed: %v", err)
	}
	if c.ActiveModel() != stored {
		t.Error("loaded model does not match stored active model")
	}
}

func TestLoadActiveModelNotFit(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	classifier := &fakeClassifier{probFor: func(models.GameRecord) float64 { return 0.7 }}
	c := newTestCalibrator(&fakeGameRepo{}, &fakeModelRepo{}, &fakePredictionRepo{}, classifier, now)

	err := c.LoadActiveModel(context.Background())
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if c.HasActiveModel() {
		t.Error("no model should be active")
	}
}

func TestEvaluateActive(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	modelID := uuid.New()

	outcomes := make([]models.PredictionOutcome, 0, 10)
	for i := 0; i < 10; i++ {
		outcomes = append(outcomes, models.PredictionOutcome{
			Prediction: models.CalibratedPrediction{
				ID:                    uuid.New(),
				GameID:                uuid.New(),
				CalibratedProbability: 0.7,
				PredictedWinner:       models.WinnerHome,
				Confidence:            0.7,
				CalibrationVersion:    modelID,
			},
			HomeWon: i < 7,
		})
	}
	predRepo := &fakePredictionRepo{outcomes: outcomes}
	classifier := &fakeClassifier{probFor: func(models.GameRecord) float64 { return 0.7 }}

	c := newTestCalibrator(&fakeGameRepo{}, &fakeModelRepo{}, predRepo, classifier, now)
	c.active.Store(&models.CalibrationModel{ID: modelID, FittedAt: now.Add(-time.Hour), TestWindowDays: 7})

	report, err := c.EvaluateActive(context.Background())
	if err != nil {
		t.Fatalf("EvaluateActive failed: %v", err)
	}
	if report.CalibrationVersion != modelID {
		t.Error("report not tagged with active model version")
	}
	if report.Games != 10 {
		t.Errorf("expected 10 games in report, got %d", report.Games)
	}
	if report.Accuracy != 0.7 {
		t.Errorf("expected accuracy 0.7, got %v", report.Accuracy)
	}
}

func TestEvaluateActiveWithoutModel(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	classifier := &fakeClassifier{probFor: func(models.GameRecord) float64 { return 0.7 }}
	c := newTestCalibrator(&fakeGameRepo{}, &fakeModelRepo{}, &fakePredictionRepo{}, classifier, now)

	_, err := c.EvaluateActive(context.Background())
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
