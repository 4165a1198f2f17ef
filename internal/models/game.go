package models

import (
	"time"

	"github.com/google/uuid"
)

// GameRecord represents one completed NCAA basketball game. Records are
// immutable once created and are used only for fitting and backtesting.
type GameRecord struct {
	ID              uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	Season          string    `db:"season" json:"season" validate:"required"`
	GameDate        time.Time `db:"game_date" json:"game_date" validate:"required"`
	HomeTeam        string    `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam        string    `db:"away_team" json:"away_team" validate:"required"`
	HomeScore       int       `db:"home_score" json:"home_score" validate:"gte=0"`
	AwayScore       int       `db:"away_score" json:"away_score" validate:"gte=0"`
	NeutralSite     bool      `db:"neutral_site" json:"neutral_site"`
	Tournament      bool      `db:"tournament" json:"tournament"`
	Rivalry         bool      `db:"rivalry" json:"rivalry"`
	HomeGamesPlayed int       `db:"home_games_played" json:"home_games_played" validate:"gte=0"`
	AwayGamesPlayed int       `db:"away_games_played" json:"away_games_played" validate:"gte=0"`
}

// HomeWon reports whether the home team won the game.
func (g *GameRecord) HomeWon() bool {
	return g.HomeScore > g.AwayScore
}

// Outcome returns the binary home-win outcome as a float (1 for a home win,
// 0 otherwise), the encoding every calibration metric consumes.
func (g *GameRecord) Outcome() float64 {
	if g.HomeWon() {
		return 1.0
	}
	return 0.0
}

// Context extracts the per-game features the adjustment pipeline needs.
func (g *GameRecord) Context() GameContext {
	return GameContext{
		GameID:          g.ID,
		GameDate:        g.GameDate,
		NeutralSite:     g.NeutralSite,
		Tournament:      g.Tournament,
		Rivalry:         g.Rivalry,
		HomeGamesPlayed: g.HomeGamesPlayed,
		AwayGamesPlayed: g.AwayGamesPlayed,
	}
}

// GameContext carries the feature context needed to adjust a raw probability
// for a single game.
type GameContext struct {
	GameID          uuid.UUID `json:"game_id"`
	GameDate        time.Time `json:"game_date"`
	NeutralSite     bool      `json:"neutral_site"`
	Tournament      bool      `json:"tournament"`
	Rivalry         bool      `json:"rivalry"`
	HomeGamesPlayed int       `json:"home_games_played"`
	AwayGamesPlayed int       `json:"away_games_played"`
}

// MinGamesPlayed returns the smaller of the two teams' games-played counts,
// the key into the early-season dampening table.
func (c GameContext) MinGamesPlayed() int {
	if c.HomeGamesPlayed < c.AwayGamesPlayed {
		return c.HomeGamesPlayed
	}
	return c.AwayGamesPlayed
}
