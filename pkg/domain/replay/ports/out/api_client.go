package replay_out

import (
	"context"
)

// ScoreRow is one row of a score listing as the api v1 returns it. The api
// encodes every field as a JSON string; the loader converts rows into typed
// ReplayInfo values.
type ScoreRow struct {
	BeatmapID       string `json:"beatmap_id"`
	ScoreID         string `json:"score_id"`
	Score           string `json:"score"`
	Username        string `json:"username"`
	UserID          string `json:"user_id"`
	Count300        string `json:"count300"`
	Count100        string `json:"count100"`
	Count50         string `json:"count50"`
	CountGeki       string `json:"countgeki"`
	CountKatu       string `json:"countkatu"`
	CountMiss       string `json:"countmiss"`
	MaxCombo        string `json:"maxcombo"`
	Perfect         string `json:"perfect"`
	EnabledMods     string `json:"enabled_mods"`
	Date            string `json:"date"`
	PP              string `json:"pp"`
	ReplayAvailable string `json:"replay_available"`
}

// ApiClient is the narrow capability the loader needs from the osu! api v1.
// Implementations map api error bodies onto the common.ApiError taxonomy and
// recover transient failures internally; only fatal or semantic errors reach
// the caller. GetReplay and GetReplayByID are heavy calls, gated by the
// ratelimit window.
type ApiClient interface {
	// GetScoresAll lists the top limit scores of a map. limit must lie in
	// [2, 100].
	GetScoresAll(ctx context.Context, beatmapID, limit int) ([]ScoreRow, error)
	// GetScoresUser lists a user's scores on a map, optionally pinned to an
	// exact mod combination (pass a negative mods value for "any").
	GetScoresUser(ctx context.Context, beatmapID, userID int, mods int) ([]ScoreRow, error)
	// GetUserBest lists a user's top scores by pp.
	GetUserBest(ctx context.Context, userID, limit int) ([]ScoreRow, error)
	// GetReplay fetches the replay data of a score as a raw lzma stream.
	GetReplay(ctx context.Context, beatmapID, userID int, mods int) ([]byte, error)
	// GetReplayByID fetches the replay data of a score by replay id.
	GetReplayByID(ctx context.Context, replayID int64) ([]byte, error)

	// GetUsername resolves a user id to the current username.
	GetUsername(ctx context.Context, userID int) (string, error)
	// GetUserID resolves a username to the user id.
	GetUserID(ctx context.Context, username string) (int, error)
	// GetBeatmapID resolves a beatmap hash to the beatmap id.
	GetBeatmapID(ctx context.Context, beatmapHash string) (int, error)
}
