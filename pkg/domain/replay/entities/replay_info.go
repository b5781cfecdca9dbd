package entities

import (
	"time"

	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// ReplayInfo is everything the api tells us about a score short of the
// replay data itself. Immutable; produced by the loader from score rows.
type ReplayInfo struct {
	Timestamp       time.Time
	BeatmapID       int
	UserID          int
	Username        string
	ReplayID        int64
	Mods            vo.Mod
	ReplayAvailable bool
	Count300        int
	Count100        int
	Count50         int
	CountGeki       int
	CountKatu       int
	CountMiss       int
	Score           int64
	MaxCombo        int
	Perfect         bool
	PP              float64
}
