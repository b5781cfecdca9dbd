package entities

import (
	"context"
	"fmt"
	"log/slog"

	common "github.com/osuguard/osuguard/pkg/domain"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// ReplayMap is a replay that was submitted to the online servers, identified
// by the map it was played on and the user who played it. Without mods, the
// user's highest scoring replay on the map is represented.
type ReplayMap struct {
	ReplayCore
	Cache *bool
	// Info short-circuits the info fetch when a container already has the
	// score row.
	Info *ReplayInfo
}

func NewReplayMap(beatmapID, userID int, mods *vo.Mod, cache *bool, info *ReplayInfo) *ReplayMap {
	r := &ReplayMap{Cache: cache, Info: info}
	r.BeatmapID = beatmapID
	r.UserID = userID
	r.Mods = mods
	r.Weight = vo.RatelimitHeavy
	if info != nil {
		r.applyInfo(*info)
	}
	return r
}

func (r *ReplayMap) applyInfo(info ReplayInfo) {
	r.Timestamp = info.Timestamp
	r.BeatmapID = info.BeatmapID
	r.UserID = info.UserID
	r.Username = info.Username
	r.ReplayID = info.ReplayID
	r.SetMods(info.Mods)
	r.Count300 = info.Count300
	r.Count100 = info.Count100
	r.Count50 = info.Count50
	r.CountGeki = info.CountGeki
	r.CountKatu = info.CountKatu
	r.CountMiss = info.CountMiss
	r.Score = info.Score
	r.MaxCombo = info.MaxCombo
	r.Perfect = info.Perfect
	r.PP = info.PP
}

func (r *ReplayMap) Load(ctx context.Context, loader Loader, cache bool) error {
	if r.Loaded() {
		return nil
	}
	if loader == nil {
		return common.NewErrNoLoader("loading a ReplayMap")
	}
	slog.DebugContext(ctx, "loading replay map", "beatmap_id", r.BeatmapID, "user_id", r.UserID)

	info := r.Info
	if info == nil {
		fetched, err := loader.ReplayInfo(ctx, r.BeatmapID, r.UserID, r.Mods)
		if err != nil {
			return err
		}
		info = &fetched
	}
	r.applyInfo(*info)
	// estimate the version from the score date; only accurate when the
	// player keeps their client up to date
	r.GameVersion = vo.GameVersionFromTime(r.Timestamp, false)

	frames, err := loader.ReplayData(ctx, *info, resolveCache(r.Cache, cache))
	if err != nil {
		return err
	}
	if err := r.SetFrames(frames); err != nil {
		return err
	}
	r.MarkLoaded()
	return nil
}

// Equal compares by replay data when both sides are loaded with data, and by
// (beatmap, user, mods) identity otherwise.
func (r *ReplayMap) Equal(other Loadable) bool {
	o, ok := other.(*ReplayMap)
	if !ok {
		return false
	}
	if r.HasData() && o.HasData() {
		return sameReplayData(&r.ReplayCore, &o.ReplayCore)
	}
	return r.BeatmapID == o.BeatmapID && r.UserID == o.UserID && sameMods(r.Mods, o.Mods)
}

func (r *ReplayMap) Core() *ReplayCore {
	return &r.ReplayCore
}

func (r *ReplayMap) String() string {
	state := "unloaded"
	if r.Loaded() {
		state = "loaded"
	}
	return fmt.Sprintf("%s ReplayMap by %d on %d", state, r.UserID, r.BeatmapID)
}

// ReplayID is a replay represented by its online replay id alone. The api
// cannot resolve any score metadata from an id, so only the replay data is
// available after loading.
type ReplayID struct {
	ReplayCore
	Cache *bool
}

func NewReplayID(replayID int64, cache *bool) *ReplayID {
	r := &ReplayID{Cache: cache}
	r.ReplayID = replayID
	r.Weight = vo.RatelimitHeavy
	return r
}

func (r *ReplayID) Load(ctx context.Context, loader Loader, cache bool) error {
	if r.Loaded() {
		return nil
	}
	if loader == nil {
		return common.NewErrNoLoader("loading a ReplayID")
	}
	frames, err := loader.ReplayDataByID(ctx, r.ReplayID, resolveCache(r.Cache, cache))
	if err != nil {
		return err
	}
	if err := r.SetFrames(frames); err != nil {
		return err
	}
	r.MarkLoaded()
	return nil
}

func (r *ReplayID) Equal(other Loadable) bool {
	o, ok := other.(*ReplayID)
	if !ok {
		return false
	}
	return r.ReplayID == o.ReplayID
}

func (r *ReplayID) Core() *ReplayCore {
	return &r.ReplayCore
}

// CachedReplay is a replay backed by a row of the replay cache. Instantiated
// by ReplayCache during info load, not directly.
type CachedReplay struct {
	ReplayCore
	blob []byte
}

func NewCachedReplay(userID, beatmapID int, mods vo.Mod, blob []byte, replayID int64) *CachedReplay {
	r := &CachedReplay{blob: blob}
	r.UserID = userID
	r.BeatmapID = beatmapID
	r.SetMods(mods)
	r.ReplayID = replayID
	r.Weight = vo.RatelimitNone
	return r
}

func (r *CachedReplay) Load(ctx context.Context, loader Loader, cache bool) error {
	if r.Loaded() {
		return nil
	}
	if loader == nil {
		return common.NewErrNoLoader("loading a CachedReplay")
	}
	frames, err := loader.DecodeCachedFrames(r.blob)
	if err != nil {
		return err
	}
	if err := r.SetFrames(frames); err != nil {
		return err
	}
	r.MarkLoaded()
	return nil
}

func (r *CachedReplay) Equal(other Loadable) bool {
	o, ok := other.(*CachedReplay)
	if !ok {
		return false
	}
	return r.ReplayID == o.ReplayID
}

func (r *CachedReplay) Core() *ReplayCore {
	return &r.ReplayCore
}

func sameMods(a, b *vo.Mod) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameReplayData(a, b *ReplayCore) bool {
	if len(a.T) != len(b.T) {
		return false
	}
	for i := range a.T {
		if a.T[i] != b.T[i] || a.XY[i] != b.XY[i] || a.K[i] != b.K[i] {
			return false
		}
	}
	return true
}
