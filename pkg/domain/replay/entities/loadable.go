package entities

import (
	"context"

	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// Loader is the capability loadables use to fetch score info, replay data and
// id lookups. The concrete implementation composes the api client, the replay
// cache and the osr parser; a nil Loader means whoever is driving the load
// has no api access.
type Loader interface {
	// ReplayInfo fetches the info of user_id's score on beatmap_id, the top
	// score unless mods pins a combination.
	ReplayInfo(ctx context.Context, beatmapID, userID int, mods *vo.Mod) (ReplayInfo, error)
	// ReplayInfos fetches leaderboard rows of a map, keeping those selected
	// by span. mods restricts rows to an exact combination.
	ReplayInfos(ctx context.Context, beatmapID int, span vo.Span, mods *vo.Mod) ([]ReplayInfo, error)
	// ReplayInfosUser fetches all of a user's scores on a map, not just the
	// top one.
	ReplayInfosUser(ctx context.Context, beatmapID, userID int, span vo.Span) ([]ReplayInfo, error)
	// UserBest fetches a user's top scores, keeping those selected by span.
	UserBest(ctx context.Context, userID int, span vo.Span, mods *vo.Mod) ([]ReplayInfo, error)
	// ReplayData fetches the raw frames for a score, consulting the replay
	// cache first. With cache set, api-fetched data is persisted.
	ReplayData(ctx context.Context, info ReplayInfo, cache bool) ([]Frame, error)
	// ReplayDataByID fetches raw frames by replay id alone.
	ReplayDataByID(ctx context.Context, replayID int64, cache bool) ([]Frame, error)

	Username(ctx context.Context, userID int) (string, error)
	UserID(ctx context.Context, username string) (int, error)
	BeatmapID(ctx context.Context, beatmapHash string) (int, error)

	// ParseOSR decodes a complete osr file.
	ParseOSR(raw []byte) (*ParsedReplay, error)
	// DecodeCachedFrames decodes a lossy-compressed cache blob back into
	// frames.
	DecodeCachedFrames(blob []byte) ([]Frame, error)
}

// Loadable represents one or more replays whose data still has to be loaded
// from some source: the api, the cache, or local files.
//
// Load is idempotent; a loaded loadable stays loaded. Loadables are single
// owner: concurrent loads of the same instance are not supported.
type Loadable interface {
	Load(ctx context.Context, loader Loader, cache bool) error
	Loaded() bool
	// Equal compares by what the loadable represents, not by instance.
	Equal(other Loadable) bool
}

// Replay is a loadable single replay exposing its normalized data.
type Replay interface {
	Loadable
	Core() *ReplayCore
}

// ReplayContainer holds Replay loadables and passes through an intermediate
// "info loaded" state: after LoadInfo the container knows which replays it
// represents, but those replays are still unloaded.
type ReplayContainer interface {
	Loadable
	LoadInfo(ctx context.Context, loader Loader) error
	// AllReplays is only complete once the container is info loaded.
	AllReplays() []Replay
}

// resolveCache gives a loadable's own cache preference precedence over the
// value cascading down from its parent.
func resolveCache(own *bool, cascade bool) bool {
	if own != nil {
		return *own
	}
	return cascade
}

// loadContainer is the shared container load path: info first, then every
// child replay.
func loadContainer(ctx context.Context, c ReplayContainer, loader Loader, cache bool) error {
	if err := c.LoadInfo(ctx, loader); err != nil {
		return err
	}
	for _, r := range c.AllReplays() {
		if err := r.Load(ctx, loader, cache); err != nil {
			return err
		}
	}
	return nil
}

// LoadableContainer holds a mixed list of replays and replay containers with
// no further structure. Useful to info-load and flatten a heterogeneous list
// in one call.
type LoadableContainer struct {
	Loadables []Loadable
	Cache     *bool
	loaded    bool
}

func NewLoadableContainer(loadables []Loadable, cache *bool) *LoadableContainer {
	return &LoadableContainer{Loadables: loadables, Cache: cache}
}

// AllReplays returns every replay held directly or through a container. The
// list may be incomplete until the container is info loaded.
func (lc *LoadableContainer) AllReplays() []Replay {
	var replays []Replay
	for _, loadable := range lc.Loadables {
		switch l := loadable.(type) {
		case ReplayContainer:
			replays = append(replays, l.AllReplays()...)
		case Replay:
			replays = append(replays, l)
		}
	}
	return replays
}

func (lc *LoadableContainer) LoadInfo(ctx context.Context, loader Loader) error {
	for _, loadable := range lc.Loadables {
		if container, ok := loadable.(ReplayContainer); ok {
			if err := container.LoadInfo(ctx, loader); err != nil {
				return err
			}
		}
	}
	return nil
}

func (lc *LoadableContainer) Load(ctx context.Context, loader Loader, cache bool) error {
	if lc.loaded {
		return nil
	}
	cascade := resolveCache(lc.Cache, cache)
	for _, loadable := range lc.Loadables {
		if err := loadable.Load(ctx, loader, cascade); err != nil {
			return err
		}
	}
	lc.loaded = true
	return nil
}

func (lc *LoadableContainer) Loaded() bool {
	return lc.loaded
}

func (lc *LoadableContainer) Equal(other Loadable) bool {
	o, ok := other.(*LoadableContainer)
	if !ok {
		return false
	}
	a, b := lc.AllReplays(), o.AllReplays()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
