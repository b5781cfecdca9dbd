package entities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	common "github.com/osuguard/osuguard/pkg/domain"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// MaxMapSpan selects every score the api can list for a map.
var MaxMapSpan = vo.MustSpan("1-100")

// Map is a map's top plays (its leaderboard), as seen on the website.
type Map struct {
	BeatmapID int
	Span      vo.Span
	Mods      *vo.Mod
	Cache     *bool

	replays    []Replay
	infoLoaded bool
	loaded     bool
}

func NewMap(beatmapID int, span vo.Span, mods *vo.Mod, cache *bool) *Map {
	return &Map{BeatmapID: beatmapID, Span: span, Mods: mods, Cache: cache}
}

func (m *Map) LoadInfo(ctx context.Context, loader Loader) error {
	if m.infoLoaded {
		return nil
	}
	if loader == nil {
		return common.NewErrNoLoader("info loading a Map")
	}
	infos, err := loader.ReplayInfos(ctx, m.BeatmapID, m.Span, m.Mods)
	if err != nil {
		return err
	}
	for _, info := range infos {
		info := info
		m.replays = append(m.replays, NewReplayMap(info.BeatmapID, info.UserID, nil, m.Cache, &info))
	}
	m.infoLoaded = true
	return nil
}

func (m *Map) Load(ctx context.Context, loader Loader, cache bool) error {
	if m.loaded {
		return nil
	}
	if err := loadContainer(ctx, m, loader, resolveCache(m.Cache, cache)); err != nil {
		return err
	}
	m.loaded = true
	return nil
}

func (m *Map) Loaded() bool {
	return m.loaded
}

func (m *Map) AllReplays() []Replay {
	return m.replays
}

func (m *Map) Equal(other Loadable) bool {
	o, ok := other.(*Map)
	if !ok {
		return false
	}
	return m.BeatmapID == o.BeatmapID && sameMods(m.Mods, o.Mods) && m.Span.Equal(o.Span)
}

func (m *Map) String() string {
	return fmt.Sprintf("Map %d", m.BeatmapID)
}

// User is a user's top plays (pp-wise, as seen on the website).
type User struct {
	UserID int
	Span   vo.Span
	Mods   *vo.Mod
	Cache  *bool
	// AvailableOnly keeps only scores with downloadable replay data.
	AvailableOnly bool

	replays    []Replay
	infoLoaded bool
	loaded     bool
}

func NewUser(userID int, span vo.Span, mods *vo.Mod, cache *bool, availableOnly bool) *User {
	return &User{UserID: userID, Span: span, Mods: mods, Cache: cache, AvailableOnly: availableOnly}
}

func (u *User) LoadInfo(ctx context.Context, loader Loader) error {
	if u.infoLoaded {
		return nil
	}
	if loader == nil {
		return common.NewErrNoLoader("info loading a User")
	}
	// get_user_best does not include usernames, so resolve it once here and
	// stamp it onto every row.
	username, err := loader.Username(ctx, u.UserID)
	if err != nil {
		return err
	}
	infos, err := loader.UserBest(ctx, u.UserID, u.Span, u.Mods)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if u.AvailableOnly && !info.ReplayAvailable {
			continue
		}
		info := info
		info.Username = username
		u.replays = append(u.replays, NewReplayMap(info.BeatmapID, info.UserID, nil, u.Cache, &info))
	}
	u.infoLoaded = true
	return nil
}

func (u *User) Load(ctx context.Context, loader Loader, cache bool) error {
	if u.loaded {
		return nil
	}
	if err := loadContainer(ctx, u, loader, resolveCache(u.Cache, cache)); err != nil {
		return err
	}
	u.loaded = true
	return nil
}

func (u *User) Loaded() bool {
	return u.loaded
}

func (u *User) AllReplays() []Replay {
	return u.replays
}

func (u *User) Equal(other Loadable) bool {
	o, ok := other.(*User)
	if !ok {
		return false
	}
	return u.UserID == o.UserID && sameMods(u.Mods, o.Mods) && u.Span.Equal(o.Span)
}

func (u *User) String() string {
	return fmt.Sprintf("User %d", u.UserID)
}

// MapUser is all of a user's replays on a map, not just the top one.
type MapUser struct {
	BeatmapID     int
	UserID        int
	Span          vo.Span
	Cache         *bool
	AvailableOnly bool

	replays    []Replay
	infoLoaded bool
	loaded     bool
}

func NewMapUser(beatmapID, userID int, span vo.Span, cache *bool, availableOnly bool) *MapUser {
	if span == nil {
		span = MaxMapSpan
	}
	return &MapUser{BeatmapID: beatmapID, UserID: userID, Span: span, Cache: cache, AvailableOnly: availableOnly}
}

func (mu *MapUser) LoadInfo(ctx context.Context, loader Loader) error {
	if mu.infoLoaded {
		return nil
	}
	if loader == nil {
		return common.NewErrNoLoader("info loading a MapUser")
	}
	infos, err := loader.ReplayInfosUser(ctx, mu.BeatmapID, mu.UserID, mu.Span)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if mu.AvailableOnly && !info.ReplayAvailable {
			continue
		}
		info := info
		mu.replays = append(mu.replays, NewReplayMap(info.BeatmapID, info.UserID, nil, mu.Cache, &info))
	}
	mu.infoLoaded = true
	return nil
}

func (mu *MapUser) Load(ctx context.Context, loader Loader, cache bool) error {
	if mu.loaded {
		return nil
	}
	if err := loadContainer(ctx, mu, loader, resolveCache(mu.Cache, cache)); err != nil {
		return err
	}
	mu.loaded = true
	return nil
}

func (mu *MapUser) Loaded() bool {
	return mu.loaded
}

func (mu *MapUser) AllReplays() []Replay {
	return mu.replays
}

func (mu *MapUser) Equal(other Loadable) bool {
	o, ok := other.(*MapUser)
	if !ok {
		return false
	}
	return mu.BeatmapID == o.BeatmapID && mu.UserID == o.UserID && mu.Span.Equal(o.Span)
}

func (mu *MapUser) String() string {
	return fmt.Sprintf("MapUser for %d on /b/%d", mu.UserID, mu.BeatmapID)
}

// ReplayDir is a directory of .osr files, scanned non-recursively.
type ReplayDir struct {
	Path  string
	Cache *bool

	replays    []Replay
	infoLoaded bool
	loaded     bool
}

func NewReplayDir(path string, cache *bool) (*ReplayDir, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, common.NewErrInvalidArgumentf("expected %s to be a directory", path)
	}
	return &ReplayDir{Path: path, Cache: cache}, nil
}

func (d *ReplayDir) LoadInfo(ctx context.Context, loader Loader) error {
	if d.infoLoaded {
		return nil
	}
	dirEntries, err := os.ReadDir(d.Path)
	if err != nil {
		return err
	}
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".osr") {
			continue
		}
		d.replays = append(d.replays, NewReplayPath(filepath.Join(d.Path, entry.Name()), d.Cache))
	}
	d.infoLoaded = true
	return nil
}

func (d *ReplayDir) Load(ctx context.Context, loader Loader, cache bool) error {
	if d.loaded {
		return nil
	}
	if err := loadContainer(ctx, d, loader, resolveCache(d.Cache, cache)); err != nil {
		return err
	}
	d.loaded = true
	return nil
}

func (d *ReplayDir) Loaded() bool {
	return d.loaded
}

func (d *ReplayDir) AllReplays() []Replay {
	return d.replays
}

func (d *ReplayDir) Equal(other Loadable) bool {
	o, ok := other.(*ReplayDir)
	if !ok {
		return false
	}
	return d.Path == o.Path
}

// CachedReplayRow is a raw row of the replay cache store.
type CachedReplayRow struct {
	UserID    int
	BeatmapID int
	Mods      vo.Mod
	Blob      []byte
	ReplayID  int64
}

// ReplaySampler samples replays from a cache store: numMaps distinct maps
// chosen uniformly at random, then up to numMaps*numReplays rows from those
// maps.
type ReplaySampler interface {
	SampleCachedReplays(ctx context.Context, numMaps, numReplays int) ([]CachedReplayRow, error)
}

// ReplayCache holds replays sampled from a replay cache store. Primarily
// useful to sample a corpus, rather than to access specific replays.
type ReplayCache struct {
	NumMaps    int
	NumReplays int

	sampler    ReplaySampler
	replays    []Replay
	infoLoaded bool
	loaded     bool
}

func NewReplayCache(sampler ReplaySampler, numMaps, numReplays int) *ReplayCache {
	return &ReplayCache{sampler: sampler, NumMaps: numMaps, NumReplays: numReplays}
}

func (rc *ReplayCache) LoadInfo(ctx context.Context, loader Loader) error {
	if rc.infoLoaded {
		return nil
	}
	rows, err := rc.sampler.SampleCachedReplays(ctx, rc.NumMaps, rc.NumReplays)
	if err != nil {
		return err
	}
	for _, row := range rows {
		rc.replays = append(rc.replays, NewCachedReplay(row.UserID, row.BeatmapID, row.Mods, row.Blob, row.ReplayID))
	}
	rc.infoLoaded = true
	return nil
}

func (rc *ReplayCache) Load(ctx context.Context, loader Loader, cache bool) error {
	if rc.loaded {
		return nil
	}
	if err := loadContainer(ctx, rc, loader, false); err != nil {
		return err
	}
	rc.loaded = true
	return nil
}

func (rc *ReplayCache) Loaded() bool {
	return rc.loaded
}

func (rc *ReplayCache) AllReplays() []Replay {
	return rc.replays
}

func (rc *ReplayCache) Equal(other Loadable) bool {
	o, ok := other.(*ReplayCache)
	if !ok {
		return false
	}
	return rc.sampler == o.sampler && rc.NumMaps == o.NumMaps && rc.NumReplays == o.NumReplays
}
