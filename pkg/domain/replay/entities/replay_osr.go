package entities

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	common "github.com/osuguard/osuguard/pkg/domain"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// replayOSR is the shared state of replays sourced from osr data. An osr file
// carries the beatmap hash and username but not the beatmap or user id; those
// are resolved lazily through the loader on first request and memoized.
type replayOSR struct {
	ReplayCore
	idLookup Loader
}

func (r *replayOSR) loadFromParsed(parsed *ParsedReplay, loader Loader) error {
	r.FillFromParsed(parsed)
	r.idLookup = loader
	if err := r.SetFrames(parsed.FramesOrNil()); err != nil {
		return err
	}
	r.MarkLoaded()
	return nil
}

// FetchBeatmapID resolves the beatmap id from the beatmap hash via the
// loader. The result is memoized on the core.
func (r *replayOSR) FetchBeatmapID(ctx context.Context) (int, error) {
	if !r.Loaded() {
		return 0, common.NewErrUnloaded("an osr replay")
	}
	if r.BeatmapID != 0 {
		return r.BeatmapID, nil
	}
	if r.idLookup == nil {
		return 0, common.NewErrNoLoader("resolving the beatmap id of a local replay")
	}
	beatmapID, err := r.idLookup.BeatmapID(ctx, r.BeatmapHash)
	if err != nil {
		return 0, err
	}
	r.BeatmapID = beatmapID
	return beatmapID, nil
}

// FetchUserID resolves the user id from the username via the loader. The
// result is memoized on the core.
func (r *replayOSR) FetchUserID(ctx context.Context) (int, error) {
	if !r.Loaded() {
		return 0, common.NewErrUnloaded("an osr replay")
	}
	if r.UserID != 0 {
		return r.UserID, nil
	}
	if r.idLookup == nil {
		return 0, common.NewErrNoLoader("resolving the user id of a local replay")
	}
	userID, err := r.idLookup.UserID(ctx, r.Username)
	if err != nil {
		return 0, err
	}
	r.UserID = userID
	return userID, nil
}

// ReplayPath is a replay saved locally as a .osr file.
type ReplayPath struct {
	replayOSR
	Path  string
	Cache *bool
}

func NewReplayPath(path string, cache *bool) *ReplayPath {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r := &ReplayPath{Path: abs, Cache: cache}
	r.Weight = vo.RatelimitLight
	return r
}

func (r *ReplayPath) Load(ctx context.Context, loader Loader, cache bool) error {
	if r.Loaded() {
		return nil
	}
	raw, err := os.ReadFile(r.Path)
	if err != nil {
		return fmt.Errorf("reading replay file %s: %w", r.Path, err)
	}
	parsed, err := parseOSR(loader, raw)
	if err != nil {
		return err
	}
	return r.loadFromParsed(parsed, loader)
}

// Equal compares replay data when both sides are loaded with data, and paths
// otherwise. Data wins over paths so that the same path read before and
// after the file changed compares unequal.
func (r *ReplayPath) Equal(other Loadable) bool {
	o, ok := other.(*ReplayPath)
	if !ok {
		return false
	}
	if r.HasData() && o.HasData() {
		return sameReplayData(&r.ReplayCore, &o.ReplayCore)
	}
	return r.Path == o.Path
}

func (r *ReplayPath) Core() *ReplayCore {
	return &r.ReplayCore
}

func (r *ReplayPath) String() string {
	if r.Loaded() {
		return fmt.Sprintf("loaded ReplayPath by %s at %s", r.Username, r.Path)
	}
	return fmt.Sprintf("unloaded ReplayPath at %s", r.Path)
}

// ReplayString is a replay whose osr file content is already in memory.
type ReplayString struct {
	replayOSR
	Raw   []byte
	Cache *bool
}

func NewReplayString(raw []byte, cache *bool) *ReplayString {
	r := &ReplayString{Raw: raw, Cache: cache}
	r.Weight = vo.RatelimitLight
	return r
}

func (r *ReplayString) Load(ctx context.Context, loader Loader, cache bool) error {
	if r.Loaded() {
		return nil
	}
	parsed, err := parseOSR(loader, r.Raw)
	if err != nil {
		return err
	}
	return r.loadFromParsed(parsed, loader)
}

func (r *ReplayString) Equal(other Loadable) bool {
	o, ok := other.(*ReplayString)
	if !ok {
		return false
	}
	return bytes.Equal(r.Raw, o.Raw)
}

func (r *ReplayString) Core() *ReplayCore {
	return &r.ReplayCore
}

func parseOSR(loader Loader, raw []byte) (*ParsedReplay, error) {
	if loader == nil {
		return nil, common.NewErrNoLoader("parsing an osr file")
	}
	return loader.ParseOSR(raw)
}
