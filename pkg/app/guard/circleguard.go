// Package guard is the top-level facade of the anticheat engine: it loads
// loadables on demand and runs the analysis methods against them.
package guard

import (
	"context"
	"time"

	common "github.com/osuguard/osuguard/pkg/domain"
	"github.com/osuguard/osuguard/pkg/domain/analysis"
	"github.com/osuguard/osuguard/pkg/domain/loader"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	"github.com/osuguard/osuguard/pkg/infra/metrics"
)

// Detection thresholds, re-exported for callers that only import the facade.
// The facade reports values; deciding what is cheating stays with the
// caller.
const (
	SimLimit       = analysis.SimLimit
	CorrLimit      = analysis.CorrLimit
	FrametimeLimit = analysis.FrametimeLimit
)

// Circleguard runs cheat detection on loadables. Analysis methods load their
// inputs lazily on first use, so passing unloaded loadables is fine.
//
// A keyless instance (built over a loader without api access) can work with
// local and cached replays, but rejects anything that needs the api with a
// clear error.
type Circleguard struct {
	loader *loader.Loader
	// cache decides whether api-loaded replays are written to the replay
	// cache.
	cache bool
}

func New(l *loader.Loader, cache bool) *Circleguard {
	return &Circleguard{loader: l, cache: cache}
}

// Keyless reports whether this instance has no api access.
func (cg *Circleguard) Keyless() bool {
	return !cg.loader.HasAPI()
}

// Load fully loads a loadable. A no-op when it is already loaded.
func (cg *Circleguard) Load(ctx context.Context, loadable replay_entity.Loadable) error {
	return loadable.Load(ctx, cg.loader, cg.cache)
}

// LoadInfo info-loads a replay container, populating which replays it
// represents without fetching any replay data.
func (cg *Circleguard) LoadInfo(ctx context.Context, container replay_entity.ReplayContainer) error {
	return container.LoadInfo(ctx, cg.loader)
}

// Similarity compares two replays for replay stealing. See the analysis
// package for the methods and the mods-unknown policies.
func (cg *Circleguard) Similarity(ctx context.Context, replay1, replay2 replay_entity.Replay,
	method analysis.SimilarityMethod, numChunks int, modsUnknown analysis.ModsUnknownPolicy) (analysis.SimilarityResult, error) {
	defer observe("similarity")()
	if err := cg.Load(ctx, replay1); err != nil {
		return analysis.SimilarityResult{}, err
	}
	if err := cg.Load(ctx, replay2); err != nil {
		return analysis.SimilarityResult{}, err
	}
	return analysis.Similarity(replay1.Core(), replay2.Core(), method, numChunks, modsUnknown)
}

// UR computes the unstable rate of a replay against a beatmap. With adjusted
// set, outlier hits are discarded first.
func (cg *Circleguard) UR(ctx context.Context, replay replay_entity.Replay, beatmap analysis.Beatmap, adjusted bool) (float64, error) {
	defer observe("ur")()
	if err := cg.Load(ctx, replay); err != nil {
		return 0, err
	}
	return analysis.UR(replay.Core(), beatmap, adjusted)
}

// Snaps finds suspicious aim corrections in a replay. beatmap may be nil, in
// which case snaps are not filtered to hitobjects.
func (cg *Circleguard) Snaps(ctx context.Context, replay replay_entity.Replay, maxAngle, minDistance float64, beatmap analysis.Beatmap) ([]analysis.Snap, error) {
	defer observe("snaps")()
	if err := cg.Load(ctx, replay); err != nil {
		return nil, err
	}
	return analysis.Snaps(replay.Core(), maxAngle, minDistance, beatmap)
}

// Frametime is the median time between a replay's frames.
func (cg *Circleguard) Frametime(ctx context.Context, replay replay_entity.Replay) (float64, error) {
	defer observe("frametime")()
	if err := cg.Load(ctx, replay); err != nil {
		return 0, err
	}
	return analysis.Frametime(replay.Core())
}

// Frametimes is the time between each two consecutive frames of a replay.
func (cg *Circleguard) Frametimes(ctx context.Context, replay replay_entity.Replay) ([]int64, error) {
	defer observe("frametime")()
	if err := cg.Load(ctx, replay); err != nil {
		return nil, err
	}
	return analysis.Frametimes(replay.Core())
}

// Hits returns the hits of a replay against a beatmap.
func (cg *Circleguard) Hits(ctx context.Context, replay replay_entity.Replay, beatmap analysis.Beatmap) ([]analysis.Judgment, error) {
	defer observe("hits")()
	if err := cg.Load(ctx, replay); err != nil {
		return nil, err
	}
	return analysis.Hits(replay.Core(), beatmap)
}

// Judgments classifies every hitobject of the beatmap as hit or missed by
// the replay.
func (cg *Circleguard) Judgments(ctx context.Context, replay replay_entity.Replay, beatmap analysis.Beatmap) ([]analysis.Judgment, error) {
	defer observe("judgments")()
	if err := cg.Load(ctx, replay); err != nil {
		return nil, err
	}
	return analysis.Judgments(replay.Core(), beatmap)
}

// FrametimeConverted is Frametime converted between cv/ucv forms for the
// replay's mods.
func (cg *Circleguard) FrametimeConverted(ctx context.Context, replay replay_entity.Replay, to analysis.StatisticTarget) (float64, error) {
	frametime, err := cg.Frametime(ctx, replay)
	if err != nil {
		return 0, err
	}
	core := replay.Core()
	if !core.HasMods() {
		return 0, common.NewErrInvalidArgument("cannot convert a statistic for a replay with unknown mods")
	}
	return analysis.ConvertStatistic(frametime, core.ModsOrZero(), to)
}

func observe(method string) func() {
	start := time.Now()
	return func() {
		metrics.AnalysisDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
}
