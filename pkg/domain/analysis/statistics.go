package analysis

import (
	"github.com/montanaflynn/stats"

	common "github.com/osuguard/osuguard/pkg/domain"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// Conventional detection thresholds. The engine never decides for the
// caller; these are the community-established cutoffs.
const (
	// SimLimit is the mean distance below which two replays are considered
	// stolen.
	SimLimit = 18.0
	// CorrLimit is the correlation above which two replays are considered
	// stolen.
	CorrLimit = 0.99
	// FrametimeLimit is the median frametime below which a replay is
	// considered timewarped. A legitimate replay has a median around 16.67ms
	// (stable's frame cadence).
	FrametimeLimit = 12.0
)

// Frametimes returns the time between each two consecutive frames.
func Frametimes(replay *replay_entity.ReplayCore) ([]int64, error) {
	if !replay.HasData() {
		return nil, common.NewErrNoReplayData(replay.String())
	}
	diffs := make([]int64, 0, len(replay.T)-1)
	for i := 1; i < len(replay.T); i++ {
		diffs = append(diffs, replay.T[i]-replay.T[i-1])
	}
	return diffs, nil
}

// Frametime is the median time between frames. Median rather than mean, to
// blunt the effect of outliers.
func Frametime(replay *replay_entity.ReplayCore) (float64, error) {
	frametimes, err := Frametimes(replay)
	if err != nil {
		return 0, err
	}
	values := make([]float64, len(frametimes))
	for i, ft := range frametimes {
		values[i] = float64(ft)
	}
	return stats.Median(values)
}

// UR is the unstable rate of a replay against a beatmap: ten times the
// standard deviation of its hit errors. With adjusted set, outlier hits are
// dropped first, so a single stray hit does not inflate the result.
func UR(replay *replay_entity.ReplayCore, beatmap Beatmap, adjusted bool) (float64, error) {
	hits, err := Hits(replay, beatmap)
	if err != nil {
		return 0, err
	}
	diffs := make([]float64, len(hits))
	for i, hit := range hits {
		diffs[i] = float64(hit.Error())
	}
	if adjusted {
		diffs, err = filterOutliers(diffs, 1.5)
		if err != nil {
			return 0, err
		}
	}
	std, err := stats.StandardDeviationPopulation(diffs)
	if err != nil {
		return 0, err
	}
	return std * 10, nil
}

// filterOutliers drops the values more than bias*IQR outside the first or
// third quartile.
func filterOutliers(values []float64, bias float64) ([]float64, error) {
	quartiles, err := stats.Quartile(values)
	if err != nil {
		return nil, err
	}
	iqr := quartiles.Q3 - quartiles.Q1
	lower := quartiles.Q1 - bias*iqr
	upper := quartiles.Q3 + bias*iqr

	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if lower < v && v < upper {
			kept = append(kept, v)
		}
	}
	return kept, nil
}

// StatisticTarget says which direction ConvertStatistic converts in.
type StatisticTarget string

const (
	// ToCV converts to the clock-rate corrected form.
	ToCV StatisticTarget = "cv"
	// ToUCV converts to the uncorrected form.
	ToUCV StatisticTarget = "ucv"
)

// ConvertStatistic converts a time-scaled statistic (ur, median frametime)
// between its converted and unconverted forms. Only DT and HT change the
// game clock: DT runs it at 1.5x, HT at 0.75x.
func ConvertStatistic(stat float64, mods vo.Mod, to StatisticTarget) (float64, error) {
	if to != ToCV && to != ToUCV {
		return 0, common.NewErrInvalidArgumentf("expected one of cv, ucv; got %q", to)
	}

	factor := 1.0
	if mods.Contains(vo.ModDoubleTime) {
		factor = 1 / 1.5
	} else if mods.Contains(vo.ModHalfTime) {
		factor = 1 / 0.75
	}

	if to == ToCV {
		return stat * factor, nil
	}
	return stat / factor, nil
}
