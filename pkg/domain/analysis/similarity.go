package analysis

import (
	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"

	common "github.com/osuguard/osuguard/pkg/domain"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// SimilarityMethod selects the comparison algorithm.
type SimilarityMethod string

const (
	// MethodSimilarity is the mean distance between the two cursors. Lower
	// means more similar.
	MethodSimilarity SimilarityMethod = "similarity"
	// MethodCorrelation is the chunked maximum cross-correlation of the two
	// cursor paths. Higher means more similar, and intentional time shifting
	// does not defeat it.
	MethodCorrelation SimilarityMethod = "correlation"
)

// ModsUnknownPolicy decides what to do when either replay's mods are unknown
// and we cannot tell whether a HardRock flip is needed.
type ModsUnknownPolicy string

const (
	// ModsUnknownBest computes both the flipped and unflipped comparison and
	// returns whichever is more incriminating.
	ModsUnknownBest ModsUnknownPolicy = "best"
	// ModsUnknownBoth returns both values.
	ModsUnknownBoth ModsUnknownPolicy = "both"
)

// DefaultNumChunks is the chunk count for the correlation method.
const DefaultNumChunks = 5

// SimilarityResult is the outcome of comparing two replays. Flipped is
// populated only under the "both" policy, holding the value computed with
// the first replay's y axis mirrored.
type SimilarityResult struct {
	Value   float64
	Flipped *float64
}

// Similarity compares the cursor paths of two replays.
//
// Both paths are reduced to unique-time frames, the shorter time domain is
// interpolated onto the longer, and frames where either cursor left the
// playfield are dropped. If exactly one replay was played with HardRock, the
// first path is mirrored before comparing.
func Similarity(replay1, replay2 *replay_entity.ReplayCore, method SimilarityMethod, numChunks int, modsUnknown ModsUnknownPolicy) (SimilarityResult, error) {
	if method != MethodSimilarity && method != MethodCorrelation {
		return SimilarityResult{}, common.NewErrInvalidArgumentf("unknown similarity method %q", method)
	}
	if modsUnknown != ModsUnknownBest && modsUnknown != ModsUnknownBoth {
		return SimilarityResult{}, common.NewErrInvalidArgumentf("unknown mods_unknown policy %q", modsUnknown)
	}
	if numChunks < 1 {
		return SimilarityResult{}, common.NewErrInvalidArgumentf("num_chunks must be positive, got %d", numChunks)
	}
	if !replay1.HasData() {
		return SimilarityResult{}, common.NewErrNoReplayData(replay1.String())
	}
	if !replay2.HasData() {
		return SimilarityResult{}, common.NewErrNoReplayData(replay2.String())
	}

	t1, xy1 := removeDuplicateT(replay1.T, replay1.XY)
	t2, xy2 := removeDuplicateT(replay2.T, replay2.XY)
	if len(t1) == 0 || len(t2) == 0 {
		return SimilarityResult{}, common.NewErrInvalidArgument("cannot compare a replay with no frames")
	}
	xy1, xy2 = interpolate(t1, t2, xy1, xy2)
	xy1, xy2 = clip(xy1, xy2)

	compute := func(a, b []r2.Point) (float64, error) {
		if method == MethodSimilarity {
			return meanDistance(a, b), nil
		}
		return chunkedCorrelation(a, b, numChunks)
	}

	if !replay1.HasMods() || !replay2.HasMods() {
		// without mod information we cannot know whether one replay needs
		// the HardRock flip, so compute both ways
		plain, err := compute(xy1, xy2)
		if err != nil {
			return SimilarityResult{}, err
		}
		flipped, err := compute(flipY(xy1), xy2)
		if err != nil {
			return SimilarityResult{}, err
		}

		if modsUnknown == ModsUnknownBoth {
			return SimilarityResult{Value: plain, Flipped: &flipped}, nil
		}
		// "best" is the most incriminating branch: the lowest distance, or
		// the highest correlation
		if method == MethodSimilarity {
			return SimilarityResult{Value: minFloat(plain, flipped)}, nil
		}
		return SimilarityResult{Value: maxFloat(plain, flipped)}, nil
	}

	if replay1.ModsOrZero().Contains(vo.ModHardRock) != replay2.ModsOrZero().Contains(vo.ModHardRock) {
		xy1 = flipY(xy1)
	}
	value, err := compute(xy1, xy2)
	if err != nil {
		return SimilarityResult{}, err
	}
	return SimilarityResult{Value: value}, nil
}

// removeDuplicateT keeps only the first frame of each distinct timestamp;
// interpolation breaks down on repeated time values.
func removeDuplicateT(t []int64, xy []r2.Point) ([]int64, []r2.Point) {
	outT := make([]int64, 0, len(t))
	outXY := make([]r2.Point, 0, len(xy))
	for i := range t {
		if i > 0 && t[i] == outT[len(outT)-1] {
			continue
		}
		outT = append(outT, t[i])
		outXY = append(outXY, xy[i])
	}
	return outT, outXY
}

// interpolate resamples the shorter replay onto the longer one's time domain
// with per-axis piecewise linear interpolation. Both returned paths have
// equal length.
func interpolate(t1, t2 []int64, xy1, xy2 []r2.Point) ([]r2.Point, []r2.Point) {
	if len(t1) > len(t2) {
		return xy1, resample(t1, t2, xy2)
	}
	return resample(t2, t1, xy1), xy2
}

// resample evaluates the path (t, xy) at the sample times, clamping to the
// path's endpoints outside its domain.
func resample(samples, t []int64, xy []r2.Point) []r2.Point {
	out := make([]r2.Point, len(samples))
	j := 0
	for i, s := range samples {
		switch {
		case s <= t[0]:
			out[i] = xy[0]
			continue
		case s >= t[len(t)-1]:
			out[i] = xy[len(xy)-1]
			continue
		}
		for t[j+1] < s {
			j++
		}
		ratio := float64(s-t[j]) / float64(t[j+1]-t[j])
		out[i] = r2.Point{
			X: xy[j].X + ratio*(xy[j+1].X-xy[j].X),
			Y: xy[j].Y + ratio*(xy[j+1].Y-xy[j].Y),
		}
	}
	return out
}

// clip drops the frames where either cursor is outside the playfield.
func clip(xy1, xy2 []r2.Point) ([]r2.Point, []r2.Point) {
	out1 := make([]r2.Point, 0, len(xy1))
	out2 := make([]r2.Point, 0, len(xy2))
	for i := range xy1 {
		if inPlayfield(xy1[i]) && inPlayfield(xy2[i]) {
			out1 = append(out1, xy1[i])
			out2 = append(out2, xy2[i])
		}
	}
	return out1, out2
}

func inPlayfield(p r2.Point) bool {
	return p.X >= 0 && p.X <= PlayfieldWidth && p.Y >= 0 && p.Y <= PlayfieldHeight
}

func flipY(xy []r2.Point) []r2.Point {
	out := make([]r2.Point, len(xy))
	for i, p := range xy {
		out[i] = r2.Point{X: p.X, Y: PlayfieldHeight - p.Y}
	}
	return out
}

// meanDistance is the average euclidean distance between the two cursors.
func meanDistance(xy1, xy2 []r2.Point) float64 {
	if len(xy1) == 0 {
		return 0
	}
	sum := 0.0
	for i := range xy1 {
		sum += xy1[i].Sub(xy2[i]).Norm()
	}
	return sum / float64(len(xy1))
}

// chunkedCorrelation splits the paths into numChunks sections and returns
// the median of each section's maximum normalized cross-correlation over all
// time shifts. Chunking bounds the damage of outlier sections (a cheater
// parking the cursor far away during breaks); the max over shifts defeats
// intentional time offsetting.
func chunkedCorrelation(xy1, xy2 []r2.Point, numChunks int) (float64, error) {
	usable := len(xy1) - len(xy1)%numChunks
	if usable == 0 {
		return 0, common.NewErrInvalidArgumentf(
			"replays too short to correlate with %d chunks", numChunks)
	}
	chunkLen := usable / numChunks

	correlations := make([]float64, 0, numChunks)
	for c := 0; c < numChunks; c++ {
		part1 := toMatrix(xy1[c*chunkLen : (c+1)*chunkLen])
		part2 := toMatrix(xy2[c*chunkLen : (c+1)*chunkLen])
		centerMatrix(part1)
		centerMatrix(part2)
		norm := matrixStd(part1) * matrixStd(part2) * float64(2*chunkLen)
		correlations = append(correlations, maxCrossCorrelation(part1, part2)/norm)
	}
	return stats.Median(correlations)
}

// toMatrix lays a path out as a 2 x n matrix, x in row 0 and y in row 1.
func toMatrix(xy []r2.Point) [2][]float64 {
	m := [2][]float64{make([]float64, len(xy)), make([]float64, len(xy))}
	for i, p := range xy {
		m[0][i] = p.X
		m[1][i] = p.Y
	}
	return m
}

func centerMatrix(m [2][]float64) {
	mean := (sum(m[0]) + sum(m[1])) / float64(len(m[0])+len(m[1]))
	for r := 0; r < 2; r++ {
		for i := range m[r] {
			m[r][i] -= mean
		}
	}
}

func matrixStd(m [2][]float64) float64 {
	flat := make([]float64, 0, len(m[0])*2)
	flat = append(flat, m[0]...)
	flat = append(flat, m[1]...)
	std, _ := stats.StandardDeviationPopulation(flat)
	return std
}

// maxCrossCorrelation is the maximum of the full 2-d cross-correlation of
// the two matrices over every row and column displacement.
func maxCrossCorrelation(a, b [2][]float64) float64 {
	n := len(a[0])
	best := 0.0
	first := true
	for dy := -1; dy <= 1; dy++ {
		for dx := -(n - 1); dx <= n-1; dx++ {
			s := 0.0
			for ra := 0; ra < 2; ra++ {
				rb := ra - dy
				if rb < 0 || rb > 1 {
					continue
				}
				for ca := maxInt(0, dx); ca < minInt(n, n+dx); ca++ {
					s += a[ra][ca] * b[rb][ca-dx]
				}
			}
			if first || s > best {
				best, first = s, false
			}
		}
	}
	return best
}

func sum(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
