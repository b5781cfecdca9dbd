package analysis_test

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"

	"github.com/osuguard/osuguard/pkg/domain/analysis"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

func point(x, y float64) r2.Point {
	return r2.Point{X: x, Y: y}
}

// testBeatmap is a fixed-parameter beatmap; the EZ/HR flags are ignored, as
// these tests construct their hitobjects pre-scaled.
type testBeatmap struct {
	od      float64
	cs      float64
	hitobjs []analysis.Hitobject
}

func (b testBeatmap) HitObjects(easy, hardRock bool) []analysis.Hitobject {
	return b.hitobjs
}

func (b testBeatmap) OD(easy, hardRock bool) float64 {
	return b.od
}

func (b testBeatmap) CS(easy, hardRock bool) float64 {
	return b.cs
}

func circleAt(t int64, x, y float64) analysis.Hitobject {
	return analysis.Hitobject{Kind: analysis.KindCircle, Time: t, Pos: point(x, y)}
}

func sliderAt(t, end int64, x, y float64) analysis.Hitobject {
	return analysis.Hitobject{Kind: analysis.KindSlider, Time: t, EndTime: end, Pos: point(x, y)}
}

func spinnerAt(t, end int64) analysis.Hitobject {
	return analysis.Hitobject{Kind: analysis.KindSpinner, Time: t, EndTime: end, Pos: point(256, 192)}
}

// newTestReplay builds a loaded replay with frames at the given absolute
// times. keys may be nil for an all-zero key track.
func newTestReplay(t *testing.T, times []int64, xs, ys []float64, keys []int64, mods *vo.Mod) *replay_entity.ReplayCore {
	t.Helper()
	require.Equal(t, len(times), len(xs))
	require.Equal(t, len(times), len(ys))
	if keys == nil {
		keys = make([]int64, len(times))
	}
	require.Equal(t, len(times), len(keys))

	// the first frame only seeds the clock, so prepend one that puts the
	// second frame exactly at times[0]
	frames := make([]replay_entity.Frame, 0, len(times)+1)
	frames = append(frames, replay_entity.Frame{TimeDelta: times[0] - 1})
	prev := times[0] - 1
	for i := range times {
		frames = append(frames, replay_entity.Frame{
			TimeDelta: times[i] - prev,
			X:         xs[i],
			Y:         ys[i],
			Keys:      keys[i],
		})
		prev = times[i]
	}

	core := &replay_entity.ReplayCore{Mods: mods}
	require.NoError(t, core.SetFrames(frames))
	core.MarkLoaded()
	return core
}

// newDatalessReplay is a loaded replay whose source had no data.
func newDatalessReplay(t *testing.T) *replay_entity.ReplayCore {
	t.Helper()
	core := &replay_entity.ReplayCore{}
	require.NoError(t, core.SetFrames(nil))
	core.MarkLoaded()
	return core
}

// pressesReplay builds a replay that presses M1 at each given time and
// position, with a key-up frame in between.
func pressesReplay(t *testing.T, presses [][3]int64, mods *vo.Mod) *replay_entity.ReplayCore {
	t.Helper()
	var times, keys []int64
	var xs, ys []float64
	clock := int64(0)
	for _, p := range presses {
		// key-up frame shortly before the press
		times = append(times, p[0]-2, p[0])
		xs = append(xs, float64(p[1]), float64(p[1]))
		ys = append(ys, float64(p[2]), float64(p[2]))
		keys = append(keys, 0, int64(vo.KeyM1))
		clock = p[0]
	}
	// trailing key-up so the last press has a clean edge
	times = append(times, clock+2)
	xs = append(xs, xs[len(xs)-1])
	ys = append(ys, ys[len(ys)-1])
	keys = append(keys, 0)
	return newTestReplay(t, times, xs, ys, keys, mods)
}
