package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osuguard/osuguard/pkg/domain/analysis"
)

func TestSnaps_DetectsSharpCorrection(t *testing.T) {
	n, snapAt := 20, 10
	times := make([]int64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = int64(i) * 16
		xs[i] = float64(10 * i)
		ys[i] = 200
	}
	xs[snapAt+1] = xs[snapAt-1]
	replay := newTestReplay(t, times, xs, ys, nil, nil)

	// the reversal makes two zero-degree triples: one centered on the snap
	// frame, one centered on the frame after it
	snaps, err := analysis.Snaps(replay, analysis.DefaultSnapMaxAngle, analysis.DefaultSnapMinDistance, nil)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, times[snapAt], snaps[0].Time)
	assert.InDelta(t, 0, snaps[0].Angle, 1e-9, "a full reversal is a zero-degree angle")
	assert.Equal(t, 10.0, snaps[0].Distance)
}

func TestSnaps_SmoothPathHasNone(t *testing.T) {
	n := 50
	times := make([]int64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = int64(i) * 16
		xs[i] = float64(10 * i)
		ys[i] = 200 + float64(i)
	}
	replay := newTestReplay(t, times, xs, ys, nil, nil)

	snaps, err := analysis.Snaps(replay, analysis.DefaultSnapMaxAngle, analysis.DefaultSnapMinDistance, nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSnaps_ShortLegsAreIgnored(t *testing.T) {
	// same reversal shape, but with 2px legs: under the distance floor
	times := []int64{0, 16, 32, 48, 64}
	xs := []float64{100, 102, 104, 102, 100}
	ys := []float64{200, 200, 200, 200, 200}
	replay := newTestReplay(t, times, xs, ys, nil, nil)

	snaps, err := analysis.Snaps(replay, analysis.DefaultSnapMaxAngle, analysis.DefaultSnapMinDistance, nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSnaps_BeatmapFilterKeepsOnlySnapsOnHitobjects(t *testing.T) {
	n, snapAt := 20, 10
	times := make([]int64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = int64(i) * 16
		xs[i] = float64(10 * i)
		ys[i] = 200
	}
	xs[snapAt+1] = xs[snapAt-1]
	snapTime := times[snapAt]
	snapPos := xs[snapAt]

	// a circle right under the snap keeps it
	beatmap := od5cs4
	beatmap.hitobjs = []analysis.Hitobject{circleAt(snapTime, snapPos, 200)}
	replay := newTestReplay(t, times, xs, ys, nil, nil)
	snaps, err := analysis.Snaps(replay, analysis.DefaultSnapMaxAngle, analysis.DefaultSnapMinDistance, beatmap)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)

	// a circle far away drops it
	beatmap.hitobjs = []analysis.Hitobject{circleAt(snapTime, snapPos+300, 200)}
	replay = newTestReplay(t, times, xs, ys, nil, nil)
	snaps, err = analysis.Snaps(replay, analysis.DefaultSnapMaxAngle, analysis.DefaultSnapMinDistance, beatmap)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	// a spinner under the snap drops it too
	beatmap.hitobjs = []analysis.Hitobject{spinnerAt(snapTime, snapTime+500)}
	replay = newTestReplay(t, times, xs, ys, nil, nil)
	snaps, err = analysis.Snaps(replay, analysis.DefaultSnapMaxAngle, analysis.DefaultSnapMinDistance, beatmap)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
