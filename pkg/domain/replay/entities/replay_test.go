package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

func frame(delta int64, x, y float64, keys int64) replay_entity.Frame {
	return replay_entity.Frame{TimeDelta: delta, X: x, Y: y, Keys: keys}
}

func TestSetFrames_CumulativeTimes(t *testing.T) {
	var core replay_entity.ReplayCore
	err := core.SetFrames([]replay_entity.Frame{
		frame(-1, 100, 100, 0),
		frame(10, 1, 1, 0),
		frame(20, 2, 2, 1),
		frame(15, 3, 3, 0),
	})
	require.NoError(t, err)

	// the first frame seeds the clock and is not emitted
	assert.Equal(t, []int64{9, 29, 44}, core.T)
	assert.Equal(t, 1.0, core.XY[0].X)
	assert.Equal(t, []int64{0, 1, 0}, core.K)
	assert.True(t, core.HasData() == false, "data is not visible until the replay is marked loaded")
	core.MarkLoaded()
	assert.True(t, core.HasData())
}

func TestSetFrames_ArrayLengthsMatch(t *testing.T) {
	var core replay_entity.ReplayCore
	err := core.SetFrames([]replay_entity.Frame{
		frame(-1, 0, 0, 0), frame(16, 10, 20, 0), frame(17, 11, 21, 1), frame(16, 12, 22, 0),
	})
	require.NoError(t, err)
	assert.Len(t, core.XY, len(core.T))
	assert.Len(t, core.K, len(core.T))
	for i := 1; i < len(core.T); i++ {
		assert.LessOrEqual(t, core.T[i-1], core.T[i])
	}
}

func TestSetFrames_DropsLeadingZeroDeltaFrame(t *testing.T) {
	var core replay_entity.ReplayCore
	err := core.SetFrames([]replay_entity.Frame{
		frame(0, 999, 999, 0),
		frame(5, 0, 0, 0),
		frame(10, 1, 1, 0),
	})
	require.NoError(t, err)

	// the zero frame is discarded entirely, the next frame seeds the clock
	assert.Equal(t, []int64{15}, core.T)
	assert.Equal(t, 1.0, core.XY[0].X)
}

func TestSetFrames_SkipIntoSong(t *testing.T) {
	// a replay with an initial skip: large positive first delta, then a
	// negative delta winding back to the true start
	var core replay_entity.ReplayCore
	err := core.SetFrames([]replay_entity.Frame{
		frame(2000, 0, 0, 0),
		frame(-1990, 5, 5, 0),
		frame(16, 6, 6, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 26}, core.T)
	assert.Equal(t, 5.0, core.XY[0].X)
	assert.Equal(t, 6.0, core.XY[1].X)
}

func TestSetFrames_NegativeSectionInterpolatesOnExit(t *testing.T) {
	var core replay_entity.ReplayCore
	err := core.SetFrames([]replay_entity.Frame{
		frame(1000, 0, 0, 0), // seeds running time at 1000
		frame(10, 1, 1, 7),   // t=1010
		frame(-500, 2, 2, 0), // enters the negative section, dropped
		frame(100, 3, 3, 0),  // still negative, dropped
		frame(450, 4, 4, 0),  // t=1060, exits the section
	})
	require.NoError(t, err)

	// exiting the section inserts a frame at the last positive time,
	// interpolated between the two frames straddling it, holding the last
	// positive frame's keys
	require.Equal(t, []int64{1010, 1010, 1060}, core.T)
	assert.Equal(t, 1.0, core.XY[0].X, "the real frame at 1010 keeps source order before the synthetic one")
	assert.InDelta(t, 3.0+400.0/450.0, core.XY[1].X, 1e-12)
	assert.InDelta(t, 3.0+400.0/450.0, core.XY[1].Y, 1e-12)
	assert.Equal(t, int64(7), core.K[1])
	assert.Equal(t, 4.0, core.XY[2].X)
}

func TestSetFrames_StableSortKeepsSourceOrderOnTies(t *testing.T) {
	var core replay_entity.ReplayCore
	err := core.SetFrames([]replay_entity.Frame{
		frame(-1, 0, 0, 0),
		frame(10, 1, 1, 0),
		frame(0, 2, 2, 0),
		frame(0, 3, 3, 0),
		frame(5, 4, 4, 0),
	})
	require.NoError(t, err)

	require.Equal(t, []int64{9, 9, 9, 14}, core.T)
	assert.Equal(t, []float64{1, 2, 3, 4}, []float64{core.XY[0].X, core.XY[1].X, core.XY[2].X, core.XY[3].X})
}

func TestSetFrames_NilMeansNoData(t *testing.T) {
	var core replay_entity.ReplayCore
	require.NoError(t, core.SetFrames(nil))
	core.MarkLoaded()
	assert.False(t, core.HasData())
}

func TestSetFrames_EmptyIsAnError(t *testing.T) {
	var core replay_entity.ReplayCore
	assert.Error(t, core.SetFrames([]replay_entity.Frame{}))
	assert.Error(t, core.SetFrames([]replay_entity.Frame{frame(0, 0, 0, 0)}))
}

func TestKeydowns(t *testing.T) {
	m1 := int64(vo.KeyM1)
	m2 := int64(vo.KeyM2)
	k1 := int64(vo.KeyK1)

	var core replay_entity.ReplayCore
	err := core.SetFrames([]replay_entity.Frame{
		frame(-1, 0, 0, 0),
		frame(10, 0, 0, m1|k1), // M1 pressed (K1 implies M1)
		frame(10, 0, 0, m1|k1), // held, no keydown
		frame(10, 0, 0, 0),     // released
		frame(10, 0, 0, m1|m2), // both pressed at once
	})
	require.NoError(t, err)
	core.MarkLoaded()

	keydowns := core.Keydowns()
	require.Len(t, keydowns, 4)
	assert.Equal(t, m1, keydowns[0], "K1 is masked down to M1")
	assert.Equal(t, int64(0), keydowns[1])
	assert.Equal(t, int64(0), keydowns[2])
	assert.Equal(t, m1|m2, keydowns[3])
}

func TestParsedReplay_FramesOrNil(t *testing.T) {
	parsed := &replay_entity.ParsedReplay{
		Mode:      replay_entity.GameModeStd,
		HasFrames: true,
		Frames:    []replay_entity.Frame{frame(-1, 0, 0, 0), frame(16, 1, 1, 0)},
	}
	assert.NotNil(t, parsed.FramesOrNil())

	// non-std replay data is dropped: the analysis engine is std only
	parsed.Mode = 3
	assert.Nil(t, parsed.FramesOrNil())

	parsed.Mode = replay_entity.GameModeStd
	parsed.HasFrames = false
	assert.Nil(t, parsed.FramesOrNil())
}
