package guard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osuguard/osuguard/pkg/app/guard"
	common "github.com/osuguard/osuguard/pkg/domain"
	"github.com/osuguard/osuguard/pkg/domain/analysis"
	"github.com/osuguard/osuguard/pkg/domain/loader"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	"github.com/osuguard/osuguard/pkg/infra/osr"
)

func newKeylessGuard() *guard.Circleguard {
	return guard.New(loader.New(nil, nil, osr.NewParser()), false)
}

func TestKeylessGuard_RejectsApiBackedLoadables(t *testing.T) {
	cg := newKeylessGuard()
	assert.True(t, cg.Keyless())

	err := cg.Load(context.Background(), replay_entity.NewReplayMap(221777, 2757689, nil, nil, nil))
	require.Error(t, err)
	assert.True(t, common.IsNoLoaderError(err))

	_, err = cg.Frametime(context.Background(), replay_entity.NewReplayID(123, nil))
	require.Error(t, err)
	assert.True(t, common.IsNoLoaderError(err))
}

func TestGuard_ThresholdsAreConventional(t *testing.T) {
	assert.Equal(t, 18.0, float64(guard.SimLimit))
	assert.Equal(t, 0.99, float64(guard.CorrLimit))
	assert.Equal(t, 12.0, float64(guard.FrametimeLimit))
}

// stubReplay is an already-loaded replay, bypassing any loading source.
type stubReplay struct {
	replay_entity.ReplayCore
}

func (s *stubReplay) Load(ctx context.Context, l replay_entity.Loader, cache bool) error {
	return nil
}

func (s *stubReplay) Equal(other replay_entity.Loadable) bool {
	return other == replay_entity.Loadable(s)
}

func (s *stubReplay) Core() *replay_entity.ReplayCore {
	return &s.ReplayCore
}

func newStubReplay(t *testing.T, n int) *stubReplay {
	t.Helper()
	frames := []replay_entity.Frame{{TimeDelta: -1}}
	for i := 0; i < n; i++ {
		frames = append(frames, replay_entity.Frame{TimeDelta: 16, X: float64(i), Y: 100})
	}
	s := &stubReplay{}
	require.NoError(t, s.SetFrames(frames))
	s.MarkLoaded()
	return s
}

func TestGuard_FrametimeOnLoadedReplay(t *testing.T) {
	cg := newKeylessGuard()
	r := newStubReplay(t, 50)

	frametime, err := cg.Frametime(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 16.0, frametime)

	frametimes, err := cg.Frametimes(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, frametimes, 49)
}

func TestGuard_SimilarityOfIdenticalReplays(t *testing.T) {
	cg := newKeylessGuard()
	a := newStubReplay(t, 100)
	a.SetMods(0)
	b := newStubReplay(t, 100)
	b.SetMods(0)

	result, err := cg.Similarity(context.Background(), a, b,
		analysis.MethodSimilarity, analysis.DefaultNumChunks, analysis.ModsUnknownBest)
	require.NoError(t, err)
	assert.InDelta(t, 0, result.Value, 1e-9)
	assert.Less(t, result.Value, float64(guard.SimLimit))
}

func TestGuard_SnapsWithoutBeatmap(t *testing.T) {
	cg := newKeylessGuard()
	r := newStubReplay(t, 50)

	snaps, err := cg.Snaps(context.Background(), r,
		analysis.DefaultSnapMaxAngle, analysis.DefaultSnapMinDistance, nil)
	require.NoError(t, err)
	assert.Empty(t, snaps, "a straight line has no snaps")
}
