package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	common "github.com/osuguard/osuguard/pkg/domain"
	"github.com/osuguard/osuguard/pkg/domain/loader"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	replay_out "github.com/osuguard/osuguard/pkg/domain/replay/ports/out"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockApiClient implements replay_out.ApiClient
type MockApiClient struct {
	mock.Mock
}

func (m *MockApiClient) GetScoresAll(ctx context.Context, beatmapID, limit int) ([]replay_out.ScoreRow, error) {
	args := m.Called(ctx, beatmapID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]replay_out.ScoreRow), args.Error(1)
}

func (m *MockApiClient) GetScoresUser(ctx context.Context, beatmapID, userID int, mods int) ([]replay_out.ScoreRow, error) {
	args := m.Called(ctx, beatmapID, userID, mods)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]replay_out.ScoreRow), args.Error(1)
}

func (m *MockApiClient) GetUserBest(ctx context.Context, userID, limit int) ([]replay_out.ScoreRow, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]replay_out.ScoreRow), args.Error(1)
}

func (m *MockApiClient) GetReplay(ctx context.Context, beatmapID, userID int, mods int) ([]byte, error) {
	args := m.Called(ctx, beatmapID, userID, mods)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockApiClient) GetReplayByID(ctx context.Context, replayID int64) ([]byte, error) {
	args := m.Called(ctx, replayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockApiClient) GetUsername(ctx context.Context, userID int) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockApiClient) GetUserID(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *MockApiClient) GetBeatmapID(ctx context.Context, beatmapHash string) (int, error) {
	args := m.Called(ctx, beatmapHash)
	return args.Int(0), args.Error(1)
}

// MockReplayStore implements replay_out.ReplayStore
type MockReplayStore struct {
	mock.Mock
}

func (m *MockReplayStore) Check(ctx context.Context, replayID int64) ([]byte, error) {
	args := m.Called(ctx, replayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockReplayStore) Put(ctx context.Context, info replay_entity.ReplayInfo, lzmaBytes []byte) error {
	args := m.Called(ctx, info, lzmaBytes)
	return args.Error(0)
}

func (m *MockReplayStore) DecodeBlob(blob []byte) ([]byte, error) {
	args := m.Called(blob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockReplayParser implements replay_out.ReplayParser
type MockReplayParser struct {
	mock.Mock
}

func (m *MockReplayParser) ParseOSR(raw []byte) (*replay_entity.ParsedReplay, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replay_entity.ParsedReplay), args.Error(1)
}

func (m *MockReplayParser) ParseLZMA(lzmaBytes []byte) ([]replay_entity.Frame, error) {
	args := m.Called(lzmaBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]replay_entity.Frame), args.Error(1)
}

func (m *MockReplayParser) ParseFrameText(frameText []byte) ([]replay_entity.Frame, error) {
	args := m.Called(frameText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]replay_entity.Frame), args.Error(1)
}

// =============================================================================
// Test Helpers
// =============================================================================

func scoreRow(scoreID, userID string) replay_out.ScoreRow {
	return replay_out.ScoreRow{
		ScoreID:         scoreID,
		Score:           "72727272",
		Username:        "whitecat",
		UserID:          userID,
		Count300:        "1200",
		Count100:        "12",
		Count50:         "1",
		CountMiss:       "0",
		MaxCombo:        "1700",
		Perfect:         "1",
		EnabledMods:     "24",
		Date:            "2020-05-01 12:00:00",
		PP:              "727.27",
		ReplayAvailable: "1",
	}
}

func testFrames() []replay_entity.Frame {
	return []replay_entity.Frame{{TimeDelta: -1}, {TimeDelta: 16, X: 1, Y: 1}}
}

// =============================================================================
// Business Scenario Tests
// =============================================================================

// TestScenario_ReplayInfoConvertsScoreRow tests the string row to typed info
// conversion.
func TestScenario_ReplayInfoConvertsScoreRow(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)
	api.On("GetScoresUser", ctx, 1988753, 2757689, -1).
		Return([]replay_out.ScoreRow{scoreRow("2801164636", "2757689")}, nil)

	l := loader.New(api, nil, new(MockReplayParser))
	info, err := l.ReplayInfo(ctx, 1988753, 2757689, nil)
	require.NoError(t, err)

	assert.Equal(t, 1988753, info.BeatmapID, "get_scores does not echo the beatmap id; the request value fills in")
	assert.Equal(t, 2757689, info.UserID)
	assert.Equal(t, int64(2801164636), info.ReplayID)
	assert.Equal(t, vo.ModHDHR, info.Mods)
	assert.Equal(t, "whitecat", info.Username)
	assert.True(t, info.ReplayAvailable)
	assert.InDelta(t, 727.27, info.PP, 1e-9)
	assert.Equal(t, 2020, info.Timestamp.Year())
}

func TestReplayInfo_NoScores(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)
	api.On("GetScoresUser", ctx, 1, 2, -1).Return([]replay_out.ScoreRow{}, nil)

	l := loader.New(api, nil, new(MockReplayParser))
	_, err := l.ReplayInfo(ctx, 1, 2, nil)
	require.Error(t, err)
	assert.True(t, common.IsNoInfoAvailableError(err))
}

// TestScenario_ReplayInfosSelectsBySpan tests leaderboard span selection.
func TestScenario_ReplayInfosSelectsBySpan(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)
	rows := []replay_out.ScoreRow{
		scoreRow("1", "11"), scoreRow("2", "22"), scoreRow("3", "33"), scoreRow("4", "44"),
	}
	api.On("GetScoresAll", ctx, 1988753, 4).Return(rows, nil)

	l := loader.New(api, nil, new(MockReplayParser))
	infos, err := l.ReplayInfos(ctx, 1988753, vo.MustSpan("1,3-4"), nil)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, int64(1), infos[0].ReplayID)
	assert.Equal(t, int64(3), infos[1].ReplayID)
	assert.Equal(t, int64(4), infos[2].ReplayID)
}

// TestScenario_ReplayDataPrefersCache tests the cache-first load path.
func TestScenario_ReplayDataPrefersCache(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)
	store := new(MockReplayStore)
	parser := new(MockReplayParser)

	frameText := []byte("0|1|1|0,16|2|2|0,")
	store.On("Check", ctx, int64(42)).Return(frameText, nil)
	parser.On("ParseFrameText", frameText).Return(testFrames(), nil)

	l := loader.New(api, store, parser)
	info := replay_entity.ReplayInfo{ReplayID: 42, BeatmapID: 1, UserID: 2, ReplayAvailable: true}
	frames, err := l.ReplayData(ctx, info, true)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
	api.AssertNotCalled(t, "GetReplay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestScenario_ReplayDataFetchesAndCaches tests the api path with caching.
func TestScenario_ReplayDataFetchesAndCaches(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)
	store := new(MockReplayStore)
	parser := new(MockReplayParser)

	lzmaBytes := []byte{0x5d, 0x00}
	info := replay_entity.ReplayInfo{ReplayID: 42, BeatmapID: 1, UserID: 2, Mods: vo.ModHidden, ReplayAvailable: true}
	store.On("Check", ctx, int64(42)).Return(nil, nil)
	api.On("GetReplay", ctx, 1, 2, int(vo.ModHidden)).Return(lzmaBytes, nil)
	store.On("Put", ctx, info, lzmaBytes).Return(nil)
	parser.On("ParseLZMA", lzmaBytes).Return(testFrames(), nil)

	l := loader.New(api, store, parser)
	frames, err := l.ReplayData(ctx, info, true)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
	store.AssertCalled(t, "Put", ctx, info, lzmaBytes)
}

// TestScenario_ReplayDataSkipsCacheWriteWhenDisabled tests cache=false.
func TestScenario_ReplayDataSkipsCacheWriteWhenDisabled(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)
	store := new(MockReplayStore)
	parser := new(MockReplayParser)

	lzmaBytes := []byte{0x5d, 0x00}
	info := replay_entity.ReplayInfo{ReplayID: 7, BeatmapID: 1, UserID: 2, ReplayAvailable: true}
	store.On("Check", ctx, int64(7)).Return(nil, nil)
	api.On("GetReplay", ctx, 1, 2, 0).Return(lzmaBytes, nil)
	parser.On("ParseLZMA", lzmaBytes).Return(testFrames(), nil)

	l := loader.New(api, store, parser)
	_, err := l.ReplayData(ctx, info, false)
	require.NoError(t, err)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

// TestScenario_UnavailableReplayYieldsNilFrames tests the data-less path.
func TestScenario_UnavailableReplayYieldsNilFrames(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)

	l := loader.New(api, nil, new(MockReplayParser))
	info := replay_entity.ReplayInfo{ReplayID: 7, ReplayAvailable: false}
	frames, err := l.ReplayData(ctx, info, false)
	require.NoError(t, err)
	assert.Nil(t, frames)

	// the api reporting the replay gone mid-load is also not an error
	api.On("GetReplay", ctx, 1, 2, 0).
		Return(nil, common.NewApiError(common.ApiErrorReplayUnavailable, "Replay not available.", nil))
	frames, err = l.ReplayData(ctx, replay_entity.ReplayInfo{ReplayID: 8, BeatmapID: 1, UserID: 2, ReplayAvailable: true}, false)
	require.NoError(t, err)
	assert.Nil(t, frames)
}

// TestScenario_LookupsAreMemoized tests the id lookup caches.
func TestScenario_LookupsAreMemoized(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)
	api.On("GetUsername", ctx, 2757689).Return("whitecat", nil).Once()
	api.On("GetUserID", ctx, "whitecat").Return(2757689, nil).Once()
	api.On("GetBeatmapID", ctx, "d7e1002824cb188bf318326aa109469d").Return(1988753, nil).Once()

	l := loader.New(api, nil, new(MockReplayParser))
	for i := 0; i < 3; i++ {
		username, err := l.Username(ctx, 2757689)
		require.NoError(t, err)
		assert.Equal(t, "whitecat", username)

		userID, err := l.UserID(ctx, "whitecat")
		require.NoError(t, err)
		assert.Equal(t, 2757689, userID)

		beatmapID, err := l.BeatmapID(ctx, "d7e1002824cb188bf318326aa109469d")
		require.NoError(t, err)
		assert.Equal(t, 1988753, beatmapID)
	}
	api.AssertExpectations(t)
}

func TestKeylessLoaderRejectsApiPaths(t *testing.T) {
	ctx := context.Background()
	l := loader.New(nil, nil, new(MockReplayParser))
	assert.False(t, l.HasAPI())

	_, err := l.ReplayInfo(ctx, 1, 2, nil)
	assert.True(t, common.IsNoLoaderError(err))
	_, err = l.Username(ctx, 1)
	assert.True(t, common.IsNoLoaderError(err))
	_, err = l.ReplayData(ctx, replay_entity.ReplayInfo{ReplayAvailable: true}, false)
	assert.True(t, common.IsNoLoaderError(err))
}

func TestUserBest_FiltersByModsAfterSpan(t *testing.T) {
	ctx := context.Background()
	api := new(MockApiClient)
	hdhr := scoreRow("1", "11")
	hdhr.BeatmapID = "100"
	nomod := scoreRow("2", "11")
	nomod.BeatmapID = "200"
	nomod.EnabledMods = "0"
	api.On("GetUserBest", ctx, 11, 2).Return([]replay_out.ScoreRow{hdhr, nomod}, nil)

	mods := vo.ModHDHR
	l := loader.New(api, nil, new(MockReplayParser))
	infos, err := l.UserBest(ctx, 11, vo.MustSpan("1-2"), &mods)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 100, infos[0].BeatmapID, "get_user_best rows carry their own beatmap id")
}
