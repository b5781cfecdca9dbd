package loader

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	common "github.com/osuguard/osuguard/pkg/domain"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	replay_out "github.com/osuguard/osuguard/pkg/domain/replay/ports/out"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// apiDateLayout is how the api v1 formats score dates (UTC).
const apiDateLayout = "2006-01-02 15:04:05"

// Loader orchestrates the api client, the replay cache and the osr parser
// into the two-phase load every loadable goes through: a cheap info fetch,
// then the heavy replay-data fetch. Id lookups (username, user id, beatmap
// id) are memoized for the lifetime of the loader.
//
// api may be nil, giving a keyless loader that can only serve local and
// cached replays. store may be nil, disabling the cache entirely.
type Loader struct {
	api    replay_out.ApiClient
	store  replay_out.ReplayStore
	parser replay_out.ReplayParser

	mu         sync.Mutex
	usernames  map[int]string
	userIDs    map[string]int
	beatmapIDs map[string]int
}

var _ replay_entity.Loader = (*Loader)(nil)

func New(api replay_out.ApiClient, store replay_out.ReplayStore, parser replay_out.ReplayParser) *Loader {
	return &Loader{
		api:        api,
		store:      store,
		parser:     parser,
		usernames:  map[int]string{},
		userIDs:    map[string]int{},
		beatmapIDs: map[string]int{},
	}
}

// HasAPI reports whether the loader can reach the api at all.
func (l *Loader) HasAPI() bool {
	return l.api != nil
}

func (l *Loader) requireAPI(operation string) error {
	if l.api == nil {
		return common.NewErrNoLoader(operation)
	}
	return nil
}

// ReplayInfo fetches the info for user_id's score on beatmap_id, the top
// score unless mods pins an exact combination.
func (l *Loader) ReplayInfo(ctx context.Context, beatmapID, userID int, mods *vo.Mod) (replay_entity.ReplayInfo, error) {
	if err := l.requireAPI("fetching replay info"); err != nil {
		return replay_entity.ReplayInfo{}, err
	}
	rows, err := l.api.GetScoresUser(ctx, beatmapID, userID, modsParam(mods))
	if err != nil {
		return replay_entity.ReplayInfo{}, err
	}
	if len(rows) == 0 {
		return replay_entity.ReplayInfo{}, common.NewErrNoInfoAvailable("score", "user", userID)
	}
	return toReplayInfo(rows[0], beatmapID)
}

// ReplayInfos fetches the leaderboard of a map and keeps the rows selected
// by span.
func (l *Loader) ReplayInfos(ctx context.Context, beatmapID int, span vo.Span, mods *vo.Mod) ([]replay_entity.ReplayInfo, error) {
	if err := l.requireAPI("fetching leaderboard info"); err != nil {
		return nil, err
	}
	if len(span) == 0 {
		return nil, common.NewErrInvalidArgument("an empty span selects no scores")
	}
	rows, err := l.api.GetScoresAll(ctx, beatmapID, maxInt(2, span.Max()))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NewErrNoInfoAvailable("leaderboard", "beatmap", beatmapID)
	}

	infos := make([]replay_entity.ReplayInfo, 0, len(span))
	for i, row := range rows {
		if !span.Contains(i + 1) {
			continue
		}
		if mods != nil {
			rowMods, err := strconv.Atoi(row.EnabledMods)
			if err != nil || vo.Mod(rowMods) != *mods {
				continue
			}
		}
		info, err := toReplayInfo(row, beatmapID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ReplayInfosUser fetches all of a user's scores on a map.
func (l *Loader) ReplayInfosUser(ctx context.Context, beatmapID, userID int, span vo.Span) ([]replay_entity.ReplayInfo, error) {
	if err := l.requireAPI("fetching user score info"); err != nil {
		return nil, err
	}
	rows, err := l.api.GetScoresUser(ctx, beatmapID, userID, -1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NewErrNoInfoAvailable("score", "user", userID)
	}
	infos := make([]replay_entity.ReplayInfo, 0, len(rows))
	for i, row := range rows {
		if !span.Contains(i + 1) {
			continue
		}
		info, err := toReplayInfo(row, beatmapID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// UserBest fetches a user's top scores by pp, keeping the rows selected by
// span, restricted to an exact mod combination when mods is given.
func (l *Loader) UserBest(ctx context.Context, userID int, span vo.Span, mods *vo.Mod) ([]replay_entity.ReplayInfo, error) {
	if err := l.requireAPI("fetching user bests"); err != nil {
		return nil, err
	}
	if len(span) == 0 {
		return nil, common.NewErrInvalidArgument("an empty span selects no scores")
	}
	rows, err := l.api.GetUserBest(ctx, userID, maxInt(2, span.Max()))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NewErrNoInfoAvailable("best scores", "user", userID)
	}
	infos := make([]replay_entity.ReplayInfo, 0, len(span))
	for i, row := range rows {
		if !span.Contains(i + 1) {
			continue
		}
		info, err := toReplayInfo(row, 0)
		if err != nil {
			return nil, err
		}
		if mods != nil && info.Mods != *mods {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ReplayData fetches the frames for a score: from the cache when the replay
// is there, from the api otherwise. Api-fetched data is persisted when cache
// is set. A score whose replay the api withholds yields nil frames and no
// error; callers surface that as a loaded, data-less replay.
func (l *Loader) ReplayData(ctx context.Context, info replay_entity.ReplayInfo, cache bool) ([]replay_entity.Frame, error) {
	if !info.ReplayAvailable {
		slog.DebugContext(ctx, "replay data not available, not loading", "replay_id", info.ReplayID)
		return nil, nil
	}

	if l.store != nil {
		cached, err := l.store.Check(ctx, info.ReplayID)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return l.parser.ParseFrameText(cached)
		}
	}

	if err := l.requireAPI("fetching replay data"); err != nil {
		return nil, err
	}
	requestID := uuid.New()
	slog.DebugContext(ctx, "fetching replay data from api",
		"request_id", requestID, "beatmap_id", info.BeatmapID, "user_id", info.UserID)

	lzmaBytes, err := l.api.GetReplay(ctx, info.BeatmapID, info.UserID, int(info.Mods))
	if err != nil {
		if common.IsReplayUnavailableError(err) {
			return nil, nil
		}
		return nil, err
	}

	if cache && l.store != nil {
		if err := l.store.Put(ctx, info, lzmaBytes); err != nil {
			// a failed cache write must not fail the load
			slog.WarnContext(ctx, "failed to cache replay", "request_id", requestID, "error", err)
		}
	}
	return l.parser.ParseLZMA(lzmaBytes)
}

// ReplayDataByID fetches the frames of a replay by its id alone. The api
// offers no info endpoint for ids, so no caching key metadata is available
// unless the replay is already cached.
func (l *Loader) ReplayDataByID(ctx context.Context, replayID int64, cache bool) ([]replay_entity.Frame, error) {
	if l.store != nil {
		cached, err := l.store.Check(ctx, replayID)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return l.parser.ParseFrameText(cached)
		}
	}
	if err := l.requireAPI("fetching replay data by id"); err != nil {
		return nil, err
	}
	lzmaBytes, err := l.api.GetReplayByID(ctx, replayID)
	if err != nil {
		if common.IsReplayUnavailableError(err) {
			return nil, nil
		}
		return nil, err
	}
	return l.parser.ParseLZMA(lzmaBytes)
}

// Username resolves a user id to the current username, memoized.
func (l *Loader) Username(ctx context.Context, userID int) (string, error) {
	l.mu.Lock()
	if username, ok := l.usernames[userID]; ok {
		l.mu.Unlock()
		return username, nil
	}
	l.mu.Unlock()

	if err := l.requireAPI("resolving a username"); err != nil {
		return "", err
	}
	username, err := l.api.GetUsername(ctx, userID)
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	l.usernames[userID] = username
	l.mu.Unlock()
	return username, nil
}

// UserID resolves a username to the user id, memoized.
func (l *Loader) UserID(ctx context.Context, username string) (int, error) {
	l.mu.Lock()
	if userID, ok := l.userIDs[username]; ok {
		l.mu.Unlock()
		return userID, nil
	}
	l.mu.Unlock()

	if err := l.requireAPI("resolving a user id"); err != nil {
		return 0, err
	}
	userID, err := l.api.GetUserID(ctx, username)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	l.userIDs[username] = userID
	l.mu.Unlock()
	return userID, nil
}

// BeatmapID resolves a beatmap hash to the beatmap id, memoized.
func (l *Loader) BeatmapID(ctx context.Context, beatmapHash string) (int, error) {
	l.mu.Lock()
	if beatmapID, ok := l.beatmapIDs[beatmapHash]; ok {
		l.mu.Unlock()
		return beatmapID, nil
	}
	l.mu.Unlock()

	if err := l.requireAPI("resolving a beatmap id"); err != nil {
		return 0, err
	}
	beatmapID, err := l.api.GetBeatmapID(ctx, beatmapHash)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	l.beatmapIDs[beatmapHash] = beatmapID
	l.mu.Unlock()
	return beatmapID, nil
}

// ParseOSR decodes a complete osr file through the parser port.
func (l *Loader) ParseOSR(raw []byte) (*replay_entity.ParsedReplay, error) {
	return l.parser.ParseOSR(raw)
}

// DecodeCachedFrames decodes a lossy-compressed cache blob into frames.
func (l *Loader) DecodeCachedFrames(blob []byte) ([]replay_entity.Frame, error) {
	if l.store == nil {
		return nil, common.NewErrInvalidArgument("no replay store configured to decode cached replays")
	}
	frameText, err := l.store.DecodeBlob(blob)
	if err != nil {
		return nil, err
	}
	return l.parser.ParseFrameText(frameText)
}

func modsParam(mods *vo.Mod) int {
	if mods == nil {
		return -1
	}
	return int(*mods)
}

// toReplayInfo converts an api score row to a typed ReplayInfo. beatmapID
// fills in for listings that do not echo the beatmap id back.
func toReplayInfo(row replay_out.ScoreRow, beatmapID int) (replay_entity.ReplayInfo, error) {
	timestamp, err := time.Parse(apiDateLayout, row.Date)
	if err != nil {
		return replay_entity.ReplayInfo{}, common.NewErrInvalidArgumentf("malformed score date %q", row.Date)
	}
	if row.BeatmapID != "" {
		if beatmapID, err = strconv.Atoi(row.BeatmapID); err != nil {
			return replay_entity.ReplayInfo{}, common.NewErrInvalidArgumentf("malformed beatmap id %q", row.BeatmapID)
		}
	}
	userID, err := strconv.Atoi(row.UserID)
	if err != nil {
		return replay_entity.ReplayInfo{}, common.NewErrInvalidArgumentf("malformed user id %q", row.UserID)
	}
	replayID, err := strconv.ParseInt(row.ScoreID, 10, 64)
	if err != nil {
		return replay_entity.ReplayInfo{}, common.NewErrInvalidArgumentf("malformed score id %q", row.ScoreID)
	}
	mods, err := strconv.Atoi(row.EnabledMods)
	if err != nil {
		return replay_entity.ReplayInfo{}, common.NewErrInvalidArgumentf("malformed mods %q", row.EnabledMods)
	}
	score, err := strconv.ParseInt(row.Score, 10, 64)
	if err != nil {
		return replay_entity.ReplayInfo{}, common.NewErrInvalidArgumentf("malformed score %q", row.Score)
	}

	pp := 0.0
	if row.PP != "" {
		// pp is null for loved maps; tolerate its absence
		pp, _ = strconv.ParseFloat(row.PP, 64)
	}

	return replay_entity.ReplayInfo{
		Timestamp:       timestamp,
		BeatmapID:       beatmapID,
		UserID:          userID,
		Username:        row.Username,
		ReplayID:        replayID,
		Mods:            vo.Mod(mods),
		ReplayAvailable: row.ReplayAvailable == "1",
		Count300:        atoiOrZero(row.Count300),
		Count100:        atoiOrZero(row.Count100),
		Count50:         atoiOrZero(row.Count50),
		CountGeki:       atoiOrZero(row.CountGeki),
		CountKatu:       atoiOrZero(row.CountKatu),
		CountMiss:       atoiOrZero(row.CountMiss),
		Score:           score,
		MaxCombo:        atoiOrZero(row.MaxCombo),
		Perfect:         row.Perfect == "1",
		PP:              pp,
	}, nil
}

func atoiOrZero(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
