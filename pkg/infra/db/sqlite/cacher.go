// Package sqlite implements the replay cache on a single-file sqlite
// database. Replay data is stored lossily recompressed; see the wtc package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	replay_out "github.com/osuguard/osuguard/pkg/domain/replay/ports/out"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
	"github.com/osuguard/osuguard/pkg/infra/metrics"
	"github.com/osuguard/osuguard/pkg/infra/wtc"
)

const schema = `
CREATE TABLE IF NOT EXISTS REPLAYS(
  MAP_ID INTEGER NOT NULL,
  USER_ID INTEGER NOT NULL,
  REPLAY_DATA BLOB NOT NULL,
  REPLAY_ID INTEGER NOT NULL PRIMARY KEY,
  MODS INTEGER NOT NULL);
CREATE INDEX IF NOT EXISTS lookup_index ON REPLAYS(MAP_ID, USER_ID, MODS);
`

// Cacher stores compressed replay data keyed by replay id. The database is
// used through database/sql's pool, which is not capped at one connection;
// writes are serialized behind a mutex, reads are not.
type Cacher struct {
	db          *sql.DB
	shouldCache bool

	mu sync.Mutex
}

var _ replay_out.ReplayStore = (*Cacher)(nil)
var _ replay_entity.ReplaySampler = (*Cacher)(nil)

// NewCacher opens (creating if missing) the cache database at path. With
// shouldCache false the cache still serves reads but Put becomes a no-op.
func NewCacher(path string, shouldCache bool) (*Cacher, error) {
	slog.Info("opening replay cache", "path", path, "should_cache", shouldCache)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &Cacher{db: db, shouldCache: shouldCache}, nil
}

func (c *Cacher) Close() error {
	return c.db.Close()
}

// Check returns the decompressed frame text of a cached replay, nil when the
// replay is not cached.
func (c *Cacher) Check(ctx context.Context, replayID int64) ([]byte, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT REPLAY_DATA FROM REPLAYS WHERE REPLAY_ID = ?", replayID).Scan(&blob)
	if err == sql.ErrNoRows {
		metrics.ReplayCacheMissTotal.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	metrics.ReplayCacheHitTotal.Inc()
	slog.DebugContext(ctx, "replay cache hit", "replay_id", replayID)
	return wtc.Decompress(blob, true)
}

// Put caches a replay's raw lzma stream, compressed lossily, replacing any
// existing entry for the same replay id.
func (c *Cacher) Put(ctx context.Context, info replay_entity.ReplayInfo, lzmaBytes []byte) error {
	if !c.shouldCache {
		slog.DebugContext(ctx, "caching disabled, not caching replay", "replay_id", info.ReplayID)
		return nil
	}
	compressed, err := wtc.Compress(lzmaBytes)
	if err != nil {
		return fmt.Errorf("compressing replay for cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO REPLAYS(MAP_ID, USER_ID, REPLAY_DATA, REPLAY_ID, MODS) VALUES(?, ?, ?, ?, ?)",
		info.BeatmapID, info.UserID, compressed, info.ReplayID, int(info.Mods))
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// DecodeBlob decompresses a blob sampled straight out of the store.
func (c *Cacher) DecodeBlob(blob []byte) ([]byte, error) {
	return wtc.Decompress(blob, true)
}

// SampleCachedReplays picks numMaps distinct map ids uniformly at random and
// returns up to numMaps*numReplays rows from those maps.
func (c *Cacher) SampleCachedReplays(ctx context.Context, numMaps, numReplays int) ([]replay_entity.CachedReplayRow, error) {
	mapRows, err := c.db.QueryContext(ctx,
		"SELECT DISTINCT MAP_ID FROM REPLAYS ORDER BY RANDOM() LIMIT ?", numMaps)
	if err != nil {
		return nil, fmt.Errorf("sampling cached maps: %w", err)
	}
	defer mapRows.Close()

	var mapIDs []interface{}
	for mapRows.Next() {
		var mapID int
		if err := mapRows.Scan(&mapID); err != nil {
			return nil, err
		}
		mapIDs = append(mapIDs, mapID)
	}
	if err := mapRows.Err(); err != nil {
		return nil, err
	}
	if len(mapIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		"SELECT USER_ID, MAP_ID, REPLAY_DATA, REPLAY_ID, MODS FROM REPLAYS WHERE MAP_ID IN (?%s) LIMIT ?",
		strings.Repeat(",?", len(mapIDs)-1))
	args := append(mapIDs, numMaps*numReplays)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sampling cached replays: %w", err)
	}
	defer rows.Close()

	var sampled []replay_entity.CachedReplayRow
	for rows.Next() {
		var row replay_entity.CachedReplayRow
		var mods int
		if err := rows.Scan(&row.UserID, &row.BeatmapID, &row.Blob, &row.ReplayID, &mods); err != nil {
			return nil, err
		}
		row.Mods = vo.Mod(mods)
		sampled = append(sampled, row)
	}
	return sampled, rows.Err()
}
