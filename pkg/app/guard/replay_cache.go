package guard

import (
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	sqlite "github.com/osuguard/osuguard/pkg/infra/db/sqlite"
)

// OpenReplayCache opens the replay cache database at path and wraps it in a
// ReplayCache loadable sampling numMaps random maps with up to numReplays
// replays each. The underlying store is read-only for this purpose: sampled
// replays are never re-cached.
func OpenReplayCache(path string, numMaps, numReplays int) (*replay_entity.ReplayCache, error) {
	cacher, err := sqlite.NewCacher(path, false)
	if err != nil {
		return nil, err
	}
	return replay_entity.NewReplayCache(cacher, numMaps, numReplays), nil
}
