package replay_out

import (
	"context"

	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
)

// ReplayStore is the persistent replay-data cache, keyed by replay id. The
// store compresses lossily on the way in; Check returns the decoded frame
// stream of the cached replay, ready for normalization.
type ReplayStore interface {
	// Check returns the cached frames for a replay id, or nil when the
	// replay is not cached.
	Check(ctx context.Context, replayID int64) ([]byte, error)
	// Put caches a replay's raw lzma stream under its replay info. A no-op
	// when the store was constructed with caching disabled.
	Put(ctx context.Context, info replay_entity.ReplayInfo, lzmaBytes []byte) error
	// DecodeBlob decodes a lossy-compressed blob, as sampled from the store,
	// back into the frame text consumed by the parser's pure-lzma mode.
	DecodeBlob(blob []byte) ([]byte, error)
}

// ReplayParser decodes osr data. ParseOSR handles a complete .osr file;
// ParseLZMA a bare lzma replay-data stream, as returned by the api;
// ParseFrameText an already decompressed frame stream.
type ReplayParser interface {
	ParseOSR(raw []byte) (*replay_entity.ParsedReplay, error)
	ParseLZMA(lzmaBytes []byte) ([]replay_entity.Frame, error)
	ParseFrameText(frameText []byte) ([]replay_entity.Frame, error)
}
