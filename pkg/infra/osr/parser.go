// Package osr adapts the rplpa osr decoder to the replay parser port, and
// decodes the bare frame streams that come out of the api and the cache.
package osr

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/itchio/lzma"
	"github.com/wieku/rplpa"

	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	replay_out "github.com/osuguard/osuguard/pkg/domain/replay/ports/out"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// seedFrameDelta marks the trailing pseudo-frame carrying the score's rng
// seed instead of cursor data.
const seedFrameDelta = -12345

type Parser struct{}

var _ replay_out.ReplayParser = Parser{}

func NewParser() Parser {
	return Parser{}
}

// ParseOSR decodes a complete .osr file.
func (Parser) ParseOSR(raw []byte) (*replay_entity.ParsedReplay, error) {
	decoded, err := rplpa.ParseReplay(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing osr file: %w", err)
	}

	parsed := &replay_entity.ParsedReplay{
		Mode:        int(decoded.PlayMode),
		GameVersion: int(decoded.OsuVersion),
		BeatmapHash: decoded.BeatmapMD5,
		Username:    decoded.Username,
		ReplayHash:  decoded.ReplayMD5,
		Count300:    int(decoded.Count300),
		Count100:    int(decoded.Count100),
		Count50:     int(decoded.Count50),
		CountGeki:   int(decoded.CountGeki),
		CountKatu:   int(decoded.CountKatu),
		CountMiss:   int(decoded.CountMiss),
		Score:       int64(decoded.Score),
		MaxCombo:    int(decoded.MaxCombo),
		Perfect:     decoded.Fullcombo,
		Mods:        vo.Mod(decoded.Mods),
		Timestamp:   decoded.Timestamp,
		ReplayID:    decoded.ScoreID,
	}

	if decoded.ReplayData != nil {
		parsed.HasFrames = true
		parsed.Frames = convertFrames(decoded.ReplayData)
	}
	return parsed, nil
}

// ParseLZMA decodes a bare lzma replay-data stream, as returned by
// get_replay.
func (p Parser) ParseLZMA(lzmaBytes []byte) ([]replay_entity.Frame, error) {
	r := lzma.NewReader(bytes.NewReader(lzmaBytes))
	defer r.Close()
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decoding replay lzma stream: %w", err)
	}
	return p.ParseFrameText(text)
}

// ParseFrameText decodes an already decompressed "w|x|y|z," frame stream.
func (Parser) ParseFrameText(frameText []byte) ([]replay_entity.Frame, error) {
	var frames []replay_entity.Frame
	for _, segment := range strings.Split(string(frameText), ",") {
		if segment == "" {
			continue
		}
		parts := strings.Split(segment, "|")
		if len(parts) != 4 {
			return nil, fmt.Errorf("malformed replay frame %q", segment)
		}
		timeDelta, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed replay frame %q: %w", segment, err)
		}
		if timeDelta == seedFrameDelta {
			continue
		}
		x, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed replay frame %q: %w", segment, err)
		}
		y, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed replay frame %q: %w", segment, err)
		}
		keys, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed replay frame %q: %w", segment, err)
		}
		frames = append(frames, replay_entity.Frame{TimeDelta: timeDelta, X: x, Y: y, Keys: keys})
	}
	return frames, nil
}

// convertFrames maps rplpa frames onto domain frames, reconstructing the key
// bitmask and dropping the rng seed pseudo-frame (the decoder does not keep
// the raw seed value).
func convertFrames(data []*rplpa.ReplayData) []replay_entity.Frame {
	frames := make([]replay_entity.Frame, 0, len(data))
	for _, d := range data {
		if d.Time == seedFrameDelta {
			continue
		}
		frames = append(frames, replay_entity.Frame{
			TimeDelta: d.Time,
			X:         float64(d.MouseX),
			Y:         float64(d.MouseY),
			Keys:      keyBits(d.KeyPressed),
		})
	}
	return frames
}

func keyBits(kp *rplpa.KeyPressed) int64 {
	if kp == nil {
		return 0
	}
	var keys vo.Key
	if kp.LeftClick {
		keys |= vo.KeyM1
	}
	if kp.RightClick {
		keys |= vo.KeyM2
	}
	if kp.Key1 {
		keys |= vo.KeyK1
	}
	if kp.Key2 {
		keys |= vo.KeyK2
	}
	if kp.Smoke {
		keys |= vo.KeySmoke
	}
	return int64(keys)
}
