package entities

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/golang/geo/r2"

	common "github.com/osuguard/osuguard/pkg/domain"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// Frame is a single raw replay event as decoded from an osr stream: the time
// since the previous frame and the cursor state at that moment.
type Frame struct {
	TimeDelta int64
	X         float64
	Y         float64
	Keys      int64
}

// GameModeStd is the only ruleset the analysis engine understands.
const GameModeStd = 0

// ParsedReplay is the decoded form of an osr file, before normalization.
// Produced by the replay parser port.
type ParsedReplay struct {
	Mode         int
	GameVersion  int
	BeatmapHash  string
	Username     string
	ReplayHash   string
	Count300     int
	Count100     int
	Count50      int
	CountGeki    int
	CountKatu    int
	CountMiss    int
	Score        int64
	MaxCombo     int
	Perfect      bool
	Mods         vo.Mod
	LifeBarGraph string
	Timestamp    time.Time
	Frames       []Frame
	HasFrames    bool
	ReplayID     int64
	RNGSeed      int64
}

// ReplayCore holds the state shared by every replay source: score metadata
// and the normalized time series. A core starts unloaded; sources fill the
// metadata and call SetFrames when their data arrives.
//
// After a successful load, T is sorted ascending and T, XY and K all have
// equal length.
type ReplayCore struct {
	GameVersion  vo.GameVersion
	Timestamp    time.Time
	BeatmapID    int
	BeatmapHash  string
	Username     string
	UserID       int
	Mods         *vo.Mod // nil when the mods are unknown
	ReplayID     int64
	ReplayHash   string
	Count300     int
	Count100     int
	Count50      int
	CountGeki    int
	CountKatu    int
	CountMiss    int
	Score        int64
	MaxCombo     int
	Perfect      bool
	LifeBarGraph string
	RNGSeed      int64
	PP           float64
	Weight       vo.RatelimitWeight

	// T holds the timestamp of each frame in ms, XY the cursor position in
	// osu!pixels and K the pressed-key bitmask.
	T  []int64
	XY []r2.Point
	K  []int64

	keydowns []int64
	hasData  bool
	loaded   bool
}

// Loaded reports whether the replay finished loading.
func (c *ReplayCore) Loaded() bool {
	return c.loaded
}

// MarkLoaded transitions the core to the loaded state. Sources call this once
// their metadata and frames are in place.
func (c *ReplayCore) MarkLoaded() {
	c.loaded = true
}

// HasData reports whether the replay has any replay data. A loaded replay is
// not guaranteed to: the api withholds data for some scores.
func (c *ReplayCore) HasData() bool {
	return c.loaded && c.hasData
}

// HasMods reports whether the mods of this replay are known.
func (c *ReplayCore) HasMods() bool {
	return c.Mods != nil
}

// SetMods records a known mod combination.
func (c *ReplayCore) SetMods(mods vo.Mod) {
	c.Mods = &mods
}

// ModsOrZero returns the mods, or NoMod when they are unknown.
func (c *ReplayCore) ModsOrZero() vo.Mod {
	if c.Mods == nil {
		return vo.ModNoMod
	}
	return *c.Mods
}

// Keydowns returns, for each frame, the keys pressed in that frame that were
// not pressed in the previous frame, masked to M1|M2. Computed once and
// cached.
func (c *ReplayCore) Keydowns() []int64 {
	if !c.HasData() {
		return nil
	}
	if c.keydowns == nil {
		c.keydowns = make([]int64, len(c.K))
		prev := int64(0)
		for i, k := range c.K {
			pressed := k & int64(vo.KeyMask)
			c.keydowns[i] = pressed &^ prev
			prev = pressed
		}
	}
	return c.keydowns
}

// SetFrames normalizes the raw frame stream into the T/XY/K arrays,
// replicating stable's playback semantics.
//
// Replays saved after a skip start with one large positive delta followed by
// negative deltas winding time back to the true start; mid-replay negative
// sections are tolerated, with their frames dropped until time catches up
// again, and a synthetic interpolated frame inserted on the way out. Frames
// are finally stable-sorted by time so that equal timestamps keep their
// source order.
//
// A nil stream means the source had no data at all, which is recorded as
// data-less; an empty stream means the source claimed to have data but it was
// empty, which is an error.
func (c *ReplayCore) SetFrames(frames []Frame) error {
	if frames == nil {
		c.hasData = false
		return nil
	}
	if len(frames) == 0 {
		return common.NewErrInvalidArgument(
			"replay data was present but empty, which is indicative of a misbehaved replay")
	}

	// stable discards an invalid zero delta frame at the start of the stream
	if frames[0].TimeDelta == 0 {
		frames = frames[1:]
	}
	if len(frames) == 0 {
		return common.NewErrInvalidArgument("replay data contained only a zero time frame")
	}

	// The first frame seeds the running time but is not itself emitted. For
	// replays with an initial skip its delta is the skip duration; otherwise
	// it is -1.
	runningT := frames[0].TimeDelta
	highestRunningT := int64(math.MinInt64)

	var t []int64
	var xy []r2.Point
	var k []int64

	var lastPositiveFrame Frame
	var lastPositiveCumT int64
	previous := frames[0]

	for _, e := range frames[1:] {
		wasInNegativeSection := runningT < highestRunningT

		runningT += e.TimeDelta
		if runningT > highestRunningT {
			highestRunningT = runningT
		}

		if runningT < highestRunningT {
			// still (or newly) inside a negative section; drop the frame. If
			// this frame opened the section, the previous frame is the last
			// positive one and anchors the exit interpolation.
			if !wasInNegativeSection {
				lastPositiveFrame = previous
				lastPositiveCumT = runningT - e.TimeDelta
			}
			previous = e
			continue
		}

		if wasInNegativeSection {
			// this frame leaves the negative section. Stable inserts a frame
			// at the last positive time, its position interpolated between
			// the two frames straddling that time, holding the last positive
			// frame's keys.
			x0, x1 := runningT-e.TimeDelta, runningT
			t = append(t, lastPositiveCumT)
			xy = append(xy, r2.Point{
				X: interp(lastPositiveCumT, x0, x1, previous.X, e.X),
				Y: interp(lastPositiveCumT, x0, x1, previous.Y, e.Y),
			})
			k = append(k, lastPositiveFrame.Keys)
		}

		t = append(t, runningT)
		xy = append(xy, r2.Point{X: e.X, Y: e.Y})
		k = append(k, e.Keys)
		previous = e
	}

	order := make([]int, len(t))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return t[order[i]] < t[order[j]]
	})

	c.T = make([]int64, len(t))
	c.XY = make([]r2.Point, len(t))
	c.K = make([]int64, len(t))
	for i, src := range order {
		c.T[i] = t[src]
		c.XY[i] = xy[src]
		c.K[i] = k[src]
	}
	c.keydowns = nil
	c.hasData = true
	return nil
}

// interp linearly interpolates (x0,y0)..(x1,y1) at x, clamping outside the
// interval the way a degenerate interval would.
func interp(x, x0, x1 int64, y0, y1 float64) float64 {
	if x1 == x0 {
		return y1
	}
	ratio := float64(x-x0) / float64(x1-x0)
	return y0 + ratio*(y1-y0)
}

// FillFromParsed copies the metadata of a decoded osr file onto the core.
func (c *ReplayCore) FillFromParsed(parsed *ParsedReplay) {
	c.GameVersion = vo.NewGameVersion(parsed.GameVersion, true)
	c.BeatmapHash = parsed.BeatmapHash
	c.Username = parsed.Username
	c.ReplayHash = parsed.ReplayHash
	c.Count300 = parsed.Count300
	c.Count100 = parsed.Count100
	c.Count50 = parsed.Count50
	c.CountGeki = parsed.CountGeki
	c.CountKatu = parsed.CountKatu
	c.CountMiss = parsed.CountMiss
	c.Score = parsed.Score
	c.MaxCombo = parsed.MaxCombo
	c.Perfect = parsed.Perfect
	c.SetMods(parsed.Mods)
	c.LifeBarGraph = parsed.LifeBarGraph
	c.Timestamp = parsed.Timestamp
	c.ReplayID = parsed.ReplayID
	c.RNGSeed = parsed.RNGSeed
}

// FramesOrNil returns the parsed frames of a decoded replay, nil when the
// stream is absent or belongs to a ruleset the engine does not analyze.
func (p *ParsedReplay) FramesOrNil() []Frame {
	if !p.HasFrames || p.Mode != GameModeStd {
		return nil
	}
	return p.Frames
}

func (c *ReplayCore) String() string {
	return fmt.Sprintf("replay by %s on %d", c.Username, c.BeatmapID)
}
