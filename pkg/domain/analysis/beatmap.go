package analysis

import (
	"github.com/golang/geo/r2"
)

// Playfield dimensions in osu!pixels.
const (
	PlayfieldWidth  = 512.0
	PlayfieldHeight = 384.0
)

// HitobjectKind discriminates the three osu!standard hitobject variants.
type HitobjectKind int

const (
	KindCircle HitobjectKind = iota
	KindSlider
	KindSpinner
)

// Hitobject is the analysis view of a beatmap hitobject: when and where it
// must be hit, how large it is, and when it stops accepting input. EndTime is
// meaningful for sliders and spinners only.
type Hitobject struct {
	Kind    HitobjectKind
	Time    int64
	Pos     r2.Point
	EndTime int64
	// Radius is the circle radius derived from CS after EZ/HR scaling.
	Radius float64
}

// Beatmap is what the analysis engine needs to know about a map. Parsing maps
// is out of scope here; implementations adapt whatever beatmap library the
// caller uses. Accessors take the difficulty-reducing and -raising flags so
// EZ/HR replays are judged against the parameters they were actually played
// with, with hitobject positions already mirrored for HR.
type Beatmap interface {
	HitObjects(easy, hardRock bool) []Hitobject
	OD(easy, hardRock bool) float64
	CS(easy, hardRock bool) float64
}

// HitWindow50 is the number of milliseconds before and after a hitobject's
// time where a press can register as a hit.
//
// Stable stores OD as a float32 and widens it to a double mid-formula, which
// shifts some windows by a millisecond once truncated. The round-trip is
// replicated so judgments match stable exactly.
func HitWindow50(od float64) int64 {
	return int64(150 + 50*(5-float64(float32(od)))/5)
}

// HitWindows returns the 50, 100 and 300 windows for an OD.
func HitWindows(od float64) (hw50 int64, hw100, hw300 float64) {
	return HitWindow50(od), (280 - 16*od) / 2, (160 - 12*od) / 2
}

// HitRadius is the distance from a hitobject's center within which a press
// registers, replicating stable's float32 arithmetic. The 1.00041 factor is a
// fitted constant: stable accepts presses very slightly outside the visual
// circle.
func HitRadius(cs float64) float64 {
	radius := float32(64 * (1.0 - float64(float32(0.7))*(float64(float32(cs))-5)/5) / 2)
	return float64(radius * float32(1.00041))
}

// CircleRadius is the visual circle radius for a CS, without stable's hit
// tolerance. This is the radius stamped on hitobjects.
func CircleRadius(cs float64) float64 {
	return 64 * (1 - 0.7*(cs-5)/5) / 2
}

// closestHitobject returns the hitobject whose time is nearest to t.
func closestHitobject(hitobjs []Hitobject, t int64) Hitobject {
	best := hitobjs[0]
	bestDiff := absInt64(best.Time - t)
	for _, ho := range hitobjs[1:] {
		if diff := absInt64(ho.Time - t); diff < bestDiff {
			best, bestDiff = ho, diff
		}
	}
	return best
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
