package analysis

import (
	"math"

	common "github.com/osuguard/osuguard/pkg/domain"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// Snap is a suspiciously sharp correction in a cursor path: the middle frame
// of three consecutive frames forming a very acute angle despite non-trivial
// distances on both legs.
type Snap struct {
	// Time of the middle frame, in ms from the start of the replay.
	Time int64
	// Angle between the three frames, in degrees.
	Angle float64
	// Distance is min(|ab|, |bc|) for the legs around the middle frame.
	Distance float64
}

// DefaultSnapMaxAngle and DefaultSnapMinDistance are the conventional
// detection parameters.
const (
	DefaultSnapMaxAngle    = 10.0
	DefaultSnapMinDistance = 8.0
)

// Snaps finds the points of a replay where the cursor snapped: the angle
// (a,b,c) fell under maxAngle while both |ab| and |bc| exceeded minDistance.
//
// With a beatmap, only snaps landing on a non-spinner hitobject — inside its
// radius, within its 50 window — are reported; corrections in open space are
// not evidence of assistance.
//
// Corrections that place several frames at the snap site hide behind a small
// leg distance and are not detected.
func Snaps(replay *replay_entity.ReplayCore, maxAngle, minDistance float64, beatmap Beatmap) ([]Snap, error) {
	if !replay.HasData() {
		return nil, common.NewErrNoReplayData(replay.String())
	}

	// repeated time values show up as false positives, so drop them
	t, xy := removeDuplicateT(replay.T, replay.XY)

	mods := replay.ModsOrZero()
	easy := mods.Contains(vo.ModEasy)
	hardRock := mods.Contains(vo.ModHardRock)

	var hitobjs []Hitobject
	var hw50 int64
	if beatmap != nil {
		hitobjs = scaledHitobjects(beatmap, easy, hardRock)
		hw50 = HitWindow50(beatmap.OD(easy, hardRock))
	}

	var snaps []Snap
	for i := 1; i < len(xy)-1; i++ {
		a, b, c := xy[i-1], xy[i], xy[i+1]

		ab := b.Sub(a).Norm()
		bc := c.Sub(b).Norm()
		ac := c.Sub(a).Norm()

		minLeg := minFloat(ab, bc)
		if minLeg <= minDistance {
			continue
		}

		// law of cosines:
		// AC^2 = AB^2 + BC^2 - 2*AB*BC*cos(beta)
		denom := 2 * ab * bc
		if denom == 0 {
			continue
		}
		cosBeta := -(ac*ac - ab*ab - bc*bc) / denom
		// rounding can push cosBeta just outside acos' domain
		cosBeta = math.Max(-1, math.Min(1, cosBeta))
		beta := math.Acos(cosBeta) * 180 / math.Pi

		if beta >= maxAngle {
			continue
		}

		if beatmap != nil {
			if len(hitobjs) == 0 {
				continue
			}
			hitobj := closestHitobject(hitobjs, t[i])
			if hitobj.Kind == KindSpinner {
				continue
			}
			insidePos := b.Sub(hitobj.Pos).Norm() <= hitobj.Radius
			insideT := hitobj.Time-hw50 < t[i] && t[i] < hitobj.Time+hw50
			if !insidePos || !insideT {
				continue
			}
		}

		snaps = append(snaps, Snap{Time: t[i], Angle: beta, Distance: minLeg})
	}
	return snaps, nil
}
