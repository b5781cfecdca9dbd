package analysis

import (
	"math"

	"github.com/golang/geo/r2"

	common "github.com/osuguard/osuguard/pkg/domain"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

// Sliderbug cutoffs. The 2019 notelock patch shipped to cutting edge a month
// before stable; which cutoff applies depends on how much we know about the
// replay's version.
//
// https://osu.ppy.sh/home/changelog/stable40/20190207.2
// https://osu.ppy.sh/home/changelog/cuttingedge/20190111
var (
	VersionSliderbugFixedStable      = vo.NewGameVersion(20190207, true)
	VersionSliderbugFixedCuttingEdge = vo.NewGameVersion(20190111, true)
)

// hitWindowMiss is the window before an object during which a press locks
// onto it and registers as a miss.
const hitWindowMiss = 400

// JudgmentType classifies what a hitobject scored.
type JudgmentType int

const (
	JudgmentHit300 JudgmentType = iota
	JudgmentHit100
	JudgmentHit50
	JudgmentMiss
)

func (t JudgmentType) String() string {
	switch t {
	case JudgmentHit300:
		return "300"
	case JudgmentHit100:
		return "100"
	case JudgmentHit50:
		return "50"
	default:
		return "miss"
	}
}

// Judgment is the verdict on one hitobject: a hit with its press time and
// position, or a miss. Time and Pos are only meaningful for hits.
type Judgment struct {
	Hitobject Hitobject
	Type      JudgmentType
	Time      int64
	Pos       r2.Point
}

// IsHit reports whether the judgment is a hit of any quality.
func (j Judgment) IsHit() bool {
	return j.Type != JudgmentMiss
}

// Error is how many milliseconds the press was off from a perfectly timed
// hit. Negative means early, positive late.
func (j Judgment) Error() int64 {
	return j.Time - j.Hitobject.Time
}

// DistanceToCenter is the distance from the press to the center of the
// hitobject.
func (j Judgment) DistanceToCenter() float64 {
	return j.Pos.Sub(j.Hitobject.Pos).Norm()
}

// DistanceToEdge is the distance from the press to the edge of the
// hitobject.
func (j Judgment) DistanceToEdge() float64 {
	return math.Abs(j.DistanceToCenter() - j.Hitobject.Radius)
}

// Within reports whether the press was within distance of the edge of its
// hitobject.
func (j Judgment) Within(distance float64) bool {
	return j.DistanceToEdge() < distance
}

// keydownFrame is a press event eligible to hit a hitobject.
type keydownFrame struct {
	t   int64
	pos r2.Point
}

// keydownFrames extracts the frames of a replay with a keydown event. A frame
// where both keys went down at once counts as two presses, so it appears
// twice.
func keydownFrames(replay *replay_entity.ReplayCore) []keydownFrame {
	var frames []keydownFrame
	for i, keydown := range replay.Keydowns() {
		if keydown == 0 {
			continue
		}
		frame := keydownFrame{t: replay.T[i], pos: replay.XY[i]}
		frames = append(frames, frame)
		if keydown == int64(vo.KeyMask) {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Judgments determines where the replay hit or missed each hitobject of the
// beatmap, and with what quality, replicating stable's notelock semantics on
// both sides of the sliderbug fix.
//
// Hitobjects are scanned linearly; maps with overlapping hitobjects (2B) are
// judged by the same scan and can diverge from stable there.
func Judgments(replay *replay_entity.ReplayCore, beatmap Beatmap) ([]Judgment, error) {
	if !replay.HasData() {
		return nil, common.NewErrNoReplayData(replay.String())
	}

	fixed := sliderbugFixed(replay.GameVersion)

	mods := replay.ModsOrZero()
	easy := mods.Contains(vo.ModEasy)
	hardRock := mods.Contains(vo.ModHardRock)

	hitobjs := scaledHitobjects(beatmap, easy, hardRock)
	od := beatmap.OD(easy, hardRock)
	hw50, hw100, hw300 := HitWindows(od)
	hitradius := HitRadius(beatmap.CS(easy, hardRock))

	keydowns := keydownFrames(replay)

	var judgments []Judgment
	hitobjHit := make([]bool, len(hitobjs))

	hitobjI := 0
	keydownI := 0

	for hitobjI < len(hitobjs) && keydownI < len(keydowns) {
		hitobj := hitobjs[hitobjI]
		kd := keydowns[keydownI]

		var hitobjEnd int64
		if hitobj.Kind == KindCircle {
			hitobjEnd = hitobj.Time + hw50
		} else {
			hitobjEnd = hitobj.EndTime
		}

		var notelockEnd int64
		if !fixed {
			// before the fix, notelock ended after the 50 window, except
			// sliders and spinners release earlier if they end earlier
			notelockEnd = hitobj.Time + hw50
			if hitobj.Kind != KindCircle && hitobjEnd < notelockEnd {
				notelockEnd = hitobjEnd
			}
		} else {
			// after the fix, notelock ends with the object, plus a 1ms tail
			// on circles (from testing)
			notelockEnd = hitobjEnd
			if hitobj.Kind == KindCircle {
				notelockEnd++
			}
		}

		switch {
		case kd.t < hitobj.Time-hitWindowMiss:
			// presses this early cannot interact with the object
			keydownI++

		case kd.t <= hitobj.Time-hw50:
			// pressing on a circle or slider inside the miss window causes a
			// miss
			if kd.pos.Sub(hitobj.Pos).Norm() <= hitradius && hitobj.Kind != KindSpinner {
				keydownI = advancePastNotelock(keydowns, keydownI, hitobj.Kind, fixed, notelockEnd)
				hitobjI++
			} else {
				keydownI++
			}

		case kd.t >= notelockEnd:
			// the object can no longer be interacted with
			hitobjI++

		default:
			if kd.t < hitobj.Time+hw50 &&
				kd.pos.Sub(hitobj.Pos).Norm() <= hitradius &&
				hitobj.Kind != KindSpinner {

				var hitType JudgmentType
				diff := float64(absInt64(kd.t - hitobj.Time))
				switch {
				// sliderheads are 300s no matter how early or late
				case hitobj.Kind == KindSlider:
					hitType = JudgmentHit300
				case diff < hw300:
					hitType = JudgmentHit300
				case diff < hw100:
					hitType = JudgmentHit100
				default:
					hitType = JudgmentHit50
				}

				judgments = append(judgments, Judgment{
					Hitobject: hitobj,
					Type:      hitType,
					Time:      kd.t,
					Pos:       kd.pos,
				})
				hitobjHit[hitobjI] = true

				keydownI = advancePastNotelock(keydowns, keydownI, hitobj.Kind, fixed, notelockEnd)
				hitobjI++
			} else {
				keydownI++
			}
		}
	}

	// every object never hit is a miss, except spinners, which are not judged
	for i, hit := range hitobjHit {
		if !hit && hitobjs[i].Kind != KindSpinner {
			judgments = append(judgments, Judgment{Hitobject: hitobjs[i], Type: JudgmentMiss})
		}
	}
	return judgments, nil
}

// Hits returns only the hit judgments of a replay against a beatmap.
func Hits(replay *replay_entity.ReplayCore, beatmap Beatmap) ([]Judgment, error) {
	judgments, err := Judgments(replay, beatmap)
	if err != nil {
		return nil, err
	}
	hits := make([]Judgment, 0, len(judgments))
	for _, j := range judgments {
		if j.IsHit() {
			hits = append(hits, j)
		}
	}
	return hits, nil
}

// advancePastNotelock advances the keydown pointer after a slider resolves.
// Sliders do not disappear after their head is pressed or missed, so with the
// sliderbug fixed every press before the notelock end still belongs to the
// slider.
func advancePastNotelock(keydowns []keydownFrame, keydownI int, kind HitobjectKind, sliderbugFixed bool, notelockEnd int64) int {
	if kind == KindSlider && sliderbugFixed {
		for keydownI < len(keydowns) && keydowns[keydownI].t < notelockEnd {
			keydownI++
		}
		return keydownI
	}
	return keydownI + 1
}

// sliderbugFixed decides which notelock semantics a replay was played under.
// Estimated versions resolve against the stable cutoff: being wrong for the
// few cutting-edge replays between the two cutoffs beats being wrong for all
// stable replays between them. An unknown version is assumed post-fix.
func sliderbugFixed(version vo.GameVersion) bool {
	if !version.Available() {
		return true
	}
	if !version.Concrete {
		return version.AtLeast(VersionSliderbugFixedStable)
	}
	return version.AtLeast(VersionSliderbugFixedCuttingEdge)
}

// scaledHitobjects stamps the CS-derived radius onto the map's hitobjects.
func scaledHitobjects(beatmap Beatmap, easy, hardRock bool) []Hitobject {
	radius := CircleRadius(beatmap.CS(easy, hardRock))
	hitobjs := beatmap.HitObjects(easy, hardRock)
	scaled := make([]Hitobject, len(hitobjs))
	for i, ho := range hitobjs {
		ho.Radius = radius
		scaled[i] = ho
	}
	return scaled
}
