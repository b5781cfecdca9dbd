package entities

import (
	common "github.com/osuguard/osuguard/pkg/domain"
)

// Order returns the two replays ordered by timestamp, earliest first. Both
// replays must carry a timestamp.
func Order(replay1, replay2 Replay) (earlier, later Replay, err error) {
	t1, t2 := replay1.Core().Timestamp, replay2.Core().Timestamp
	if t1.IsZero() || t2.IsZero() {
		return nil, nil, common.NewErrInvalidArgument(
			"both replays must provide a timestamp; replays without a timestamp cannot be ordered")
	}
	if t2.Before(t1) {
		return replay2, replay1, nil
	}
	return replay1, replay2, nil
}

// ReplayPairs returns the pairs of replays to compare to cover all cases of
// replay stealing. With only replays, every replay is paired with every
// other exactly once. With replays2, every replay of replays is paired with
// every replay of replays2, and replays are not paired among themselves.
func ReplayPairs(replays, replays2 []Replay) [][2]Replay {
	var pairs [][2]Replay
	if len(replays2) == 0 {
		for i := 0; i < len(replays); i++ {
			for j := i + 1; j < len(replays); j++ {
				pairs = append(pairs, [2]Replay{replays[i], replays[j]})
			}
		}
		return pairs
	}
	for _, a := range replays {
		for _, b := range replays2 {
			pairs = append(pairs, [2]Replay{a, b})
		}
	}
	return pairs
}
