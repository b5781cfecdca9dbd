package replay_vo

// Key is the bitmask of inputs pressed during a single replay frame.
type Key int64

const (
	KeyM1    Key = 1 << 0
	KeyM2    Key = 1 << 1
	KeyK1    Key = 1 << 2
	KeyK2    Key = 1 << 3
	KeySmoke Key = 1 << 4
)

// KeyMask selects only M1 and M2. K1 implies M1 and K2 implies M2 in replay
// files, so masking to the mouse bits avoids double counting presses.
const KeyMask = KeyM1 | KeyM2

// RatelimitWeight is how much it costs to load a replay from the api.
type RatelimitWeight string

const (
	// RatelimitNone is for load paths making no api calls at all.
	RatelimitNone RatelimitWeight = "None"
	// RatelimitLight is for load paths making only light api calls
	// (anything but get_replay).
	RatelimitLight RatelimitWeight = "Light"
	// RatelimitHeavy is for load paths issuing get_replay calls, which the
	// api budgets much more aggressively.
	RatelimitHeavy RatelimitWeight = "Heavy"
)
