package replay_vo

import (
	"strings"

	common "github.com/osuguard/osuguard/pkg/domain"
)

// Mod is a combination of ingame osu! modifiers, as a bitset. The bit layout
// follows https://github.com/ppy/osu-api/wiki#mods.
type Mod int

const (
	ModNoMod       Mod = 0
	ModNoFail      Mod = 1 << 0
	ModEasy        Mod = 1 << 1
	ModTouchDevice Mod = 1 << 2
	ModHidden      Mod = 1 << 3
	ModHardRock    Mod = 1 << 4
	ModSuddenDeath Mod = 1 << 5
	ModDoubleTime  Mod = 1 << 6
	ModRelax       Mod = 1 << 7
	ModHalfTime    Mod = 1 << 8
	// ModNightcoreBit is the raw NC bit. The server never sets it alone: every
	// NC score carries DT as well, which is what ModNightcore models.
	ModNightcoreBit Mod = 1 << 9
	ModFlashlight   Mod = 1 << 10
	ModAutoplay     Mod = 1 << 11
	ModSpunOut      Mod = 1 << 12
	ModAutopilot    Mod = 1 << 13
	// ModPerfectBit is the raw PF bit; set scores always carry SD too.
	ModPerfectBit Mod = 1 << 14
	ModKey4       Mod = 1 << 15
	ModKey5       Mod = 1 << 16
	ModKey6       Mod = 1 << 17
	ModKey7       Mod = 1 << 18
	ModKey8       Mod = 1 << 19
	ModFadeIn     Mod = 1 << 20
	ModRandom     Mod = 1 << 21
	ModCinema     Mod = 1 << 22
	ModTarget     Mod = 1 << 23
	ModKey9       Mod = 1 << 24
	ModKeyCoop    Mod = 1 << 25
	ModKey1       Mod = 1 << 26
	ModKey3       Mod = 1 << 27
	ModKey2       Mod = 1 << 28
	ModScoreV2    Mod = 1 << 29
	ModMirror     Mod = 1 << 30

	// Composite mods, defined the way they appear ingame.
	ModNightcore Mod = ModNightcoreBit | ModDoubleTime
	ModPerfect   Mod = ModPerfectBit | ModSuddenDeath

	ModKeyMod Mod = ModKey1 | ModKey2 | ModKey3 | ModKey4 | ModKey5 |
		ModKey6 | ModKey7 | ModKey8 | ModKey9 | ModKeyCoop

	// Common combinations.
	ModHDDT   Mod = ModHidden | ModDoubleTime
	ModHDHR   Mod = ModHidden | ModHardRock
	ModHDDTHR Mod = ModHidden | ModDoubleTime | ModHardRock
)

type modName struct {
	mod   Mod
	short string
	long  string
}

// modNames maps each single-bit mod (plus NM) to its acronym and spelled out
// name. NC and PF name the raw bits here: decomposition strips the DT/SD
// companion before names are joined.
var modNames = []modName{
	{ModNoMod, "NM", "NoMod"},
	{ModNoFail, "NF", "NoFail"},
	{ModEasy, "EZ", "Easy"},
	{ModTouchDevice, "TD", "TouchDevice"},
	{ModHidden, "HD", "Hidden"},
	{ModHardRock, "HR", "HardRock"},
	{ModSuddenDeath, "SD", "SuddenDeath"},
	{ModDoubleTime, "DT", "DoubleTime"},
	{ModRelax, "RX", "Relax"},
	{ModHalfTime, "HT", "HalfTime"},
	{ModNightcoreBit, "NC", "Nightcore"},
	{ModFlashlight, "FL", "Flashlight"},
	{ModAutoplay, "AT", "Autoplay"},
	{ModSpunOut, "SO", "SpunOut"},
	{ModAutopilot, "AP", "Autopilot"},
	{ModPerfectBit, "PF", "Perfect"},
	{ModKey4, "K4", "Key4"},
	{ModKey5, "K5", "Key5"},
	{ModKey6, "K6", "Key6"},
	{ModKey7, "K7", "Key7"},
	{ModKey8, "K8", "Key8"},
	{ModFadeIn, "FI", "FadeIn"},
	{ModRandom, "RD", "Random"},
	{ModCinema, "CN", "Cinema"},
	{ModTarget, "TP", "Target"},
	{ModKey9, "K9", "Key9"},
	{ModKeyCoop, "CO", "KeyCoop"},
	{ModKey1, "K1", "Key1"},
	{ModKey3, "K3", "Key3"},
	{ModKey2, "K2", "Key2"},
	{ModScoreV2, "V2", "ScoreV2"},
	{ModMirror, "MR", "Mirror"},
}

// modOrder is the order players naturally write mod combinations in
// (HDDTHR, not DTHRHD).
var modOrder = []Mod{
	ModNoMod, ModEasy, ModHidden, ModHalfTime, ModDoubleTime, ModNightcoreBit,
	ModHardRock, ModFlashlight, ModNoFail, ModSuddenDeath, ModPerfectBit,
	ModRelax, ModAutopilot, ModSpunOut, ModAutoplay, ModScoreV2,
	ModTouchDevice,
	// order does not matter much past this point
	ModFadeIn, ModRandom, ModCinema, ModTarget, ModKey1, ModKey2, ModKey3,
	ModKey4, ModKey5, ModKey6, ModKey7, ModKey8, ModKey9, ModKeyCoop,
	ModMirror,
}

func lookupModName(m Mod) (modName, bool) {
	for _, n := range modNames {
		if n.mod == m {
			return n, true
		}
	}
	return modName{}, false
}

// Add returns the union of the two mod combinations.
func (m Mod) Add(other Mod) Mod {
	return m | other
}

// Remove returns m without any of the bits of other.
func (m Mod) Remove(other Mod) Mod {
	return m &^ other
}

// Contains reports whether any bit of other is set in m.
func (m Mod) Contains(other Mod) bool {
	return m&other != 0
}

// Decompose splits m into its single-bit component mods, ordered by modOrder.
// With clean set, companion bits that players think of as duplicates are
// dropped: DT when NC is present, SD when PF is present.
func (m Mod) Decompose(clean bool) []Mod {
	var components []Mod
	for _, ordered := range modOrder {
		if ordered != ModNoMod && m.Contains(ordered) {
			components = append(components, ordered)
		}
	}
	if !clean {
		return components
	}

	has := func(mod Mod) bool {
		for _, c := range components {
			if c == mod {
				return true
			}
		}
		return false
	}
	remove := func(mod Mod) {
		for i, c := range components {
			if c == mod {
				components = append(components[:i], components[i+1:]...)
				return
			}
		}
	}
	if has(ModNightcoreBit) && has(ModDoubleTime) {
		remove(ModDoubleTime)
	}
	if has(ModPerfectBit) && has(ModSuddenDeath) {
		remove(ModSuddenDeath)
	}
	return components
}

// ShortName returns the acronym-ized names of the component mods, eg "HDHR".
// NC and PF hide their DT/SD companion bits, so Mod(576) is "NC", not "DTNC".
func (m Mod) ShortName() string {
	if n, ok := lookupModName(m); ok {
		return n.short
	}
	var sb strings.Builder
	for _, component := range m.Decompose(true) {
		sb.WriteString(component.ShortName())
	}
	return sb.String()
}

// LongName returns the spelled out names of the component mods, eg
// "Hidden HardRock".
func (m Mod) LongName() string {
	if n, ok := lookupModName(m); ok {
		return n.long
	}
	names := []string{}
	for _, component := range m.Decompose(true) {
		names = append(names, component.LongName())
	}
	return strings.Join(names, " ")
}

func (m Mod) String() string {
	return m.ShortName()
}

// ParseMod parses a mod string made up of two letter acronyms ("HDHR"). "NC"
// parses to DT+NC and "PF" to SD+PF, matching how those scores are actually
// submitted.
func ParseMod(modString string) (Mod, error) {
	if modString == "" {
		return 0, common.NewErrInvalidArgument("invalid mod string (cannot be empty)")
	}
	if len(modString)%2 != 0 {
		return 0, common.NewErrInvalidArgumentf("invalid mod string %q (not of even length)", modString)
	}
	var value Mod
	for i := 0; i < len(modString); i += 2 {
		token := modString[i : i+2]
		matched := false
		for _, ordered := range modOrder {
			n, ok := lookupModName(ordered)
			if !ok || n.short != token {
				continue
			}
			mod := ordered
			// restore the ingame meaning of the composite acronyms
			if mod == ModNightcoreBit {
				mod = ModNightcore
			}
			if mod == ModPerfectBit {
				mod = ModPerfect
			}
			value = value.Add(mod)
			matched = true
			break
		}
		if !matched {
			return 0, common.NewErrInvalidArgumentf("invalid mod string (no matching mod found for %q)", token)
		}
	}
	return value, nil
}
