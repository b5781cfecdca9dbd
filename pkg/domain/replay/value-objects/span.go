package replay_vo

import (
	"sort"
	"strconv"
	"strings"

	common "github.com/osuguard/osuguard/pkg/domain"
)

// SpanMax is the largest position a span may include, matching the api's
// limit of 100 scores per listing.
const SpanMax = 100

// Span is a set of leaderboard positions described by a string of single
// numbers and inclusive ranges, eg "1-3,6,2-4" -> {1,2,3,4,6}. Positions are
// kept sorted ascending and deduplicated.
type Span []int

// ParseSpan parses a span string. Positions must lie in [1, SpanMax].
func ParseSpan(span string) (Span, error) {
	seen := map[int]bool{}
	for _, part := range strings.Split(span, ",") {
		lo, hi, err := parseSpanPart(span, part)
		if err != nil {
			return nil, err
		}
		for i := lo; i <= hi; i++ {
			seen[i] = true
		}
	}

	values := make(Span, 0, len(seen))
	for v := range seen {
		if v < 1 || v > SpanMax {
			return nil, common.NewErrInvalidArgumentf(
				"spans can only range from 1 to %d inclusive, got %d", SpanMax, v)
		}
		values = append(values, v)
	}
	sort.Ints(values)
	return values, nil
}

func parseSpanPart(span, part string) (int, int, error) {
	if lo, hi, isRange := strings.Cut(part, "-"); isRange {
		start, err := strconv.Atoi(lo)
		if err != nil {
			return 0, 0, common.NewErrInvalidArgumentf("invalid span %q: bad range start %q", span, lo)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return 0, 0, common.NewErrInvalidArgumentf("invalid span %q: bad range end %q", span, hi)
		}
		return start, end, nil
	}
	v, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, common.NewErrInvalidArgumentf("invalid span %q: bad element %q", span, part)
	}
	return v, v, nil
}

// MustSpan parses a span known to be valid at compile time and panics
// otherwise. Reserved for package-level constants like the max map span.
func MustSpan(span string) Span {
	s, err := ParseSpan(span)
	if err != nil {
		panic(err)
	}
	return s
}

// Contains reports whether the span includes position n.
func (s Span) Contains(n int) bool {
	for _, v := range s {
		if v == n {
			return true
		}
	}
	return false
}

// Max returns the highest position in the span, 0 for an empty span.
func (s Span) Max() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Equal reports whether the two spans describe the same positions.
func (s Span) Equal(other Span) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s Span) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
