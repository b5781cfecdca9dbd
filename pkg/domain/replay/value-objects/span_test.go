package replay_vo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	common "github.com/osuguard/osuguard/pkg/domain"
	vo "github.com/osuguard/osuguard/pkg/domain/replay/value-objects"
)

func TestParseSpan(t *testing.T) {
	span, err := vo.ParseSpan("1-3,6,2-4")
	assert.NoError(t, err)
	assert.Equal(t, vo.Span{1, 2, 3, 4, 6}, span)
	assert.Equal(t, 6, span.Max())
	assert.True(t, span.Contains(4))
	assert.False(t, span.Contains(5))
}

func TestParseSpan_SortedAndDeduplicated(t *testing.T) {
	span, err := vo.ParseSpan("7,1,3,3,2-3")
	assert.NoError(t, err)
	// monotonic after parse, every member matched by the grammar exactly once
	assert.Equal(t, vo.Span{1, 2, 3, 7}, span)
}

func TestParseSpan_Singleton(t *testing.T) {
	span, err := vo.ParseSpan("50")
	assert.NoError(t, err)
	assert.Equal(t, vo.Span{50}, span)
}

func TestParseSpan_Bounds(t *testing.T) {
	_, err := vo.ParseSpan("1-101")
	assert.Error(t, err)
	assert.True(t, common.IsInvalidArgumentError(err))

	_, err = vo.ParseSpan("0")
	assert.Error(t, err)

	span, err := vo.ParseSpan("1-100")
	assert.NoError(t, err)
	assert.Len(t, span, 100)
}

func TestParseSpan_Malformed(t *testing.T) {
	for _, in := range []string{"a", "1-a", "a-3", ""} {
		_, err := vo.ParseSpan(in)
		assert.Error(t, err, in)
	}
}

func TestSpan_Equal(t *testing.T) {
	a, _ := vo.ParseSpan("1-3")
	b, _ := vo.ParseSpan("3,1,2")
	c, _ := vo.ParseSpan("1-4")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
