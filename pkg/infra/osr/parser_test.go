package osr_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/itchio/lzma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osuguard/osuguard/pkg/infra/osr"
)

func TestParseFrameText(t *testing.T) {
	parser := osr.NewParser()
	frames, err := parser.ParseFrameText([]byte("-1|256|192|0,16|256.5|191.2|1,17|260|190|3,"))
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, int64(-1), frames[0].TimeDelta)
	assert.Equal(t, 256.5, frames[1].X)
	assert.Equal(t, 191.2, frames[1].Y)
	assert.Equal(t, int64(1), frames[1].Keys)
	assert.Equal(t, int64(3), frames[2].Keys)
}

func TestParseFrameText_DropsSeedFrame(t *testing.T) {
	parser := osr.NewParser()
	frames, err := parser.ParseFrameText([]byte("-1|0|0|0,16|1|1|0,-12345|0|0|16734213,"))
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestParseFrameText_Malformed(t *testing.T) {
	parser := osr.NewParser()
	for _, text := range []string{"1|2|3", "a|0|0|0,", "1|x|0|0,"} {
		_, err := parser.ParseFrameText([]byte(text))
		assert.Error(t, err, text)
	}
}

func TestParseLZMA(t *testing.T) {
	var buf bytes.Buffer
	w := lzma.NewWriter(&buf)
	_, err := io.WriteString(w, "-1|100|100|0,16|110|105|1,")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	parser := osr.NewParser()
	frames, err := parser.ParseLZMA(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, 110.0, frames[1].X)
}
