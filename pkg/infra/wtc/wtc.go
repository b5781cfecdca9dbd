// Package wtc implements the lossy recompression scheme used by the replay
// cache. Replay lzma streams compress poorly because cursor coordinates carry
// sub-pixel precision nobody needs for analysis; rounding them to whole
// osu!pixels before recompressing roughly halves the stored size.
//
// The output blob is itself a bare lzma stream of the rounded frame text, so
// decompressing yields data parseable by the osr decoder's pure-lzma mode.
package wtc

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/itchio/lzma"
)

// Compress losslessly decodes an lzma replay stream, rounds the cursor
// coordinates of every frame to whole pixels, and recompresses. The
// precision loss is deliberate and irreversible.
func Compress(lzmaBytes []byte) ([]byte, error) {
	text, err := decodeLZMA(lzmaBytes)
	if err != nil {
		return nil, err
	}
	rounded, err := roundFrameText(string(text))
	if err != nil {
		return nil, err
	}
	return encodeLZMA([]byte(rounded))
}

// Decompress reverses Compress. With decompressedLZMA set, the decompressed
// frame text is returned directly; otherwise the result stays a bare lzma
// stream (which the blob already is).
func Decompress(blob []byte, decompressedLZMA bool) ([]byte, error) {
	if !decompressedLZMA {
		return blob, nil
	}
	return decodeLZMA(blob)
}

func decodeLZMA(data []byte) ([]byte, error) {
	r := lzma.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decoding lzma stream: %w", err)
	}
	return out, nil
}

func encodeLZMA(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lzma.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("encoding lzma stream: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encoding lzma stream: %w", err)
	}
	return buf.Bytes(), nil
}

// roundFrameText rewrites a "w|x|y|z," frame stream with x and y rounded to
// integers. Frames that do not have four fields (like the trailing empty
// segment) pass through untouched.
func roundFrameText(text string) (string, error) {
	frames := strings.Split(text, ",")
	for i, frame := range frames {
		parts := strings.Split(frame, "|")
		if len(parts) != 4 {
			continue
		}
		x, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return "", fmt.Errorf("malformed frame %q: %w", frame, err)
		}
		y, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return "", fmt.Errorf("malformed frame %q: %w", frame, err)
		}
		parts[1] = strconv.FormatInt(int64(math.Round(x)), 10)
		parts[2] = strconv.FormatInt(int64(math.Round(y)), 10)
		frames[i] = strings.Join(parts, "|")
	}
	return strings.Join(frames, ","), nil
}
