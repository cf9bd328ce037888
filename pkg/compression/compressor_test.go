package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

func TestRoundTrip(t *testing.T) {
	original := []byte(strings.Repeat(`{"sym":"AAPL","price":189.5},`, 200))

	for _, a := range algorithms {
		for _, level := range []Level{Fastest, Default, Better, Best} {
			compressed, err := Compress(original, a, level)
			require.NoError(t, err, "%s/%d", a, level)
			if a != None {
				assert.Less(t, len(compressed), len(original), "%s/%d", a, level)
			}

			out, err := Decompress(compressed, a)
			require.NoError(t, err, "%s/%d", a, level)
			assert.Equal(t, original, out, "%s/%d", a, level)
		}
	}
}

func TestStreaming(t *testing.T) {
	for _, a := range algorithms {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, a, Default)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			_, err := io.WriteString(w, "line of output\n")
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())

		r, err := NewReader(&buf, a)
		require.NoError(t, err)
		out, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, strings.Repeat("line of output\n", 10), string(out), a)
	}
}

func TestParse(t *testing.T) {
	a, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, None, a)

	a, err = Parse(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)
	assert.Equal(t, ".zst", a.Extension())
	assert.Equal(t, ".gz", Gzip.Extension())
	assert.Equal(t, "", None.Extension())

	_, err = Parse("brotli")
	assert.Error(t, err)

	_, err = NewWriter(io.Discard, Algorithm("brotli"), Default)
	assert.Error(t, err)
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := Decompress([]byte("definitely not gzip"), Gzip)
	assert.Error(t, err)
}
