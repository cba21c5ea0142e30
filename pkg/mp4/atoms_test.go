package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTextData(t *testing.T) {
	t.Parallel()

	data := buildDataAtom(AtomTitle, DataTypeUTF8, []byte("hello"))
	// buildDataAtom returns a full atom box; parseTextData expects only the
	// inner data box's content, so strip the outer atom header and the data
	// box's own 8-byte header.
	inner := data[8+8:]
	assert.Equal(t, "hello", parseTextData(inner))
}

func TestParseIntegerData(t *testing.T) {
	t.Parallel()

	atom := buildIntegerAtom(AtomRating, 80)
	inner := atom[8+8:]
	v, ok := parseIntegerData(inner)
	assert.True(t, ok)
	assert.Equal(t, int64(80), v)
}

func TestParsePairData(t *testing.T) {
	t.Parallel()

	atom, err := buildPairAtom(AtomTrackNum, 3, 12)
	assert.NoError(t, err)
	inner := atom[8+8:]
	idx, tot, ok := parsePairData(inner)
	assert.True(t, ok)
	assert.Equal(t, 3, idx)
	assert.Equal(t, 12, tot)
}

func TestPopularityRatingRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []float64{0, 0.1, 0.5, 1}
	for _, p := range cases {
		raw := ratingFromPopularity(p)
		got := popularityFromRating(raw)
		assert.InDelta(t, p, got, 0.01)
	}
}
