package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenreIDToString(t *testing.T) {
	t.Parallel()

	name, ok := genreIDToString(1)
	assert.True(t, ok)
	assert.Equal(t, "Blues", name)

	_, ok = genreIDToString(0)
	assert.False(t, ok)

	_, ok = genreIDToString(len(id3v1Genres) + 1)
	assert.False(t, ok)
}

func TestGenreStringToID(t *testing.T) {
	t.Parallel()

	id, ok := genreStringToID("Rock")
	assert.True(t, ok)
	name, ok := genreIDToString(id)
	assert.True(t, ok)
	assert.Equal(t, "Rock", name)

	_, ok = genreStringToID("Not A Real Genre")
	assert.False(t, ok)
}
