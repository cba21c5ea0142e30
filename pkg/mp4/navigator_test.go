package mp4

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBoxFindsSibling(t *testing.T) {
	t.Parallel()

	data := append(buildBoxBytes("free", make([]byte, 4)), buildBoxBytes("ilst", []byte("abcd"))...)
	r := bytes.NewReader(data)

	hdr, found, err := findBox(r, int64(len(data)), boxCode("ilst"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(12), hdr.Offset)
	assert.Equal(t, int64(12), hdr.Size)

	payload, err := readBytes(r, hdr.payloadOffset(), hdr.payloadSize())
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), payload)
}

func TestFindBoxNotFound(t *testing.T) {
	t.Parallel()

	data := buildBoxBytes("free", make([]byte, 4))
	r := bytes.NewReader(data)

	_, found, err := findBox(r, int64(len(data)), boxCode("ilst"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadBoxHeaderRejectsOverflow(t *testing.T) {
	t.Parallel()

	// Declares a box of size 100 in a 12-byte buffer.
	data := make([]byte, 12)
	data[3] = 100
	copy(data[4:8], "free")
	r := bytes.NewReader(data)

	_, err := readBoxHeader(r, 0, int64(len(data)))
	assert.Error(t, err)
}

func TestForEachBoxWalksInOrder(t *testing.T) {
	t.Parallel()

	data := append(buildBoxBytes("mean", []byte("aa")), buildBoxBytes("name", []byte("bb"))...)
	r := bytes.NewReader(data)

	var seen []string
	err := forEachBox(r, 0, int64(len(data)), func(h boxHeader) error {
		seen = append(seen, string(h.Type[:]))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mean", "name"}, seen)
}
