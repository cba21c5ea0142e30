package mp4

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func synchsafeEncode(size int64) []byte {
	return []byte{
		byte((size >> 21) & 0x7F),
		byte((size >> 14) & 0x7F),
		byte((size >> 7) & 0x7F),
		byte(size & 0x7F),
	}
}

func id3v2Header(bodySize int64) []byte {
	header := []byte{'I', 'D', '3', 3, 0, 0}
	return append(header, synchsafeEncode(bodySize)...)
}

func id3v1Tag() []byte {
	tag := make([]byte, id3v1TagSize)
	copy(tag, "TAG")
	return tag
}

func apev2Footer(tagSize uint32) []byte {
	footer := make([]byte, apeFooterLen)
	copy(footer, "APETAGEX")
	binary.LittleEndian.PutUint32(footer[12:16], tagSize)
	return footer
}

func TestDetectCoexistingTags_None(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte{0}, 64)
	tags, err := DetectCoexistingTags(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.Nil(t, tags.ID3v2)
	assert.Nil(t, tags.ID3v1)
	assert.Nil(t, tags.APEv2)
}

func TestDetectCoexistingTags_ID3v2Header(t *testing.T) {
	t.Parallel()

	header := id3v2Header(100)
	body := append(append([]byte{}, header...), bytes.Repeat([]byte{0}, 100)...)
	tags, err := DetectCoexistingTags(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	require.NotNil(t, tags.ID3v2)
	assert.Equal(t, int64(0), tags.ID3v2.Offset)
	assert.Equal(t, int64(id3v2HeaderLen+100), tags.ID3v2.Size)
}

func TestDetectCoexistingTags_ID3v1Tail(t *testing.T) {
	t.Parallel()

	body := append(bytes.Repeat([]byte{0}, 64), id3v1Tag()...)
	tags, err := DetectCoexistingTags(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	require.NotNil(t, tags.ID3v1)
	assert.Equal(t, int64(len(body)-id3v1TagSize), tags.ID3v1.Offset)
	assert.Nil(t, tags.APEv2)
}

func TestDetectCoexistingTags_APEv2Tail(t *testing.T) {
	t.Parallel()

	footer := apev2Footer(apeFooterLen) // no items, just the footer itself
	body := append(bytes.Repeat([]byte{0}, 64), footer...)
	tags, err := DetectCoexistingTags(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	require.NotNil(t, tags.APEv2)
	assert.Equal(t, int64(len(body)-apeFooterLen), tags.APEv2.Offset)
	assert.Equal(t, int64(apeFooterLen), tags.APEv2.Size)
}

func TestDetectCoexistingTags_APEv2BeforeID3v1(t *testing.T) {
	t.Parallel()

	footer := apev2Footer(apeFooterLen)
	body := bytes.Repeat([]byte{0}, 64)
	body = append(body, footer...)
	body = append(body, id3v1Tag()...)
	tags, err := DetectCoexistingTags(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	require.NotNil(t, tags.ID3v1)
	require.NotNil(t, tags.APEv2)
	assert.Equal(t, int64(len(body)-id3v1TagSize-apeFooterLen), tags.APEv2.Offset)
}

func TestFileExposesCoexistingTags(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, buildMinimalFixture("Clean", []byte("payload")))
	f, err := Open(path, Config{})
	require.NoError(t, err)

	tags := f.CoexistingTags()
	assert.Nil(t, tags.ID3v2)
	assert.Nil(t, tags.ID3v1)
	assert.Nil(t, tags.APEv2)
}
