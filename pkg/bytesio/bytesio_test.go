package bytesio_test

import (
	"bytes"
	"testing"

	"github.com/rotabyte/mp4tag/pkg/bytesio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUintBE(t *testing.T) {
	t.Parallel()

	u16, err := bytesio.ReadUint16BE(bytes.NewReader([]byte{0x01, 0x02}))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), u16)

	u32, err := bytesio.ReadUint32BE(bytes.NewReader([]byte{0x00, 0x00, 0x01, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, uint32(256), u32)

	u64, err := bytesio.ReadUint64BE(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 1}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u64)
}

func TestPutUintBEOverflow(t *testing.T) {
	t.Parallel()

	_, err := bytesio.PutUintBE(1, 256)
	assert.Error(t, err)

	buf, err := bytesio.PutUintBE(4, 0xFFFFFFFF)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, buf)
}

func TestReadUintWidthBE(t *testing.T) {
	t.Parallel()

	buf := []byte{0x00, 0x00, 0x01, 0x00}
	v, err := bytesio.ReadUintWidthBE(buf, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), v)

	_, err = bytesio.ReadUintWidthBE(buf, 2, 4)
	assert.Error(t, err)
}

func TestLatin1RoundTrip(t *testing.T) {
	t.Parallel()

	s := "com.apple.iTunes"
	assert.Equal(t, s, bytesio.DecodeLatin1(bytesio.EncodeLatin1(s)))
}

func TestSniffImageFormat(t *testing.T) {
	t.Parallel()

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	assert.Equal(t, bytesio.ImageJPEG, bytesio.SniffImageFormat(jpeg))

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	assert.Equal(t, bytesio.ImagePNG, bytesio.SniffImageFormat(png))

	bmp := []byte{'B', 'M', 0, 0}
	assert.Equal(t, bytesio.ImageBMP, bytesio.SniffImageFormat(bmp))

	assert.Equal(t, bytesio.ImageUnknown, bytesio.SniffImageFormat([]byte{0, 1, 2}))
}

func TestDecodeUTF16BE(t *testing.T) {
	t.Parallel()

	// "Hi" in big-endian UTF-16 with a BOM.
	data := []byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}
	assert.Equal(t, "Hi", bytesio.DecodeUTF16BE(data))
}
