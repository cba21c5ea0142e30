package structtag_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rotabyte/mp4tag/pkg/structtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFixture lays out a tiny synthetic container by hand:
//
//	[0:4]   moov size (global dependent)           = 40
//	[4:8]   "moov"
//	[8:12]  udta size (global dependent)            = 32
//	[12:16] "udta"
//	[16:20] ilst zone: size                         = 8  (zone, empty)
//	[20:24] "ilst"
//	[24:28] stco entry count                        = 1
//	[28:32] stco chunk offset (offset-index dep)    = 40
//	[32:40] padding to reach mdat
//	[40:44] mdat size
//	[44:48] "mdat"
//	[48:52] mdat payload "DATA"
func buildFixture() []byte {
	buf := make([]byte, 52)
	binary.BigEndian.PutUint32(buf[0:4], 40)
	copy(buf[4:8], "moov")
	binary.BigEndian.PutUint32(buf[8:12], 32)
	copy(buf[12:16], "udta")
	binary.BigEndian.PutUint32(buf[16:20], 8)
	copy(buf[20:24], "ilst")
	binary.BigEndian.PutUint32(buf[24:28], 1)
	binary.BigEndian.PutUint32(buf[28:32], 40)
	binary.BigEndian.PutUint32(buf[40:44], 12)
	copy(buf[44:48], "mdat")
	copy(buf[48:52], "DATA")
	return buf
}

func newHelperForFixture(t *testing.T, fileSize int64) *structtag.Helper {
	t.Helper()
	h := structtag.New(fileSize)
	require.NoError(t, h.AddZone("ilst", 16, 8, []byte{0, 0, 0, 8, 'i', 'l', 's', 't'}, false))
	require.NoError(t, h.AddSizeGlobal(0, 40, 4))  // moov
	require.NoError(t, h.AddSizeGlobal(8, 32, 4))  // udta
	require.NoError(t, h.AddOffsetIndex(28, 40, 4)) // stco entry -> points at mdat box start (offset 40)
	return h
}

func TestApplyDeltas_GrowZoneShiftsOffsetIndex(t *testing.T) {
	t.Parallel()

	data := buildFixture()
	h := newHelperForFixture(t, int64(len(data)))

	newIlst := append([]byte{0, 0, 0, 18, 'i', 'l', 's', 't'}, []byte("0123456789")...) // 18 bytes total
	var out bytes.Buffer
	err := h.ApplyDeltas(bytes.NewReader(data), &out, map[string]int64{"ilst": int64(len(newIlst))}, structtag.ZoneContent{
		"ilst": newIlst,
	})
	require.NoError(t, err)

	result := out.Bytes()
	// File grew by 10 bytes (18 - 8).
	assert.Equal(t, len(data)+10, len(result))

	// moov size dependent grew by the same global delta.
	assert.Equal(t, uint32(50), binary.BigEndian.Uint32(result[0:4]))
	// udta size dependent grew too.
	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(result[8:12]))
	// The new ilst zone bytes are in place.
	assert.Equal(t, newIlst, result[16:16+18])
	// The stco chunk offset shifted by the same 10-byte growth.
	assert.Equal(t, uint32(50), binary.BigEndian.Uint32(result[28+10:32+10]))
	// mdat payload bytes are preserved byte-for-byte.
	assert.Equal(t, []byte("DATA"), result[len(result)-4:])
}

func TestApplyDeltas_SameSizeZoneLeavesDependents(t *testing.T) {
	t.Parallel()

	data := buildFixture()
	h := newHelperForFixture(t, int64(len(data)))

	newIlst := []byte{0, 0, 0, 8, 'i', 'l', 's', 't'} // unchanged size, different bytes don't matter here
	var out bytes.Buffer
	err := h.ApplyDeltas(bytes.NewReader(data), &out, map[string]int64{"ilst": 8}, structtag.ZoneContent{"ilst": newIlst})
	require.NoError(t, err)

	result := out.Bytes()
	assert.Equal(t, len(data), len(result))
	assert.Equal(t, uint32(40), binary.BigEndian.Uint32(result[0:4]))
	assert.Equal(t, uint32(40), binary.BigEndian.Uint32(result[28:32]))
}

func TestAddZone_RejectsOverlap(t *testing.T) {
	t.Parallel()

	h := structtag.New(100)
	require.NoError(t, h.AddZone("a", 10, 10, nil, false))
	err := h.AddZone("b", 15, 10, nil, false)
	assert.Error(t, err)
}

func TestAddZone_RejectsOutsideFile(t *testing.T) {
	t.Parallel()

	h := structtag.New(100)
	err := h.AddZone("a", 90, 20, nil, false)
	assert.Error(t, err)
}

func TestAddDependent_RejectsOutsideFile(t *testing.T) {
	t.Parallel()

	h := structtag.New(10)
	err := h.AddSizeGlobal(8, 0, 4)
	assert.Error(t, err)
}

func TestResolveZoneSizes_PaddingAbsorbsShrink(t *testing.T) {
	t.Parallel()

	h := structtag.New(200)
	require.NoError(t, h.AddZone("ilst", 0, 50, nil, false))
	require.NoError(t, h.AddZone("free", 100, 20, nil, true))

	resolved := h.ResolveZoneSizes(map[string]int64{"ilst": 30}, structtag.PaddingPolicy{
		PaddingZone:    "free",
		MinPaddingSize: 8,
	})

	// ilst shrank by 20; padding should grow by 20 to keep mdat from moving.
	assert.Equal(t, int64(40), resolved["free"])
}

func TestResolveZoneSizes_PaddingAbsorbsSmallGrowth(t *testing.T) {
	t.Parallel()

	h := structtag.New(200)
	require.NoError(t, h.AddZone("ilst", 0, 50, nil, false))
	require.NoError(t, h.AddZone("free", 100, 20, nil, true))

	resolved := h.ResolveZoneSizes(map[string]int64{"ilst": 65}, structtag.PaddingPolicy{
		PaddingZone:    "free",
		Ceiling:        1024,
		MinPaddingSize: 0,
	})

	// ilst grew by 15; padding shrinks by 15.
	assert.Equal(t, int64(5), resolved["free"])
}

func TestResolveZoneSizes_GrowthBeyondCeilingFloorsPadding(t *testing.T) {
	t.Parallel()

	h := structtag.New(200)
	require.NoError(t, h.AddZone("ilst", 0, 50, nil, false))
	require.NoError(t, h.AddZone("free", 100, 20, nil, true))

	resolved := h.ResolveZoneSizes(map[string]int64{"ilst": 2000}, structtag.PaddingPolicy{
		PaddingZone:    "free",
		Ceiling:        100,
		MinPaddingSize: 8,
	})

	assert.Equal(t, int64(8), resolved["free"])
}
