package mp4

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotabyte/mp4tag/pkg/bytesio"
)

// firstChunkOffset walks raw's box tree down to the first track's stco box
// and returns its sole chunk-offset entry, for asserting that a save which
// moves mdat correctly repoints the offset table at it.
func firstChunkOffset(t *testing.T, raw []byte) int64 {
	t.Helper()
	r := bytes.NewReader(raw)

	moovHdr, found, err := findBox(r, int64(len(raw)), boxCode("moov"))
	require.NoError(t, err)
	require.True(t, found)

	trakHdr, found, err := findBox(r, moovHdr.end(), boxCode("trak"))
	require.NoError(t, err)
	require.True(t, found)

	mdiaHdr, found, err := findBox(r, trakHdr.end(), boxCode("mdia"))
	require.NoError(t, err)
	require.True(t, found)

	minfHdr, found, err := findBox(r, mdiaHdr.end(), boxCode("minf"))
	require.NoError(t, err)
	require.True(t, found)

	stblHdr, found, err := findBox(r, minfHdr.end(), boxCode("stbl"))
	require.NoError(t, err)
	require.True(t, found)

	stcoHdr, found, err := findBox(r, stblHdr.end(), boxCode("stco"))
	require.NoError(t, err)
	require.True(t, found)

	payload, err := readBytes(r, stcoHdr.payloadOffset(), stcoHdr.payloadSize())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(payload), 12)

	val, err := bytesio.ReadUintWidthBE(payload, 8, 4)
	require.NoError(t, err)
	return int64(val)
}

func writeFixture(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.m4a")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestOpenReadsTitle(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, buildMinimalFixture("Hello", []byte("sample-payload")))

	f, err := Open(path, Config{})
	require.NoError(t, err)
	assert.Equal(t, "Hello", f.Metadata().Title)
}

func TestSaveGrowsIlstAndShiftsMdat(t *testing.T) {
	t.Parallel()

	payload := []byte("sample-payload")
	path := writeFixture(t, buildMinimalFixture("Hi", payload))

	f, err := Open(path, Config{})
	require.NoError(t, err)

	f.Metadata().Title = "A Much Longer Title Than Before, To Force Growth"
	f.Metadata().Artist = "Some Artist"
	f.Metadata().Popularity = 0.8
	f.Metadata().Chapters = []Chapter{
		{Title: "Intro", Start: 0},
		{Title: "Chapter One", Start: 2 * time.Second},
	}
	require.NoError(t, f.Save())

	reopened, err := Open(path, Config{})
	require.NoError(t, err)
	meta := reopened.Metadata()
	assert.Equal(t, "A Much Longer Title Than Before, To Force Growth", meta.Title)
	assert.Equal(t, "Some Artist", meta.Artist)
	assert.InDelta(t, 0.8, meta.Popularity, 0.02)
	require.Len(t, meta.Chapters, 2)
	assert.Equal(t, "Intro", meta.Chapters[0].Title)
	assert.Equal(t, "Chapter One", meta.Chapters[1].Title)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// mdat moved, but its payload must still be recoverable byte-for-byte.
	assert.Contains(t, string(raw), string(payload))

	mdatOffset := int64(bytes.Index(raw, payload))
	require.GreaterOrEqual(t, mdatOffset, int64(0))
	assert.Equal(t, mdatOffset, firstChunkOffset(t, raw), "stco entry must track mdat's new offset after save")
}

func TestSaveRoundTripsMultiplePictures(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, buildMinimalFixture("Cover Test", []byte("payload")))

	f, err := Open(path, Config{})
	require.NoError(t, err)

	jpeg := append([]byte{0xFF, 0xD8, 0xFF}, []byte("jpeg-bytes")...)
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, []byte("png-bytes")...)
	f.Metadata().EmbeddedPictures = []Picture{
		{Type: PictureCoverFront, MimeType: "image/jpeg", Data: jpeg},
		{Type: PictureCoverFront, MimeType: "image/png", Data: png},
	}
	require.NoError(t, f.Save())

	reopened, err := Open(path, Config{})
	require.NoError(t, err)
	pics := reopened.Metadata().EmbeddedPictures
	require.Len(t, pics, 2, "a single covr atom must carry one data child per picture")
	assert.Equal(t, jpeg, pics[0].Data)
	assert.Equal(t, png, pics[1].Data)
}

func TestSaveRoundTripsCapturedNamedAtom(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, buildMinimalFixture("Capture Test", []byte("payload")))

	cfg := Config{ReadAllMetaFrames: true}
	f, err := Open(path, cfg)
	require.NoError(t, err)

	f.Metadata().AdditionalFields = append(f.Metadata().AdditionalFields, AdditionalField{
		Name: string(AtomEncoder[:]), Value: "some encoder",
	})
	require.NoError(t, f.Save())

	reopened, err := Open(path, cfg)
	require.NoError(t, err)
	require.Len(t, reopened.Metadata().AdditionalFields, 1)
	captured := reopened.Metadata().AdditionalFields[0]
	assert.Empty(t, captured.Mean)
	assert.Equal(t, string(AtomEncoder[:]), captured.Name)
	assert.Equal(t, "some encoder", captured.Value)
}

func TestRemoveClearsNativeTags(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, buildMinimalFixture("Keep Me?", []byte("payload")))

	f, err := Open(path, Config{})
	require.NoError(t, err)
	require.NoError(t, f.Remove(ScopeNative))

	reopened, err := Open(path, Config{})
	require.NoError(t, err)
	assert.Empty(t, reopened.Metadata().Title)
}
