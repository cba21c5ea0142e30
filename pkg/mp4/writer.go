package mp4

import (
	"bytes"
	"encoding/binary"

	"github.com/rotabyte/mp4tag/pkg/structtag"
	"github.com/rotabyte/mp4tag/pkg/tagerr"
)

// saveState is the input the writer needs beyond *Metadata itself: the
// structural bookkeeping readFile already produced, so Save never has to
// re-walk the box tree.
type saveState struct {
	helper *structtag.Helper
	st     *structure
	cfg    Config
}

// serializeZones builds the new bytes for every zone this module ever
// touches and the corresponding size map, with the padding zone's size
// folded in by structtag.Helper.ResolveZoneSizes, ready to hand to
// ApplyDeltas.
func serializeZones(meta *Metadata, ss *saveState) (map[string]int64, structtag.ZoneContent, error) {
	if !ss.st.hasUdta || !ss.st.hasMeta {
		return nil, nil, tagerr.Unsupported("file has no udta/meta box to write tags into")
	}

	ilstBytes, err := buildIlst(meta)
	if err != nil {
		return nil, nil, err
	}

	var chplBytes []byte
	if len(meta.Chapters) > 0 {
		chplBytes, err = buildChpl(meta.Chapters)
		if err != nil {
			return nil, nil, err
		}
	}

	newSizes := map[string]int64{
		"ilst":         int64(len(ilstBytes)),
		"neroChapters": int64(len(chplBytes)),
	}
	content := structtag.ZoneContent{
		"ilst":         ilstBytes,
		"neroChapters": chplBytes,
	}

	policy := structtag.PaddingPolicy{
		PaddingZone:        "rootPadding",
		Ceiling:            ss.cfg.PaddingCeiling,
		AddNewPadding:      ss.cfg.AddNewPadding,
		DefaultPaddingSize: ss.cfg.DefaultPaddingSize,
		MinPaddingSize:     ss.cfg.MinPaddingSize,
	}
	resolved := ss.helper.ResolveZoneSizes(newSizes, policy)

	if padSize, ok := resolved["rootPadding"]; ok {
		if _, exists := ss.helper.Zone("rootPadding"); exists {
			content["rootPadding"] = buildPaddingBox(padSize)
		}
	}

	return resolved, content, nil
}

// buildPaddingBox emits a "free" box of exactly size bytes (header
// included), or nothing at all if size is 0; a size from 1 to 7 comes out
// as a bare 8-byte header.
func buildPaddingBox(size int64) []byte {
	if size <= 0 {
		return nil
	}
	if size < 8 {
		size = 8
	}
	return buildBoxBytes("free", make([]byte, size-8))
}

// buildIlst serializes meta's mapped fields and preserved AdditionalFields
// into a complete ilst box (header included), applying RemoveFields to omit
// anything the caller explicitly asked to delete.
func buildIlst(meta *Metadata) ([]byte, error) {
	removed := make(map[string]bool, len(meta.RemoveFields))
	for _, f := range meta.RemoveFields {
		removed[f] = true
	}

	var content bytes.Buffer
	writeText := func(field string, atomType [4]byte, value string) {
		if removed[field] || value == "" {
			return
		}
		content.Write(buildTextAtom(atomType, value))
	}

	writeText("Title", AtomTitle, meta.Title)
	writeText("Artist", AtomArtist, meta.Artist)
	writeText("AlbumArtist", AtomAlbumArtist, meta.AlbumArtist)
	writeText("Album", AtomAlbum, meta.Album)
	writeText("Composer", AtomComposer, meta.Composer)
	writeText("Conductor", AtomConductor, meta.Conductor)
	writeText("Comment", AtomComment, meta.Comment)
	writeText("Copyright", AtomCopyright, meta.Copyright)
	writeText("Description", AtomDescription, meta.Description)

	if !removed["Year"] && meta.Year != "" {
		content.Write(buildTextAtom(AtomYear, meta.Year))
	} else if !removed["Date"] && meta.Year == "" && meta.Date != "" {
		content.Write(buildTextAtom(AtomYear, meta.Date))
	}

	if !removed["Genre"] && meta.Genre != "" {
		content.Write(buildTextAtom(AtomGenre, meta.Genre))
	}

	if !removed["TrackNumber"] && !removed["TrackTotal"] && (meta.TrackNumber > 0 || meta.TrackTotal > 0) {
		b, err := buildPairAtom(AtomTrackNum, meta.TrackNumber, meta.TrackTotal)
		if err != nil {
			return nil, err
		}
		content.Write(b)
	}
	if !removed["DiscNumber"] && !removed["DiscTotal"] && (meta.DiscNumber > 0 || meta.DiscTotal > 0) {
		b, err := buildPairAtom(AtomDiscNum, meta.DiscNumber, meta.DiscTotal)
		if err != nil {
			return nil, err
		}
		content.Write(b)
	}

	if !removed["Popularity"] && meta.Popularity > 0 {
		content.Write(buildIntegerAtom(AtomRating, ratingFromPopularity(meta.Popularity)))
	}

	if !removed["EmbeddedPictures"] && len(meta.EmbeddedPictures) > 0 {
		content.Write(buildCoverAtom(meta.EmbeddedPictures))
	}

	if !removed["Publisher"] && meta.Publisher != "" {
		content.Write(buildFreeformAtomBytes(itunesFreeformMean, freeformPublisher, meta.Publisher))
	}
	if !removed["OriginalArtist"] && meta.OriginalArtist != "" {
		content.Write(buildFreeformAtomBytes(itunesFreeformMean, freeformOriginalArtist, meta.OriginalArtist))
	}
	if !removed["OriginalAlbum"] && meta.OriginalAlbum != "" {
		content.Write(buildFreeformAtomBytes(itunesFreeformMean, freeformOriginalAlbum, meta.OriginalAlbum))
	}

	for _, f := range meta.AdditionalFields {
		if removed[f.Mean+":"+f.Name] || removed[f.Name] {
			continue
		}
		if f.Mean == "" {
			// A captured named atom (not a freeform "----"): Name holds its
			// original 4-character atom code, so it's re-emitted under that
			// code rather than mangled into a malformed freeform field.
			var atomType [4]byte
			copy(atomType[:], f.Name)
			content.Write(buildTextAtom(atomType, f.Value))
			continue
		}
		content.Write(buildFreeformAtomBytes(f.Mean, f.Name, f.Value))
	}

	return buildBoxBytes("ilst", content.Bytes()), nil
}

// buildTextAtom builds a named atom holding a UTF-8 data box.
func buildTextAtom(atomType [4]byte, value string) []byte {
	return buildDataAtom(atomType, DataTypeUTF8, []byte(value))
}

// buildIntegerAtom builds a named atom holding a single-byte integer data
// box, the width this module always writes for rtng.
func buildIntegerAtom(atomType [4]byte, value int64) []byte {
	return buildDataAtom(atomType, DataTypeInteger, []byte{byte(value)})
}

// buildPairAtom builds a packed (index, total) atom such as trkn/disk:
// [2 bytes reserved][2 bytes index][2 bytes total][2 bytes reserved].
func buildPairAtom(atomType [4]byte, index, total int) ([]byte, error) {
	if index < 0 || index > 1<<16-1 || total < 0 || total > 1<<16-1 {
		return nil, tagerr.Overflow("track/disc number or total out of 16-bit range")
	}
	value := make([]byte, 8)
	binary.BigEndian.PutUint16(value[2:4], uint16(index))
	binary.BigEndian.PutUint16(value[4:6], uint16(total))
	return buildDataAtom(atomType, DataTypeReserved, value), nil
}

// buildCoverAtom builds a single covr atom holding one "data" child per
// picture, the iTunes convention for a multi-valued field, typed by each
// picture's MIME type where iTunes has a code for it.
func buildCoverAtom(pics []Picture) []byte {
	var content bytes.Buffer
	for _, pic := range pics {
		content.Write(buildDataBox(pictureDataType(pic.MimeType), pic.Data))
	}
	return buildBoxBytesWithType(AtomCover, content.Bytes())
}

// buildDataAtom builds a named atom wrapping a single "data" box.
func buildDataAtom(atomType [4]byte, dataType int, value []byte) []byte {
	return buildBoxBytesWithType(atomType, buildDataBox(dataType, value))
}

// buildDataBox builds a single "data" box's bytes: [version 1 byte][type 3
// bytes][locale 4 bytes][value].
func buildDataBox(dataType int, value []byte) []byte {
	var dataContent bytes.Buffer
	dataContent.WriteByte(0)
	dataContent.WriteByte(byte((dataType >> 16) & 0xFF))
	dataContent.WriteByte(byte((dataType >> 8) & 0xFF))
	dataContent.WriteByte(byte(dataType & 0xFF))
	dataContent.Write([]byte{0, 0, 0, 0})
	dataContent.Write(value)

	return buildBoxBytes("data", dataContent.Bytes())
}

// buildFreeformAtomBytes builds a "----" atom: mean box, name box, then a
// UTF-8 data box, per the iTunes freeform convention.
func buildFreeformAtomBytes(mean, name, value string) []byte {
	var content bytes.Buffer

	meanContent := make([]byte, 4+len(mean))
	copy(meanContent[4:], mean)
	content.Write(buildBoxBytes("mean", meanContent))

	nameContent := make([]byte, 4+len(name))
	copy(nameContent[4:], name)
	content.Write(buildBoxBytes("name", nameContent))

	var dataContent bytes.Buffer
	dataContent.WriteByte(0)
	dataContent.WriteByte(0)
	dataContent.WriteByte(0)
	dataContent.WriteByte(byte(DataTypeUTF8))
	dataContent.Write([]byte{0, 0, 0, 0})
	dataContent.WriteString(value)
	content.Write(buildBoxBytes("data", dataContent.Bytes()))

	return buildBoxBytesWithType(AtomFreeform, content.Bytes())
}

// buildBoxBytes builds a complete box (8-byte header plus content) with a
// literal 4-character type.
func buildBoxBytes(boxType string, content []byte) []byte {
	var typ [4]byte
	copy(typ[:], boxType)
	return buildBoxBytesWithType(typ, content)
}

// buildBoxBytesWithType builds a complete box from a [4]byte type, clamping
// its total size to 2^31-1 bytes (content beyond that is cut off): none of
// the zones
// this module rewrites ever approaches that limit in practice, so clamping
// (rather than emitting a 64-bit extended size) keeps the output a plain
// 8-byte-header box.
func buildBoxBytesWithType(boxType [4]byte, content []byte) []byte {
	contentLen := len(content)
	const maxSize = 1<<31 - 9
	if contentLen > maxSize {
		contentLen = maxSize
		content = content[:maxSize]
	}
	// #nosec G115 -- contentLen is clamped above to prevent overflow
	size := uint32(8 + contentLen)

	buf := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(buf[0:4], size)
	copy(buf[4:8], boxType[:])
	copy(buf[8:], content)
	return buf
}
