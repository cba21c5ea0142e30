package mp4

import (
	gomp4 "github.com/abema/go-mp4"

	"github.com/rotabyte/mp4tag/pkg/bytesio"
)

// iTunes metadata atom data types, stored in the first 4 bytes of a data
// box's content (version byte + 3-byte type).
const (
	DataTypeReserved = 0  // reserved, should not be used
	DataTypeUTF8     = 1  // UTF-8 text (most common)
	DataTypeUTF16BE  = 2  // UTF-16 big-endian text
	DataTypeJPEG     = 13 // JPEG image data
	DataTypePNG      = 14 // PNG image data
	DataTypeGenre    = 18 // genre, UTF-8 text (distinct from the gnre ID atom)
	DataTypeInteger  = 21 // signed big-endian integer (1, 2, 3, 4, or 8 bytes)
	DataTypeBMP      = 27 // BMP image data
)

// iTunes atom type names (4-byte codes). The © prefix is 0xA9 in MacRoman.
var (
	AtomTitle       = [4]byte{0xA9, 'n', 'a', 'm'} // ©nam
	AtomArtist      = [4]byte{0xA9, 'A', 'R', 'T'} // ©ART
	AtomAlbumArtist = [4]byte{'a', 'A', 'R', 'T'}  // aART
	AtomAlbum       = [4]byte{0xA9, 'a', 'l', 'b'} // ©alb
	AtomComposer    = [4]byte{0xA9, 'w', 'r', 't'} // ©wrt
	AtomConductor   = [4]byte{0xA9, 'c', 'o', 'n'} // ©con (not standard iTunes, used by some taggers)
	AtomGenre       = [4]byte{0xA9, 'g', 'e', 'n'} // ©gen
	AtomComment     = [4]byte{0xA9, 'c', 'm', 't'} // ©cmt
	AtomYear        = [4]byte{0xA9, 'd', 'a', 'y'} // ©day
	AtomCopyright   = [4]byte{'c', 'p', 'r', 't'}  // cprt
	AtomDescription = [4]byte{'d', 'e', 's', 'c'}  // desc
	AtomEncoder     = [4]byte{0xA9, 't', 'o', 'o'} // ©too

	AtomCover    = [4]byte{'c', 'o', 'v', 'r'} // covr
	AtomGenreID  = [4]byte{'g', 'n', 'r', 'e'} // gnre (ID3v1 genre index)
	AtomTrackNum = [4]byte{'t', 'r', 'k', 'n'} // trkn (track/total, packed)
	AtomDiscNum  = [4]byte{'d', 'i', 's', 'k'} // disk (disc/total, packed)
	AtomRating   = [4]byte{'r', 't', 'n', 'g'} // rtng (content rating, repurposed for Popularity)
	AtomFreeform = [4]byte{'-', '-', '-', '-'} // ---- freeform/custom atom
)

// gomp4 box types used for navigation during value extraction (esds,
// movie-header duration, QuickTime chapter track discovery). Zone and
// dependent-field registration does not use these: it walks the file with
// findBox so every offset it records is one this module computed itself.
var (
	BoxTypeMoov = gomp4.BoxTypeMoov()
	BoxTypeMvhd = gomp4.BoxTypeMvhd()
	BoxTypeTrak = gomp4.BoxTypeTrak()
	BoxTypeTkhd = gomp4.BoxTypeTkhd()
	BoxTypeMdia = gomp4.BoxTypeMdia()
	BoxTypeMdhd = gomp4.BoxTypeMdhd()
	BoxTypeMinf = gomp4.BoxTypeMinf()
	BoxTypeStbl = gomp4.BoxTypeStbl()
	BoxTypeStsd = gomp4.BoxTypeStsd()
	BoxTypeStts = gomp4.BoxTypeStts()
	BoxTypeStsc = gomp4.BoxTypeStsc()
	BoxTypeStsz = gomp4.BoxTypeStsz()
	BoxTypeStco = gomp4.BoxTypeStco()
	BoxTypeCo64 = gomp4.BoxTypeCo64()
	BoxTypeMp4a = gomp4.BoxTypeMp4a()
	BoxTypeEsds = gomp4.BoxTypeEsds()
	BoxTypeUdta = gomp4.BoxTypeUdta()
	BoxTypeMeta = gomp4.BoxTypeMeta()
	BoxTypeIlst = gomp4.BoxTypeIlst()
	BoxTypeTref = gomp4.StrToBoxType("tref")
	BoxTypeChap = gomp4.StrToBoxType("chap")
	BoxTypeChpl = gomp4.StrToBoxType("chpl")
)

// parseDataValue splits a "data" box's content into its type code and
// value: [1 byte version][3 bytes type][4 bytes locale][...value...].
func parseDataValue(data []byte) (dataType int, value []byte, ok bool) {
	if len(data) < 8 {
		return 0, nil, false
	}
	dataType = int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	value = data[8:]
	return dataType, value, true
}

// parseTextData extracts text from a data atom, handling the two text
// encodings iTunes uses.
func parseTextData(data []byte) string {
	dataType, value, ok := parseDataValue(data)
	if !ok || len(value) == 0 {
		return ""
	}
	switch dataType {
	case DataTypeUTF8, DataTypeGenre:
		return string(value)
	case DataTypeUTF16BE:
		return bytesio.DecodeUTF16BE(value)
	default:
		return string(value)
	}
}

// parseIntegerData extracts a signed integer from a data atom of
// DataTypeInteger, in any of its 1/2/4/8-byte widths.
func parseIntegerData(data []byte) (int64, bool) {
	dataType, value, ok := parseDataValue(data)
	if !ok || dataType != DataTypeInteger {
		return 0, false
	}
	width := len(value)
	if width != 1 && width != 2 && width != 4 && width != 8 {
		return 0, false
	}
	raw, err := bytesio.ReadUintWidthBE(value, 0, width)
	if err != nil {
		return 0, false
	}
	if width == 8 && raw > 1<<63-1 {
		return 0, false
	}
	return int64(raw), true
}

// parsePairData extracts a packed (index, total) pair such as trkn/disk,
// whose value is [2 bytes reserved][2 bytes index][2 bytes total][2 bytes
// reserved].
func parsePairData(data []byte) (index, total int, ok bool) {
	_, value, found := parseDataValue(data)
	if !found || len(value) < 6 {
		return 0, 0, false
	}
	idx, err := bytesio.ReadUintWidthBE(value, 2, 2)
	if err != nil {
		return 0, 0, false
	}
	tot, err := bytesio.ReadUintWidthBE(value, 4, 2)
	if err != nil {
		return 0, 0, false
	}
	return int(idx), int(tot), true
}

// parseImageData extracts image bytes and their MIME type from a data
// atom, trusting the declared data type first and falling back to magic
// byte sniffing for atoms that (incorrectly, but not rarely) carry an
// untyped or mistyped payload. When neither identifies the format, the
// bytes are returned with an empty MIME type.
func parseImageData(data []byte) (imageData []byte, mimeType string, ok bool) {
	dataType, value, found := parseDataValue(data)
	if !found || len(value) == 0 {
		return nil, "", false
	}
	switch dataType {
	case DataTypeJPEG:
		return value, "image/jpeg", true
	case DataTypePNG:
		return value, "image/png", true
	case DataTypeBMP:
		return value, "image/bmp", true
	}
	if img, mime, sniffed := sniffImageBytes(value); sniffed {
		return img, mime, true
	}
	return value, "", true
}

// sniffImageBytes detects an image's format from its magic bytes via
// bytesio and returns its data and canonical MIME type.
func sniffImageBytes(data []byte) (imageData []byte, mimeType string, ok bool) {
	switch bytesio.SniffImageFormat(data) {
	case bytesio.ImageJPEG:
		return data, "image/jpeg", true
	case bytesio.ImagePNG:
		return data, "image/png", true
	case bytesio.ImageBMP:
		return data, "image/bmp", true
	case bytesio.ImageGIF:
		return data, "image/gif", true
	default:
		return nil, "", false
	}
}

// atomTypeEquals compares a gomp4.BoxType against a literal 4-byte atom
// code.
func atomTypeEquals(boxType gomp4.BoxType, atomType [4]byte) bool {
	return boxType[0] == atomType[0] &&
		boxType[1] == atomType[1] &&
		boxType[2] == atomType[2] &&
		boxType[3] == atomType[3]
}
