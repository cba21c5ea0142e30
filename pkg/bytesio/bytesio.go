// Package bytesio provides the low-level big-endian integer and string codecs
// shared by every container reader/writer in the module, plus image-format
// sniffing; it has no bit-field codec. It has no knowledge
// of boxes, atoms or tags; it only knows how to move bytes in and out of a
// seekable stream in the encodings containers actually use on disk.
package bytesio

import (
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// ReadUint16BE reads a big-endian uint16 at the reader's current position.
func ReadUint16BE(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadUint32BE reads a big-endian uint32 at the reader's current position.
func ReadUint32BE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadUint64BE reads a big-endian uint64 at the reader's current position.
func ReadUint64BE(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// PutUintBE encodes v into a big-endian integer of the given byte width
// (1, 2, 4 or 8). It is the inverse of ReadUintWidthBE and is used to
// back-patch dependent fields and box size headers in place.
func PutUintBE(width int, v uint64) ([]byte, error) {
	buf := make([]byte, width)
	switch width {
	case 1:
		if v > 0xFF {
			return nil, errors.Errorf("value %d overflows 1-byte field", v)
		}
		buf[0] = byte(v)
	case 2:
		if v > 0xFFFF {
			return nil, errors.Errorf("value %d overflows 2-byte field", v)
		}
		binary.BigEndian.PutUint16(buf, uint16(v))
	case 4:
		if v > 0xFFFFFFFF {
			return nil, errors.Errorf("value %d overflows 4-byte field", v)
		}
		binary.BigEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.BigEndian.PutUint64(buf, v)
	default:
		return nil, errors.Errorf("unsupported field width %d", width)
	}
	return buf, nil
}

// ReadUintWidthBE reads a big-endian unsigned integer of the given byte
// width (1, 2, 4 or 8) from buf at the given offset.
func ReadUintWidthBE(buf []byte, offset, width int) (uint64, error) {
	if offset < 0 || offset+width > len(buf) {
		return 0, errors.Errorf("read of width %d at offset %d exceeds buffer of length %d", width, offset, len(buf))
	}
	switch width {
	case 1:
		return uint64(buf[offset]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(buf[offset:])), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(buf[offset:])), nil
	case 8:
		return binary.BigEndian.Uint64(buf[offset:]), nil
	default:
		return 0, errors.Errorf("unsupported field width %d", width)
	}
}

// DecodeLatin1 converts Latin-1 (ISO-8859-1) encoded bytes to a Go string.
// Every Latin-1 byte maps onto the Unicode code point of the same value, so
// the conversion never fails and never needs a replacement character.
func DecodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// EncodeLatin1 converts a Go string to Latin-1 bytes, clamping any code
// point above 0xFF to '?' since it has no Latin-1 representation.
func EncodeLatin1(s string) []byte {
	runes := []rune(s)
	out := make([]byte, len(runes))
	for i, r := range runes {
		if r > 0xFF {
			out[i] = '?'
			continue
		}
		out[i] = byte(r)
	}
	return out
}

// DecodeUTF16BE decodes big-endian UTF-16 bytes, skipping a leading BOM and
// stopping at a NUL terminator if present.
func DecodeUTF16BE(data []byte) string {
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		data = data[2:]
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u := binary.BigEndian.Uint16(data[i : i+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// ImageFormat identifies a sniffed embedded-picture format.
type ImageFormat string

const (
	ImageUnknown ImageFormat = ""
	ImageJPEG    ImageFormat = "image/jpeg"
	ImagePNG     ImageFormat = "image/png"
	ImageBMP     ImageFormat = "image/bmp"
	ImageGIF     ImageFormat = "image/gif"
)

// SniffImageFormat identifies an embedded picture's format purely from its
// header bytes, independent of whatever type tag the container claimed.
func SniffImageFormat(data []byte) ImageFormat {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return ImageJPEG
	case len(data) >= 8 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G' &&
		data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A:
		return ImagePNG
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return ImageBMP
	case len(data) >= 6 && string(data[0:3]) == "GIF" && (data[3] == '8') && (data[4] == '7' || data[4] == '9') && data[5] == 'a':
		return ImageGIF
	default:
		return ImageUnknown
	}
}
