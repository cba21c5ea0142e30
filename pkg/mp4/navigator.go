package mp4

import (
	"io"

	"github.com/rotabyte/mp4tag/pkg/bytesio"
	"github.com/rotabyte/mp4tag/pkg/tagerr"
)

// maxBoxScan bounds how many sibling boxes findBox will skip over before
// giving up, so a corrupt or adversarial file can't spin the reader forever.
const maxBoxScan = 100

// boxHeader describes a box found by findBox: its absolute offset, total
// size including the header, and the width of that header (8 bytes, or 16
// when an extended 64-bit size is present).
type boxHeader struct {
	Offset     int64
	Size       int64
	HeaderSize int64
	Type       [4]byte
}

func (b boxHeader) payloadOffset() int64 { return b.Offset + b.HeaderSize }
func (b boxHeader) payloadSize() int64   { return b.Size - b.HeaderSize }
func (b boxHeader) end() int64           { return b.Offset + b.Size }

// findBox is the atom navigator: starting at the stream's current
// position (which must be the first byte of a box at the current nesting
// level), it scans sibling boxes until it finds one whose type equals
// code, or until levelEnd is reached, or until maxBoxScan boxes have been
// skipped. On success the stream is left positioned at the first payload
// byte of the matching box. On failure (not found) it returns a zero
// header and found=false; it never returns an error for "not found",
// only for a structurally broken box.
func findBox(r io.ReadSeeker, levelEnd int64, code [4]byte) (boxHeader, bool, error) {
	for i := 0; i < maxBoxScan; i++ {
		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return boxHeader{}, false, tagerr.Malformed("seek error: " + err.Error())
		}
		if pos >= levelEnd {
			return boxHeader{}, false, nil
		}

		h, err := readBoxHeader(r, pos, levelEnd)
		if err != nil {
			return boxHeader{}, false, err
		}

		if h.Type == code {
			if _, err := r.Seek(h.payloadOffset(), io.SeekStart); err != nil {
				return boxHeader{}, false, tagerr.Malformed("seek error: " + err.Error())
			}
			return h, true, nil
		}

		if _, err := r.Seek(h.end(), io.SeekStart); err != nil {
			return boxHeader{}, false, tagerr.Malformed("seek error: " + err.Error())
		}
	}
	return boxHeader{}, false, nil
}

// readBoxHeader reads one box header (32-bit size, 4-byte type, optional
// 64-bit extended size) at pos. size==0 means "extends to levelEnd"; the
// caller passes the enclosing box's payload end, or the file length at the
// root level.
func readBoxHeader(r io.ReadSeeker, pos, levelEnd int64) (boxHeader, error) {
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return boxHeader{}, tagerr.Malformed("seek error: " + err.Error())
	}

	size32, err := bytesio.ReadUint32BE(r)
	if err != nil {
		return boxHeader{}, tagerr.Malformed("truncated box header: " + err.Error())
	}
	var typ [4]byte
	if _, err := io.ReadFull(r, typ[:]); err != nil {
		return boxHeader{}, tagerr.Malformed("truncated box header: " + err.Error())
	}

	headerSize := int64(8)
	size := int64(size32)
	switch size32 {
	case 0:
		size = levelEnd - pos
	case 1:
		ext, err := bytesio.ReadUint64BE(r)
		if err != nil {
			return boxHeader{}, tagerr.Malformed("truncated extended box size: " + err.Error())
		}
		// #nosec G115 -- extended sizes this module deals with fit in int64
		size = int64(ext)
		headerSize = 16
	}

	if size < headerSize || pos+size > levelEnd {
		return boxHeader{}, tagerr.Malformed("box exceeds its parent or the file")
	}

	return boxHeader{Offset: pos, Size: size, HeaderSize: headerSize, Type: typ}, nil
}

// boxCode builds the [4]byte comparison key for a literal 4-character box
// type.
func boxCode(s string) [4]byte {
	var c [4]byte
	copy(c[:], s)
	return c
}
