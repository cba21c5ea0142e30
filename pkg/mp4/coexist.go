package mp4

import (
	"io"
)

// CoexistingTags reports legacy tag systems found at the canonical locations
// other tools use when they bolt an ID3 or APE tag onto an MP4 container:
// ID3v2 at the file head, ID3v1 and/or an APEv2 tag at the tail. MP4 itself
// only ever tolerates its native ilst/chpl tag, but a save must not disturb
// bytes belonging to any of these if they're present.
type CoexistingTags struct {
	ID3v2 *ByteRange
	ID3v1 *ByteRange
	APEv2 *ByteRange
}

// ByteRange is a half-open [Offset, Offset+Size) span of the file.
type ByteRange struct {
	Offset int64
	Size   int64
}

const (
	id3v1TagSize   = 128
	id3v2HeaderLen = 10
	apeFooterLen   = 32
)

// DetectCoexistingTags scans the head and tail of a file for ID3v2, ID3v1
// and APEv2 markers. It never errors on a file too small to hold any of
// them; it simply reports none found.
func DetectCoexistingTags(r io.ReadSeeker, fileSize int64) (CoexistingTags, error) {
	var tags CoexistingTags

	if fileSize >= id3v2HeaderLen {
		header, err := readBytes(r, 0, id3v2HeaderLen)
		if err == nil && string(header[0:3]) == "ID3" {
			size := synchsafeSize(header[6:10])
			tags.ID3v2 = &ByteRange{Offset: 0, Size: id3v2HeaderLen + size}
		}
	}

	if fileSize >= id3v1TagSize {
		tail, err := readBytes(r, fileSize-id3v1TagSize, id3v1TagSize)
		if err == nil && string(tail[0:3]) == "TAG" {
			tags.ID3v1 = &ByteRange{Offset: fileSize - id3v1TagSize, Size: id3v1TagSize}
		}
	}

	apeSearchEnd := fileSize
	if tags.ID3v1 != nil {
		apeSearchEnd = tags.ID3v1.Offset
	}
	if apeSearchEnd >= apeFooterLen {
		footer, err := readBytes(r, apeSearchEnd-apeFooterLen, apeFooterLen)
		if err == nil && string(footer[0:8]) == "APETAGEX" {
			// Bytes 12-15 of the footer hold the tag size, little-endian:
			// the size of every item plus this footer, excluding any
			// optional 32-byte header that might precede them.
			tagSize := int64(footer[12]) | int64(footer[13])<<8 | int64(footer[14])<<16 | int64(footer[15])<<24
			tags.APEv2 = &ByteRange{Offset: apeSearchEnd - tagSize, Size: tagSize}
		}
	}

	return tags, nil
}

// synchsafeSize decodes an ID3v2 synchsafe 32-bit size: 4 bytes, each with
// its high bit always zero, holding 28 significant bits.
func synchsafeSize(b []byte) int64 {
	return int64(b[0])<<21 | int64(b[1])<<14 | int64(b[2])<<7 | int64(b[3])
}
