package mp4

import (
	"io"
	"time"

	"github.com/rotabyte/mp4tag/pkg/bytesio"
	"github.com/rotabyte/mp4tag/pkg/tagerr"
)

// chplCoreSignature is the byte form of an empty version-0 chpl box: a
// full-box header (version 0, no flags), the version-0 reserved field, and a
// zero chapter count. It is recorded on the neroChapters zone; Save writes
// no chpl box at all (zone size 0) when there are no chapters.
var chplCoreSignature = []byte{
	0, 0, 0, 20, 'c', 'h', 'p', 'l', // box header, size 20
	0, 0, 0, 0, // version + flags
	0, 0, 0, 0, // reserved (version 0)
	0, 0, 0, 0, // chapter count = 0
}

// parseNeroChapters decodes a chpl box's content into Nero-format chapters.
// Format: [version 1][flags 3][reserved 4 (v0) or 1 (v1)][count 4 (v0) or 1
// (v1)], then per chapter [timestamp 8, 100ns units][title length 1][title].
func parseNeroChapters(r io.ReadSeeker, box boxHeader) ([]Chapter, error) {
	data, err := readBytes(r, box.payloadOffset(), box.payloadSize())
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, nil
	}

	version := data[0]
	offset := 4
	var count int
	if version == 0 {
		if len(data) < offset+8 {
			return nil, nil
		}
		n, err := bytesio.ReadUintWidthBE(data, offset+4, 4)
		if err != nil {
			return nil, nil //nolint:nilerr // malformed count just yields no chapters
		}
		count = int(n)
		offset += 8
	} else {
		if len(data) < offset+2 {
			return nil, nil
		}
		count = int(data[offset+1])
		offset += 2
	}

	var chapters []Chapter
	for i := 0; i < count && offset+9 <= len(data); i++ {
		startRaw, err := bytesio.ReadUintWidthBE(data, offset, 8)
		if err != nil {
			break
		}
		titleLen := int(data[offset+8])
		titleStart := offset + 9
		if titleStart+titleLen > len(data) {
			break
		}
		chapters = append(chapters, Chapter{
			Title: string(data[titleStart : titleStart+titleLen]),
			Start: time.Duration(startRaw) * 100 * time.Nanosecond,
		})
		offset = titleStart + titleLen
	}

	for i := range chapters {
		if i < len(chapters)-1 {
			chapters[i].End = chapters[i+1].Start
		}
	}
	return chapters, nil
}

// buildChpl serializes chapters as a version-0 Nero chpl box, the format
// Save always writes (more broadly compatible than version 1's 1-byte
// count and reserved field).
func buildChpl(chapters []Chapter) ([]byte, error) {
	content := make([]byte, 0, 12+len(chapters)*16)
	content = append(content, 0, 0, 0, 0) // version + flags
	content = append(content, 0, 0, 0, 0) // reserved

	if len(chapters) > 1<<32-1 {
		return nil, tagerr.Overflow("too many chapters to encode a 32-bit chpl count")
	}
	countBytes, err := bytesio.PutUintBE(4, uint64(len(chapters)))
	if err != nil {
		return nil, err
	}
	content = append(content, countBytes...)

	for _, ch := range chapters {
		// #nosec G115 -- any practical chapter start fits in a positive int64
		units := uint64(ch.Start.Nanoseconds() / 100)
		tsBytes, err := bytesio.PutUintBE(8, units)
		if err != nil {
			return nil, err
		}
		content = append(content, tsBytes...)

		title := ch.Title
		if len(title) > 255 {
			title = title[:255]
		}
		content = append(content, byte(len(title)))
		content = append(content, []byte(title)...)
	}

	return buildBoxBytes("chpl", content), nil
}
