package mp4

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"
)

// populatePhysicalProperties runs a second, read-only pass over the file
// using go-mp4's box-structure traversal to fill in the properties that
// don't participate in any rewrite: the average bitrate buried in esds's
// nested descriptor format, and QuickTime-style chapters (which, when any
// are found, replace the Nero chapters the structural walk already read).
// Neither of these
// ever needs zone or dependent bookkeeping, so there's no reason to thread
// them through the navigator-based structural walk in reader.go.
func populatePhysicalProperties(r io.ReadSeeker, fileSize int64, meta *Metadata) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}

	var bitrate uint32
	_, err := gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case BoxTypeMoov, BoxTypeTrak, BoxTypeMdia, BoxTypeMinf, BoxTypeStbl, BoxTypeStsd, BoxTypeMp4a:
			return h.Expand()
		case BoxTypeEsds:
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			esds, ok := payload.(*gomp4.Esds)
			if !ok {
				return nil, nil
			}
			for _, desc := range esds.Descriptors {
				if desc.DecoderConfigDescriptor != nil {
					bitrate = desc.DecoderConfigDescriptor.AvgBitrate
					return nil, nil
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if bitrate > 0 {
		meta.Bitrate = int(bitrate)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	chapters, err := readQuickTimeChapters(r)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(chapters) > 0 {
		meta.Chapters = chapters
	}

	return nil
}

// quickTimeTrackInfo mirrors the sample-table fields needed to read a
// QuickTime text-track chapter's samples back out of mdat.
type quickTimeTrackInfo struct {
	timescale    uint32
	sampleSizes  []uint32
	sampleDeltas []uint32
	chunkOffsets []uint64
	stsc         []stscEntry
}

// readQuickTimeChapters locates the track referenced by another track's
// tref/chap and reads its samples as chapter titles.
func readQuickTimeChapters(r io.ReadSeeker) ([]Chapter, error) {
	var chapterTrackID uint32
	var movieTimescale uint32

	_, err := gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case BoxTypeMoov, BoxTypeTrak:
			return h.Expand()
		case BoxTypeMvhd:
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if mvhd, ok := payload.(*gomp4.Mvhd); ok {
				movieTimescale = mvhd.Timescale
			}
		case BoxTypeTref:
			var buf bytes.Buffer
			if _, err := h.ReadData(&buf); err != nil {
				return nil, errors.WithStack(err)
			}
			data := buf.Bytes()
			offset := 0
			for offset+8 <= len(data) {
				childSize := int(binary.BigEndian.Uint32(data[offset:]))
				if childSize < 8 || offset+childSize > len(data) {
					break
				}
				if string(data[offset+4:offset+8]) == "chap" && childSize >= 12 {
					chapterTrackID = binary.BigEndian.Uint32(data[offset+8:])
				}
				offset += childSize
			}
		}
		return nil, nil
	})
	if err != nil || chapterTrackID == 0 {
		return nil, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.WithStack(err)
	}

	var info *quickTimeTrackInfo
	var inChapterTrack bool
	_, err = gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case BoxTypeMoov:
			return h.Expand()
		case BoxTypeTrak:
			inChapterTrack = false
			return h.Expand()
		case BoxTypeTkhd:
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if tkhd, ok := payload.(*gomp4.Tkhd); ok && tkhd.TrackID == chapterTrackID {
				inChapterTrack = true
				info = &quickTimeTrackInfo{}
			}
		case BoxTypeMdia, BoxTypeMinf, BoxTypeStbl:
			if inChapterTrack {
				return h.Expand()
			}
		case BoxTypeMdhd:
			if inChapterTrack && info != nil {
				payload, _, err := h.ReadPayload()
				if err != nil {
					return nil, errors.WithStack(err)
				}
				if mdhd, ok := payload.(*gomp4.Mdhd); ok {
					info.timescale = mdhd.Timescale
				}
			}
		case BoxTypeStts:
			if inChapterTrack && info != nil {
				payload, _, err := h.ReadPayload()
				if err != nil {
					return nil, errors.WithStack(err)
				}
				if stts, ok := payload.(*gomp4.Stts); ok {
					for _, e := range stts.Entries {
						for i := uint32(0); i < e.SampleCount; i++ {
							info.sampleDeltas = append(info.sampleDeltas, e.SampleDelta)
						}
					}
				}
			}
		case BoxTypeStsc:
			if inChapterTrack && info != nil {
				payload, _, err := h.ReadPayload()
				if err != nil {
					return nil, errors.WithStack(err)
				}
				if stsc, ok := payload.(*gomp4.Stsc); ok {
					for _, e := range stsc.Entries {
						info.stsc = append(info.stsc, stscEntry{firstChunk: e.FirstChunk, samplesPerChunk: e.SamplesPerChunk})
					}
				}
			}
		case BoxTypeStsz:
			if inChapterTrack && info != nil {
				payload, _, err := h.ReadPayload()
				if err != nil {
					return nil, errors.WithStack(err)
				}
				if stsz, ok := payload.(*gomp4.Stsz); ok {
					if stsz.SampleSize > 0 {
						for i := uint32(0); i < stsz.SampleCount; i++ {
							info.sampleSizes = append(info.sampleSizes, stsz.SampleSize)
						}
					} else {
						info.sampleSizes = stsz.EntrySize
					}
				}
			}
		case BoxTypeStco:
			if inChapterTrack && info != nil {
				payload, _, err := h.ReadPayload()
				if err != nil {
					return nil, errors.WithStack(err)
				}
				if stco, ok := payload.(*gomp4.Stco); ok {
					for _, o := range stco.ChunkOffset {
						info.chunkOffsets = append(info.chunkOffsets, uint64(o))
					}
				}
			}
		case BoxTypeCo64:
			if inChapterTrack && info != nil {
				payload, _, err := h.ReadPayload()
				if err != nil {
					return nil, errors.WithStack(err)
				}
				if co64, ok := payload.(*gomp4.Co64); ok {
					info.chunkOffsets = co64.ChunkOffset
				}
			}
		}
		return nil, nil
	})
	if err != nil || info == nil || len(info.sampleSizes) == 0 {
		return nil, err
	}

	return readQuickTimeChapterSamples(r, info, movieTimescale), nil
}

func readQuickTimeChapterSamples(r io.ReadSeeker, info *quickTimeTrackInfo, movieTimescale uint32) []Chapter {
	timescale := info.timescale
	if timescale == 0 {
		timescale = movieTimescale
	}
	if timescale == 0 {
		timescale = 1000
	}

	offsets := sampleOffsetsFromChunks(info.chunkOffsets, info.stsc, info.sampleSizes)

	var chapters []Chapter
	var currentTime uint64
	for i, size := range info.sampleSizes {
		if i >= len(offsets) {
			break
		}
		// #nosec G115 -- sample offsets come from the file's own chunk table
		if _, err := r.Seek(int64(offsets[i]), io.SeekStart); err != nil {
			continue
		}
		sample := make([]byte, size)
		if _, err := io.ReadFull(r, sample); err != nil {
			continue
		}
		chapters = append(chapters, Chapter{
			Title: parseQuickTimeTextSample(sample),
			Start: unitsToDuration(currentTime, timescale),
		})
		if i < len(info.sampleDeltas) {
			currentTime += uint64(info.sampleDeltas[i])
		}
	}
	for i := range chapters {
		if i < len(chapters)-1 {
			chapters[i].End = chapters[i+1].Start
		}
	}
	return chapters
}

// unitsToDuration converts a timescale-relative sample time into a
// time.Duration, mirroring durationMs's timescale/duration arithmetic.
func unitsToDuration(units uint64, timescale uint32) time.Duration {
	if timescale == 0 {
		return 0
	}
	return time.Duration(float64(units) / float64(timescale) * float64(time.Second))
}

func sampleOffsetsFromChunks(chunkOffsets []uint64, stsc []stscEntry, sampleSizes []uint32) []uint64 {
	if len(chunkOffsets) == 0 {
		return nil
	}
	offsets := make([]uint64, 0, len(sampleSizes))
	sampleIndex := 0
	chunkNum := uint32(0)
	for _, chunkOffset := range chunkOffsets {
		chunkNum++
		samplesInChunk := uint32(1)
		for _, e := range stsc {
			if chunkNum >= e.firstChunk {
				samplesInChunk = e.samplesPerChunk
			}
		}
		cur := chunkOffset
		for s := uint32(0); s < samplesInChunk && sampleIndex < len(sampleSizes); s++ {
			offsets = append(offsets, cur)
			cur += uint64(sampleSizes[sampleIndex])
			sampleIndex++
		}
	}
	return offsets
}

// parseQuickTimeTextSample reads a QuickTime text-track sample's title:
// [2 bytes length][text][optional style atoms, ignored].
func parseQuickTimeTextSample(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	textLen := int(binary.BigEndian.Uint16(data[0:2]))
	if textLen > len(data)-2 {
		textLen = len(data) - 2
	}
	if textLen <= 0 {
		return ""
	}
	return string(data[2 : 2+textLen])
}
