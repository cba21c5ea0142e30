package structtag

import (
	"io"

	"github.com/rotabyte/mp4tag/pkg/bytesio"
	"github.com/rotabyte/mp4tag/pkg/tagerr"
)

// ZoneContent supplies the replacement bytes for a zone during ApplyDeltas.
// The length of the returned slice is the zone's new size; callers compute
// it however they like (serializing an ilst, building a chpl box, growing a
// free box) before the rewrite begins.
type ZoneContent map[string][]byte

// PaddingPolicy controls how a padding zone absorbs size changes so that
// non-padding containers (and therefore mdat) move as little as possible.
type PaddingPolicy struct {
	// PaddingZone names the zone to grow/shrink to absorb deltas. Empty
	// means no padding absorption is attempted.
	PaddingZone string
	// Ceiling is the largest positive net delta that padding will absorb
	// by shrinking; above it, padding shrinks to its floor and the
	// remainder is left to move mdat. Zero means no ceiling (always
	// absorb when there's enough padding to shrink).
	Ceiling int64
	// AddNewPadding creates a padding zone of DefaultPaddingSize bytes if
	// none exists and the net delta is positive.
	AddNewPadding bool
	// DefaultPaddingSize is the size of padding created by AddNewPadding.
	DefaultPaddingSize int64
	// MinPaddingSize is the smallest a padding box may shrink to while
	// still existing (an 8-byte box header with no payload).
	MinPaddingSize int64
}

// ResolveZoneSizes takes the caller's desired sizes for the non-padding
// zones it is actually rewriting and folds in the padding zone's new size
// per policy, returning a size map holding every entry of newSizes plus
// the padding zone's size when policy sets one. Zones the caller didn't
// mention keep their current
// bytes re-read from r at Apply time (handled by ApplyDeltas itself via the
// sizes map, not this function) — ResolveZoneSizes only decides padding.
func (h *Helper) ResolveZoneSizes(newSizes map[string]int64, policy PaddingPolicy) map[string]int64 {
	resolved := make(map[string]int64, len(newSizes)+1)
	for k, v := range newSizes {
		resolved[k] = v
	}

	if policy.PaddingZone == "" {
		return resolved
	}

	var netDelta int64
	for _, z := range h.SortedZones() {
		if z.Padding || z.Name == policy.PaddingZone {
			continue
		}
		newSize, ok := resolved[z.Name]
		if !ok {
			continue
		}
		netDelta += newSize - z.Size
	}

	padZone, hasPad := h.Zone(policy.PaddingZone)
	minPad := policy.MinPaddingSize
	if !hasPad {
		if netDelta > 0 && policy.AddNewPadding {
			size := policy.DefaultPaddingSize
			resolved[policy.PaddingZone] = size
		}
		return resolved
	}

	switch {
	case netDelta <= 0:
		// Non-padding content shrank (or is unchanged): grow padding to
		// absorb all of it so the file size, and mdat's offset, don't move.
		resolved[policy.PaddingZone] = padZone.Size - netDelta
	case policy.Ceiling == 0 || netDelta <= policy.Ceiling:
		// Small growth: shrink padding to absorb it if there's enough.
		newPad := padZone.Size - netDelta
		if newPad < minPad {
			newPad = minPad
		}
		resolved[policy.PaddingZone] = newPad
	default:
		// Growth exceeds what padding can reasonably absorb; let it flow
		// through to a real file growth and shrink padding to its floor.
		resolved[policy.PaddingZone] = minPad
	}

	return resolved
}

// ApplyDeltas performs the single-pass rewrite: it streams r to w, copying
// everything outside a zone verbatim except for dependent-field bytes
// (overwritten in place with their recomputed value), and substitutes each
// zone's original bytes with content[zone.Name] in ascending offset order.
//
// newSizes must include an entry for every zone whose size is changing;
// zones absent from newSizes are assumed unchanged and their original
// bytes are copied through (content must still supply their bytes if the
// zone is touched at all — omit untouched zones from both maps).
func (h *Helper) ApplyDeltas(r io.ReadSeeker, w io.Writer, newSizes map[string]int64, content ZoneContent) error {
	deltas := make(map[string]int64, len(h.zones))
	for name, z := range h.zones {
		newSize, ok := newSizes[name]
		if !ok {
			newSize = z.Size
		}
		deltas[name] = newSize - z.Size
	}

	var globalDelta int64
	for _, z := range h.zones {
		if !z.Padding {
			globalDelta += deltas[z.Name]
		}
	}

	patched, err := h.computePatches(deltas, globalDelta)
	if err != nil {
		return err
	}

	zones := h.SortedZones()
	var cursor int64
	for _, z := range zones {
		if err := copyVerbatimWithPatches(r, w, cursor, z.Offset, patched); err != nil {
			return err
		}
		newBytes, ok := content[z.Name]
		if !ok {
			newBytes, err = readRegion(r, z.Offset, z.Size)
			if err != nil {
				return err
			}
		}
		if _, err := w.Write(newBytes); err != nil {
			return tagerr.Malformed("write error: " + err.Error())
		}
		cursor = z.Offset + z.Size
	}
	return copyVerbatimWithPatches(r, w, cursor, h.fileSize, patched)
}

type patch struct {
	location int64
	bytes    []byte
}

func (h *Helper) computePatches(deltas map[string]int64, globalDelta int64) ([]patch, error) {
	zones := h.SortedZones()
	patches := make([]patch, 0, len(h.dependents))
	for _, d := range h.dependents {
		var newValue uint64
		switch d.Kind {
		case KindSize:
			if d.Scope == globalScope {
				newValue = addSignedDelta(d.Current, globalDelta)
			} else {
				newValue = addSignedDelta(d.Current, deltas[string(d.Scope)])
			}
		case KindOffsetIndex:
			var before int64
			referenced := int64(d.Current)
			for _, z := range zones {
				if z.Offset < referenced {
					before += deltas[z.Name]
				}
			}
			newValue = addSignedDelta(d.Current, before)
		default:
			return nil, tagerr.Programmer("unknown dependent kind")
		}
		raw, err := bytesio.PutUintBE(d.Width, newValue)
		if err != nil {
			return nil, tagerr.Overflow(err.Error())
		}
		patches = append(patches, patch{location: d.Location, bytes: raw})
	}
	return patches, nil
}

func addSignedDelta(current uint64, delta int64) uint64 {
	if delta >= 0 {
		return current + uint64(delta)
	}
	neg := uint64(-delta)
	if neg > current {
		return 0
	}
	return current - neg
}

// copyVerbatimWithPatches copies r[from:to) to w, substituting any patch
// whose range falls entirely within [from, to).
func copyVerbatimWithPatches(r io.ReadSeeker, w io.Writer, from, to int64, patches []patch) error {
	if to <= from {
		return nil
	}
	buf, err := readRegion(r, from, to-from)
	if err != nil {
		return err
	}
	for _, p := range patches {
		start := p.location - from
		end := start + int64(len(p.bytes))
		if start < 0 || end > int64(len(buf)) {
			continue
		}
		copy(buf[start:end], p.bytes)
	}
	if _, err := w.Write(buf); err != nil {
		return tagerr.Malformed("write error: " + err.Error())
	}
	return nil
}

func readRegion(r io.ReadSeeker, offset, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, tagerr.Malformed("seek error: " + err.Error())
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, tagerr.Malformed("read error: " + err.Error())
	}
	return buf, nil
}
