// Package structtag is the generalized bookkeeping engine behind every
// in-place container rewrite in this module: it tracks the rewritable
// "zones" of a file and the "dependent fields" elsewhere in the file whose
// stored value tracks a zone's size or a zone's position relative to some
// absolute offset, then performs the single-pass delta rewrite that keeps
// all of it consistent. A container reader (MP4, or any future ISO-BMFF
// sibling) registers zones and dependents while it walks the box tree; the
// container writer hands it the new size of each zone and gets back a
// correctly patched file. Nothing in this package knows what a box, an
// atom or an ilst is.
package structtag

import (
	"sort"

	"github.com/rotabyte/mp4tag/pkg/tagerr"
)

// Zone is a named, contiguous byte range that the writer may replace with
// bytes of a different length.
type Zone struct {
	Name          string
	Offset        int64
	Size          int64
	CoreSignature []byte
	Padding       bool
}

func (z Zone) end() int64 { return z.Offset + z.Size }

// Helper maintains the zone table and the dependent-field table for a
// single file and knows how to replay a mutation as one streaming pass.
type Helper struct {
	fileSize   int64
	zones      map[string]*Zone
	zoneOrder  []string // insertion order, re-sorted by offset before use
	dependents []*DependentField
}

// New creates a Helper for a file of the given total size. fileSize is used
// to bounds-check zone and dependent locations.
func New(fileSize int64) *Helper {
	return &Helper{
		fileSize: fileSize,
		zones:    make(map[string]*Zone),
	}
}

// AddZone declares a rewritable region. name must be unique; offset/size
// must lie within the file and must not overlap any previously declared
// zone. coreSignature is the minimum bytes a newly emptied-then-recreated
// zone must start with (e.g. the 8-byte "size=8,type=ilst" header for an
// empty ilst); it is stored on the Zone and not checked by the helper.
func (h *Helper) AddZone(name string, offset, size int64, coreSignature []byte, padding bool) error {
	if _, exists := h.zones[name]; exists {
		return tagerr.Programmer("zone " + name + " already registered")
	}
	if offset < 0 || size < 0 || offset+size > h.fileSize {
		return tagerr.Programmer("zone " + name + " lies outside the file")
	}
	z := &Zone{Name: name, Offset: offset, Size: size, CoreSignature: coreSignature, Padding: padding}
	for _, existing := range h.zones {
		if zonesOverlap(*existing, *z) {
			return tagerr.Programmer("zone " + name + " overlaps zone " + existing.Name)
		}
	}
	h.zones[name] = z
	h.zoneOrder = append(h.zoneOrder, name)
	return nil
}

func zonesOverlap(a, b Zone) bool {
	if a.Size == 0 || b.Size == 0 {
		return false
	}
	return a.Offset < b.end() && b.Offset < a.end()
}

// Zone returns the currently registered zone by name, if any.
func (h *Helper) Zone(name string) (Zone, bool) {
	z, ok := h.zones[name]
	if !ok {
		return Zone{}, false
	}
	return *z, true
}

// SortedZones returns every registered zone ordered by ascending offset.
func (h *Helper) SortedZones() []Zone {
	out := make([]Zone, 0, len(h.zones))
	for _, name := range h.zoneOrder {
		out = append(out, *h.zones[name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// FileSize returns the total size the helper was constructed with.
func (h *Helper) FileSize() int64 { return h.fileSize }
