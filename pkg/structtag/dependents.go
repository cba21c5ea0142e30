package structtag

import "github.com/rotabyte/mp4tag/pkg/tagerr"

// DependentKind distinguishes the two kinds of integer the helper tracks.
type DependentKind int

const (
	// KindSize fields store the byte size of a box; their scope is either
	// global (tracks every non-padding zone's delta) or a single named
	// zone.
	KindSize DependentKind = iota
	// KindOffsetIndex fields store an absolute file offset (a chunk
	// offset table entry); they track the signed sum of deltas of every
	// zone located strictly before the offset they reference.
	KindOffsetIndex
)

// sizeScope identifies what a size dependent tracks: the empty string
// means global, anything else names a zone.
type sizeScope string

const globalScope sizeScope = ""

// DependentField is a pointer to an integer stored elsewhere in the file
// whose value must be kept equal to a function of zone sizes.
type DependentField struct {
	Kind     DependentKind
	Location int64
	Width    int
	Current  uint64
	Scope    sizeScope // only meaningful for KindSize
}

// AddSizeGlobal declares a container-size field whose value tracks the sum
// of deltas of every non-padding zone in the file (e.g. moov/udta/meta box
// sizes).
func (h *Helper) AddSizeGlobal(location int64, current uint64, width int) error {
	return h.addSize(location, current, width, globalScope)
}

// AddSizeForZone declares a container-size field whose value tracks only
// the delta of the named zone (e.g. an MP4 meta box's size field, scoped to
// the ilst zone it encloses).
func (h *Helper) AddSizeForZone(location int64, current uint64, width int, zoneName string) error {
	if zoneName == "" {
		return tagerr.Programmer("zone-scoped size dependent requires a zone name")
	}
	return h.addSize(location, current, width, sizeScope(zoneName))
}

func (h *Helper) addSize(location int64, current uint64, width int, scope sizeScope) error {
	if err := h.checkLocation(location, width); err != nil {
		return err
	}
	h.dependents = append(h.dependents, &DependentField{
		Kind: KindSize, Location: location, Width: width, Current: current, Scope: scope,
	})
	return nil
}

// AddOffsetIndex declares a chunk-offset field: current holds an absolute
// file offset that must be incremented by the signed sum of deltas of all
// zones located before it.
func (h *Helper) AddOffsetIndex(location int64, current uint64, width int) error {
	if err := h.checkLocation(location, width); err != nil {
		return err
	}
	h.dependents = append(h.dependents, &DependentField{
		Kind: KindOffsetIndex, Location: location, Width: width, Current: current,
	})
	return nil
}

func (h *Helper) checkLocation(location int64, width int) error {
	if location < 0 || width <= 0 || location+int64(width) > h.fileSize {
		return tagerr.Malformed("dependent field location outside file bounds")
	}
	return nil
}

// Dependents returns every registered dependent field.
func (h *Helper) Dependents() []DependentField {
	out := make([]DependentField, len(h.dependents))
	for i, d := range h.dependents {
		out[i] = *d
	}
	return out
}
