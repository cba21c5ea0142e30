package mp4

// Config tunes how Open and Save behave. The zero value is the sane
// default for reading; Save additionally consults the padding fields.
type Config struct {
	// ReadAllMetaFrames keeps every ilst child this module doesn't map to a
	// named Metadata field as an AdditionalField instead of silently
	// dropping it. Off by default, matching a reader that only surfaces
	// fields it understands.
	ReadAllMetaFrames bool

	// UseFileNameWhenNoTitle falls back to the base file name (extension
	// stripped) for Metadata.Title when the file has no ©nam atom at all.
	UseFileNameWhenNoTitle bool

	// AddNewPadding is passed to structtag.PaddingPolicy. Save writes padding
	// only into a root free/skip box the file already has; on a file without
	// one, no free box is created and this flag has no effect on the output.
	AddNewPadding bool

	// DefaultPaddingSize is the padding size AddNewPadding asks for.
	DefaultPaddingSize int64

	// PaddingCeiling bounds how much growth a save will absorb by shrinking
	// existing padding before letting mdat move; see structtag.PaddingPolicy.
	PaddingCeiling int64

	// MinPaddingSize is the smallest a padding box is allowed to shrink to
	// while still existing as a box (8 covers a bare header).
	MinPaddingSize int64

	// EnableLogging is carried through from configuration; Open and Save do
	// not read it and emit no log output.
	EnableLogging bool
}

// DefaultConfig returns the recommended configuration for callers to pass
// to Open; Open itself always uses the Config it is given.
func DefaultConfig() Config {
	return Config{
		AddNewPadding:      true,
		DefaultPaddingSize: 1024,
		PaddingCeiling:     4096,
		MinPaddingSize:     8,
	}
}
