package mp4

import "time"

// CodecFamily identifies the broad codec family of the primary audio track,
// derived from the stsd sample entry and (when present) the esds decoder
// config descriptor.
type CodecFamily string

const (
	CodecUnknown CodecFamily = ""
	CodecAAC     CodecFamily = "aac"
	CodecALAC    CodecFamily = "alac"
	CodecEAC3    CodecFamily = "eac3"
	CodecAC3     CodecFamily = "ac3"
	CodecMP3     CodecFamily = "mp3"
)

// ChannelsArrangement is a coarse summary of the primary audio track's
// channel layout.
type ChannelsArrangement string

const (
	ChannelsUnknown ChannelsArrangement = ""
	ChannelsMono    ChannelsArrangement = "mono"
	ChannelsStereo  ChannelsArrangement = "stereo"
	ChannelsSurround ChannelsArrangement = "surround"
)

// PictureType mirrors the ID3v2 APIC type vocabulary so covers read from any
// coexisting tag format share one enumeration.
type PictureType int

const (
	PictureOther PictureType = iota
	PictureCoverFront
	PictureCoverBack
)

// Picture is a single embedded image: one "data" child of the iTunes "covr"
// atom, which may hold several.
type Picture struct {
	Type        PictureType
	MimeType    string
	Description string
	Data        []byte
}

// Chapter is a single named timeline marker, sourced from either a Nero
// chpl box or a QuickTime chapter text track (QuickTime takes priority when
// both are present, see populatePhysicalProperties).
type Chapter struct {
	Title string
	Start time.Duration
	End   time.Duration
}

// AdditionalField is either a freeform (----) atom or a named atom this
// module doesn't map to a Metadata field. A non-empty Mean means a "----"
// atom, with Name/Mean forming the namespaced key iTunes uses. An empty
// Mean means Name is instead the raw 4-character code of a native atom
// (only populated when Config.ReadAllMetaFrames captured it); it is
// re-emitted on Save under that same code, not wrapped as "----".
type AdditionalField struct {
	Mean  string
	Name  string
	Value string
}

// TagScope selects which coexisting tag systems an operation applies to,
// per the coexistence policy: the MP4-native ilst is always in scope,
// while legacy ID3/APE trailers found in the file can be addressed
// independently.
type TagScope int

const (
	// ScopeNative selects only the MP4-native ilst/chpl metadata.
	ScopeNative TagScope = iota
	// ScopeLegacy selects only a coexisting ID3v1/ID3v2/APE tag.
	ScopeLegacy
	// ScopeAll selects every tag system found in the file.
	ScopeAll
)

// Metadata is the complete set of tag fields this module understands, read
// from or destined for the ilst box (and, for chapters, the chpl/chapter
// track). Save rebuilds the ilst from this struct, so a zero-value field is
// not written and disappears from the file; RemoveFields additionally drops
// the named fields even when they hold a value.
type Metadata struct {
	Title           string
	Artist          string
	Composer        string
	Comment         string
	Genre           string
	Album           string
	AlbumArtist     string
	Conductor       string
	Publisher       string
	Copyright       string
	OriginalArtist  string
	OriginalAlbum   string
	Description     string
	Date            string
	Year            string
	TrackNumber     int
	TrackTotal      int
	DiscNumber      int
	DiscTotal       int
	// Popularity is a star rating normalized to the range [0,1], regardless
	// of which rating convention (MediaMonkey/MusicBee's 0-100 scale, or
	// APE's half-star steps) the source atom used.
	Popularity      float64
	Chapters        []Chapter
	AdditionalFields []AdditionalField
	EmbeddedPictures []Picture

	// Physical/derived properties; read-only, never written back.
	Bitrate             int
	SampleRate          int
	DurationMs          int64
	IsVBR               bool
	CodecFamily         CodecFamily
	ChannelsArrangement ChannelsArrangement

	// RemoveFields names Metadata fields (by the names above), or
	// AdditionalFields (by "mean:name" or name), that Save omits from the
	// rebuilt ilst whatever their current value.
	RemoveFields []string
}
