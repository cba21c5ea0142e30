package mp4

import "github.com/rotabyte/mp4tag/pkg/tagerr"

// Errors returned by Open when the file fails the minimal structural checks
// this module requires before it will touch a file.
var (
	// ErrNotMP4 means the file doesn't start with a box this module
	// recognizes as ISO-BMFF (no ftyp, and the first box isn't
	// moov/mdat/free/skip/wide either — some very old QuickTime files omit
	// ftyp).
	ErrNotMP4 = tagerr.Unsupported("not a valid MP4/M4B file")

	// ErrNoMoov means the file has no moov box at all, so there is no tree
	// to register zones and dependents against.
	ErrNoMoov = tagerr.Malformed("file has no moov box")
)
