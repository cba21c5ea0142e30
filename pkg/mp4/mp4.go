package mp4

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// File is an open handle onto one MP4/M4B container: its parsed tag values,
// plus the structural bookkeeping needed to rewrite it in place on Save.
// A File owns its stream exclusively for the duration of any one operation;
// sharing a File across goroutines is the caller's responsibility.
type File struct {
	path string
	cfg  Config

	meta       *Metadata
	st         *structure
	coexisting CoexistingTags
}

// Open reads path's full tag set and structural layout. The returned File's
// Metadata is safe to mutate in place before calling Save.
func Open(path string, cfg Config) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller-supplied by design; this is a library, not a server
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkFtyp(f); err != nil {
		return nil, err
	}

	coexisting, err := DetectCoexistingTags(f, info.Size())
	if err != nil {
		return nil, err
	}

	meta, st, err := readFile(f, info.Size(), cfg)
	if err != nil {
		return nil, err
	}

	if cfg.UseFileNameWhenNoTitle && meta.Title == "" {
		base := filepath.Base(path)
		meta.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &File{path: path, cfg: cfg, meta: meta, st: st, coexisting: coexisting}, nil
}

// CoexistingTags reports any legacy ID3v1/ID3v2/APEv2 tag found at Open,
// never re-scanned. Open rejects a file with an ID3v2 tag at its head
// (checkFtyp) and fails its root box walk on a trailing ID3v1 or APEv2 tag,
// so for a File that opened successfully these are normally all nil.
func (f *File) CoexistingTags() CoexistingTags { return f.coexisting }

// checkFtyp rejects files that don't look like ISO-BMFF at all: either they
// start with an ftyp box, or their first box is moov/mdat/free/skip/wide
// (some very old QuickTime files omit ftyp entirely).
func checkFtyp(r io.ReadSeeker) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	hdr, err := readBoxHeader(r, 0, 1<<62)
	if err != nil {
		return ErrNotMP4
	}
	switch hdr.Type {
	case boxCode("ftyp"), boxCode("moov"), boxCode("mdat"), boxCode("free"), boxCode("skip"), boxCode("wide"):
		return nil
	default:
		return ErrNotMP4
	}
}

// Metadata returns the tag and physical properties this File has in memory.
// Mutate the returned value's fields directly; Save writes back whatever
// it currently holds.
func (f *File) Metadata() *Metadata { return f.meta }

// Save commits every change made to f.Metadata() back to the underlying
// file. It never leaves a partially-written file behind: the new content is
// assembled in a temp file in the same directory and atomically renamed
// over the original, so a failure at any point leaves the original
// untouched.
func (f *File) Save() error {
	src, err := os.Open(f.path) //nolint:gosec // see Open
	if err != nil {
		return errors.WithStack(err)
	}
	defer src.Close()

	ss := &saveState{helper: f.st.helper, st: f.st, cfg: f.cfg}
	newSizes, content, err := serializeZones(f.meta, ss)
	if err != nil {
		return err
	}

	tmpPath := f.path + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // see Open
	if err != nil {
		return errors.WithStack(err)
	}

	if err := f.st.helper.ApplyDeltas(src, out, newSizes, content); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.WithStack(err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return errors.WithStack(err)
	}

	return nil
}

// Remove deletes an entire tagging system from the file. ScopeNative and
// ScopeAll both clear the native ilst/chpl tag and save; ScopeLegacy is a
// no-op, since this module never writes or removes ID3/APE tags itself.
func (f *File) Remove(scope TagScope) error {
	if scope == ScopeLegacy {
		return nil
	}
	f.meta = &Metadata{}
	f.meta.RemoveFields = []string{
		"Title", "Artist", "AlbumArtist", "Album", "Composer", "Conductor",
		"Comment", "Copyright", "Description", "Year", "Date", "Genre",
		"TrackNumber", "TrackTotal", "DiscNumber", "DiscTotal", "Popularity",
		"EmbeddedPictures", "Publisher", "OriginalArtist", "OriginalAlbum",
	}
	f.meta.Chapters = nil
	return f.Save()
}
