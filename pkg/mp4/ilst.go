package mp4

import "io"

// ilstCoreSignature is the minimum valid bytes a rewritten-to-empty ilst
// zone must start with: an 8-byte box header declaring itself empty.
var ilstCoreSignature = []byte{0, 0, 0, 8, 'i', 'l', 's', 't'}

// readIlstChildren walks every child atom of an ilst box, populating meta
// from the ones this module maps to a named field and (when cfg requests
// it) preserving the rest as AdditionalFields.
func readIlstChildren(r io.ReadSeeker, ilstBox boxHeader, meta *Metadata, cfg Config) error {
	return forEachBox(r, ilstBox.payloadOffset(), ilstBox.end(), func(child boxHeader) error {
		switch {
		case child.Type == boxCode("----"):
			return readFreeformAtom(r, child, meta)
		case child.Type == AtomCover:
			return readCoverDataChildren(r, child, meta)
		}
		data, err := readDataChild(r, child)
		if err != nil {
			return err
		}
		if data == nil {
			return nil
		}
		applyIlstField(child.Type, data, meta, cfg)
		return nil
	})
}

// readDataChild finds the first "data" child of parent and returns its
// payload (the [version][type][locale][value] content iTunes atoms carry).
func readDataChild(r io.ReadSeeker, parent boxHeader) ([]byte, error) {
	if _, err := r.Seek(parent.payloadOffset(), io.SeekStart); err != nil {
		return nil, nil
	}
	hdr, found, err := findBox(r, parent.end(), boxCode("data"))
	if err != nil || !found {
		return nil, err
	}
	return readBytes(r, hdr.payloadOffset(), hdr.payloadSize())
}

// readCoverDataChildren iterates every "data" child of a covr atom, the
// iTunes convention for multiple embedded pictures, appending one Picture
// per child instead of collapsing to the first.
func readCoverDataChildren(r io.ReadSeeker, covr boxHeader, meta *Metadata) error {
	return forEachBox(r, covr.payloadOffset(), covr.end(), func(c boxHeader) error {
		if c.Type != boxCode("data") {
			return nil
		}
		data, err := readBytes(r, c.payloadOffset(), c.payloadSize())
		if err != nil {
			return nil //nolint:nilerr // a malformed data box just drops this picture
		}
		img, mime, ok := parseImageData(data)
		if !ok {
			return nil
		}
		if mime == "" {
			mime = detectPictureMIME(img)
		}
		meta.EmbeddedPictures = append(meta.EmbeddedPictures, Picture{
			Type: PictureCoverFront, MimeType: mime, Data: img,
		})
		return nil
	})
}

// itunesFreeformMean is the issuer string this module writes for the
// freeform fields it maps to named Metadata fields; readers accept any mean
// here since other taggers sometimes use their own.
const itunesFreeformMean = "com.apple.iTunes"

// freeformFieldNames are the "name" children of "----" atoms this module
// maps onto a named Metadata field instead of leaving them as
// AdditionalFields, because MP4/iTunes has no native atom for them.
const (
	freeformPublisher      = "PUBLISHER"
	freeformOriginalArtist = "ORIGINAL ARTIST"
	freeformOriginalAlbum  = "ORIGINAL ALBUM"
	freeformRating         = "RATING"
)

// readFreeformAtom decodes a "----" atom's mean/name/data children, routing
// the handful of names this module treats specially to their Metadata field
// and everything else to AdditionalFields.
func readFreeformAtom(r io.ReadSeeker, box boxHeader, meta *Metadata) error {
	var mean, name string
	var data []byte
	err := forEachBox(r, box.payloadOffset(), box.end(), func(c boxHeader) error {
		switch c.Type {
		case boxCode("mean"):
			b, err := readBytes(r, c.payloadOffset()+4, c.payloadSize()-4)
			if err != nil {
				return nil //nolint:nilerr // a malformed mean box just drops this freeform atom
			}
			mean = string(b)
		case boxCode("name"):
			b, err := readBytes(r, c.payloadOffset()+4, c.payloadSize()-4)
			if err != nil {
				return nil //nolint:nilerr // a malformed name box just drops this freeform atom
			}
			name = string(b)
		case boxCode("data"):
			b, err := readBytes(r, c.payloadOffset(), c.payloadSize())
			if err != nil {
				return nil //nolint:nilerr // a malformed data box just drops this freeform atom
			}
			data = b
		}
		return nil
	})
	if err != nil {
		return err
	}
	if mean == "" || name == "" || len(data) == 0 {
		return nil
	}

	switch name {
	case freeformPublisher:
		meta.Publisher = parseTextData(data)
		return nil
	case freeformOriginalArtist:
		meta.OriginalArtist = parseTextData(data)
		return nil
	case freeformOriginalAlbum:
		meta.OriginalAlbum = parseTextData(data)
		return nil
	case freeformRating:
		if v, ok := parseIntegerData(data); ok {
			meta.Popularity = popularityFromRating(v)
		}
		return nil
	}

	meta.AdditionalFields = append(meta.AdditionalFields, AdditionalField{
		Mean: mean, Name: name, Value: parseTextData(data),
	})
	return nil
}

// popularityFromRating normalizes a raw rating integer to the [0,1] range.
// MediaMonkey/MusicBee store ratings on a 0-100 scale in 10-point (half-star)
// steps; this module always emits and expects that convention for the rtng
// atom, since MP4/iTunes (unlike APE) has no separate half-star encoding.
func popularityFromRating(raw int64) float64 {
	if raw <= 0 {
		return 0
	}
	p := float64(raw) / 100
	if p > 1 {
		return 1
	}
	return p
}

// ratingFromPopularity is the inverse of popularityFromRating, used when
// writing the rtng atom back out.
func ratingFromPopularity(p float64) int64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 100
	}
	return int64(p * 100)
}

func applyIlstField(boxType [4]byte, data []byte, meta *Metadata, cfg Config) {
	switch {
	case atomTypeEquals(boxType, AtomTitle):
		meta.Title = parseTextData(data)
	case atomTypeEquals(boxType, AtomArtist):
		meta.Artist = parseTextData(data)
	case atomTypeEquals(boxType, AtomAlbumArtist):
		meta.AlbumArtist = parseTextData(data)
	case atomTypeEquals(boxType, AtomAlbum):
		meta.Album = parseTextData(data)
	case atomTypeEquals(boxType, AtomComposer):
		meta.Composer = parseTextData(data)
	case atomTypeEquals(boxType, AtomConductor):
		meta.Conductor = parseTextData(data)
	case atomTypeEquals(boxType, AtomGenre):
		meta.Genre = parseTextData(data)
	case atomTypeEquals(boxType, AtomGenreID):
		if id, ok := parseIntegerData(data); ok {
			if name, ok := genreIDToString(int(id)); ok {
				meta.Genre = name
			}
		}
	case atomTypeEquals(boxType, AtomComment):
		meta.Comment = parseTextData(data)
	case atomTypeEquals(boxType, AtomYear):
		y := parseTextData(data)
		meta.Year = y
		meta.Date = y
	case atomTypeEquals(boxType, AtomCopyright):
		meta.Copyright = parseTextData(data)
	case atomTypeEquals(boxType, AtomDescription):
		meta.Description = parseTextData(data)
	case atomTypeEquals(boxType, AtomTrackNum):
		if idx, tot, ok := parsePairData(data); ok {
			meta.TrackNumber = idx
			meta.TrackTotal = tot
		}
	case atomTypeEquals(boxType, AtomDiscNum):
		if idx, tot, ok := parsePairData(data); ok {
			meta.DiscNumber = idx
			meta.DiscTotal = tot
		}
	case atomTypeEquals(boxType, AtomRating):
		if v, ok := parseIntegerData(data); ok {
			meta.Popularity = popularityFromRating(v)
		}
	default:
		if cfg.ReadAllMetaFrames {
			// Mean is left empty to mark this as a captured named atom
			// rather than a "----" freeform field: Name holds the raw
			// 4-character atom code, and buildIlst re-emits it under that
			// same code instead of wrapping it as "----".
			meta.AdditionalFields = append(meta.AdditionalFields, AdditionalField{
				Name: string(boxType[:]), Value: parseTextData(data),
			})
		}
	}
}
