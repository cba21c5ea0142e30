package mp4

import "github.com/gabriel-vasile/mimetype"

// detectPictureMIME identifies an embedded picture's MIME type. The iTunes
// data-type code is authoritative when present (handled by the caller
// before this is reached); this is the fallback path for covers whose
// data-type byte doesn't match any of JPEG/PNG/BMP, using mimetype's fuller
// signature table rather than the handful of magic bytes bytesio knows,
// since a cover atom found in the wild can plausibly hold any image
// container a cover-art tool bothered to embed.
func detectPictureMIME(data []byte) string {
	mtype := mimetype.Detect(data)
	return mtype.String()
}

// pictureDataType maps a MIME type to the iTunes data-type code used when
// writing a covr atom. Formats with no iTunes data-type code (anything but
// JPEG/PNG/BMP) are written as DataTypeJPEG with their original bytes,
// matching the convention several existing taggers use for covers iTunes
// itself doesn't recognize.
func pictureDataType(mimeType string) int {
	switch mimeType {
	case "image/png":
		return DataTypePNG
	case "image/bmp", "image/x-ms-bmp":
		return DataTypeBMP
	default:
		return DataTypeJPEG
	}
}
