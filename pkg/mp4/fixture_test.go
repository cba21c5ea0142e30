package mp4

import "encoding/binary"

// buildMinimalFixture assembles a tiny, valid ftyp/moov/mdat M4A file with
// one audio track (one chunk, one sample) and a single ©nam ilst field, for
// tests that need a real file to Open/Save rather than hand-built box
// fragments. mdatPayload becomes the sole sample; its size must match what
// the caller wants stsz to report.
//
// The chunk offset stco must record is only known once the full prefix
// (everything before mdat's payload) has been assembled, so this builds the
// moov tree twice: once to measure that prefix, then again with the real
// offset baked into stco from the start, rather than patching a byte range
// into an already-built (and already copied-into-its-parents) box.
func buildMinimalFixture(title string, mdatPayload []byte) []byte {
	build := func(chunkOffset uint32) (ftyp, moov []byte) {
		ftyp = buildBoxBytes("ftyp", append([]byte("M4A "), 0, 0, 2, 0, 'M', '4', 'A', ' ', 'm', 'p', '4', '2', 'i', 's', 'o', 'm'))

		mvhdContent := make([]byte, 100)
		binary.BigEndian.PutUint32(mvhdContent[8:12], 1000)
		binary.BigEndian.PutUint32(mvhdContent[12:16], 5000)
		mvhd := buildBoxBytes("mvhd", mvhdContent)

		tkhdContent := make([]byte, 84)
		binary.BigEndian.PutUint32(tkhdContent[12:16], 1) // track_ID
		tkhd := buildBoxBytes("tkhd", tkhdContent)

		mdhdContent := make([]byte, 24)
		binary.BigEndian.PutUint32(mdhdContent[8:12], 1000)
		binary.BigEndian.PutUint32(mdhdContent[12:16], 5000)
		mdhd := buildBoxBytes("mdhd", mdhdContent)

		hdlrMdiaContent := make([]byte, 25)
		copy(hdlrMdiaContent[8:12], "soun")
		hdlrMdia := buildBoxBytes("hdlr", hdlrMdiaContent)

		mp4aEntry := make([]byte, 28)
		binary.BigEndian.PutUint16(mp4aEntry[6:8], 1)    // data_reference_index
		binary.BigEndian.PutUint16(mp4aEntry[16:18], 2)  // channel count
		binary.BigEndian.PutUint16(mp4aEntry[18:20], 16) // sample size
		binary.BigEndian.PutUint32(mp4aEntry[24:28], 44100<<16)
		mp4aBox := buildBoxBytes("mp4a", mp4aEntry)

		stsdContent := make([]byte, 8)
		binary.BigEndian.PutUint32(stsdContent[4:8], 1)
		stsd := buildBoxBytes("stsd", append(stsdContent, mp4aBox...))

		sttsContent := make([]byte, 16)
		binary.BigEndian.PutUint32(sttsContent[4:8], 1)
		binary.BigEndian.PutUint32(sttsContent[8:12], 1)
		binary.BigEndian.PutUint32(sttsContent[12:16], 1000)
		stts := buildBoxBytes("stts", sttsContent)

		stscContent := make([]byte, 20)
		binary.BigEndian.PutUint32(stscContent[4:8], 1)
		binary.BigEndian.PutUint32(stscContent[8:12], 1)
		binary.BigEndian.PutUint32(stscContent[12:16], 1)
		binary.BigEndian.PutUint32(stscContent[16:20], 1)
		stsc := buildBoxBytes("stsc", stscContent)

		stszContent := make([]byte, 20)
		binary.BigEndian.PutUint32(stszContent[8:12], 1)
		binary.BigEndian.PutUint32(stszContent[12:16], uint32(len(mdatPayload))) //nolint:gosec // test fixture, size is tiny
		stsz := buildBoxBytes("stsz", stszContent)

		stcoContent := make([]byte, 12)
		binary.BigEndian.PutUint32(stcoContent[4:8], 1)
		binary.BigEndian.PutUint32(stcoContent[8:12], chunkOffset)
		stco := buildBoxBytes("stco", stcoContent)

		stbl := buildBoxBytes("stbl", concatBytes(stsd, stts, stsc, stsz, stco))
		minf := buildBoxBytes("minf", stbl)
		mdia := buildBoxBytes("mdia", concatBytes(mdhd, hdlrMdia, minf))
		trak := buildBoxBytes("trak", concatBytes(tkhd, mdia))

		hdlrMetaContent := make([]byte, 25)
		copy(hdlrMetaContent[8:12], "mdir")
		hdlrMeta := buildBoxBytes("hdlr", hdlrMetaContent)

		var ilst []byte
		if title != "" {
			ilst = buildBoxBytes("ilst", buildTextAtom(AtomTitle, title))
		} else {
			ilst = buildBoxBytes("ilst", nil)
		}
		metaContent := append([]byte{0, 0, 0, 0}, concatBytes(hdlrMeta, ilst)...)
		meta := buildBoxBytes("meta", metaContent)
		udta := buildBoxBytes("udta", meta)

		moov = buildBoxBytes("moov", concatBytes(mvhd, trak, udta))
		return ftyp, moov
	}

	ftyp, moov := build(0)
	prefixLen := len(ftyp) + len(moov) + 8 // +8 for mdat's own header
	ftyp, moov = build(uint32(prefixLen))  //nolint:gosec // test fixture, size is tiny

	mdat := buildBoxBytes("mdat", mdatPayload)

	return concatBytes(ftyp, moov, mdat)
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
