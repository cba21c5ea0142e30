// Command print-mp4-atoms dumps an MP4/ISO-BMFF file's box tree with
// offsets and sizes, independent of this module's tag-aware parsing — handy
// for inspecting a file the metadata reader rejects or misreads.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// containerBoxes are the box types this dumper recurses into; everything
// else is printed as an opaque leaf.
var containerBoxes = map[string]bool{
	"moov": true, "trak": true, "mdia": true, "minf": true,
	"stbl": true, "udta": true, "meta": true, "ilst": true,
	"----": true,
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <path/to/file.m4a>\n", os.Args[0])
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1]) //nolint:gosec // debug tool, path is operator-supplied
	if err != nil {
		fmt.Fprintf(os.Stderr, "open error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stat error: %v\n", err)
		os.Exit(1)
	}

	if err := dumpBoxes(f, 0, info.Size(), 0); err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}
}

func dumpBoxes(r io.ReadSeeker, start, end int64, depth int) error {
	pos := start
	// "meta" carries 4 flag bytes before its children; a bare offset bump
	// here is simpler than threading that exception through every caller.
	for pos < end {
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if pos == start {
				return nil
			}
			return err
		}
		size := int64(binary.BigEndian.Uint32(header[0:4]))
		boxType := string(header[4:8])
		headerSize := int64(8)
		if size == 1 {
			var ext [8]byte
			if _, err := io.ReadFull(r, ext[:]); err != nil {
				return err
			}
			size = int64(binary.BigEndian.Uint64(ext[:])) //nolint:gosec // debug tool, trusts file-declared size
			headerSize = 16
		} else if size == 0 {
			size = end - pos
		}
		if size < headerSize || pos+size > end {
			return fmt.Errorf("box %q at offset %d declares invalid size %d", boxType, pos, size)
		}

		fmt.Printf("%s%s  offset=%d size=%d\n", indent(depth), boxType, pos, size)

		childStart := pos + headerSize
		if boxType == "meta" {
			childStart += 4
		}
		if containerBoxes[boxType] {
			if err := dumpBoxes(r, childStart, pos+size, depth+1); err != nil {
				return err
			}
		}

		pos += size
	}
	return nil
}

func indent(depth int) string {
	buf := make([]byte, depth*2)
	for i := range buf {
		buf[i] = ' '
	}
	return string(buf)
}
