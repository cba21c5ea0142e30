package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"

	"github.com/rotabyte/mp4tag/pkg/mp4"
)

func main() {
	log := logger.New()

	var opts struct {
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the first embedded picture"`
		AllFields   bool   `short:"a" long:"all-fields" description:"Surface unmapped ilst atoms as additional fields"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-mp4 <path/to/file.m4a>")
		os.Exit(1)
	}

	f, err := mp4.Open(args[0], mp4.Config{ReadAllMetaFrames: opts.AllFields})
	if err != nil {
		log.Err(err).Fatal("mp4 open error")
	}
	meta := f.Metadata()

	fmt.Printf("Title: %q\n", meta.Title)
	fmt.Printf("Artist: %q\n", meta.Artist)
	fmt.Printf("AlbumArtist: %q\n", meta.AlbumArtist)
	fmt.Printf("Album: %q\n", meta.Album)
	fmt.Printf("Composer: %q\n", meta.Composer)
	fmt.Printf("Conductor: %q\n", meta.Conductor)
	fmt.Printf("Genre: %q\n", meta.Genre)
	fmt.Printf("Publisher: %q\n", meta.Publisher)
	fmt.Printf("Copyright: %q\n", meta.Copyright)
	fmt.Printf("Description: %q\n", meta.Description)
	fmt.Printf("Year: %q\n", meta.Year)
	fmt.Printf("TrackNumber/Total: %d/%d\n", meta.TrackNumber, meta.TrackTotal)
	fmt.Printf("DiscNumber/Total: %d/%d\n", meta.DiscNumber, meta.DiscTotal)
	fmt.Printf("Popularity: %.2f\n", meta.Popularity)
	fmt.Printf("CodecFamily: %s\n", meta.CodecFamily)
	fmt.Printf("Bitrate: %d bps\n", meta.Bitrate)
	fmt.Printf("SampleRate: %d Hz\n", meta.SampleRate)
	fmt.Printf("DurationMs: %d\n", meta.DurationMs)
	fmt.Printf("ChannelsArrangement: %s\n", meta.ChannelsArrangement)
	fmt.Printf("Pictures: %d\n", len(meta.EmbeddedPictures))
	fmt.Printf("Chapters: %d\n", len(meta.Chapters))
	for i, ch := range meta.Chapters {
		fmt.Printf("  %d. %q [%v - %v]\n", i+1, ch.Title, ch.Start, ch.End)
	}
	for _, af := range meta.AdditionalFields {
		fmt.Printf("----:%s:%s = %q\n", af.Mean, af.Name, af.Value)
	}

	if opts.CoverOutput != "" && len(meta.EmbeddedPictures) > 0 {
		pic := meta.EmbeddedPictures[0]
		out, err := os.Create(opts.CoverOutput) //nolint:gosec // debug tool, path is operator-supplied
		if err != nil {
			log.Err(err).Fatal("create file error")
		}
		defer out.Close()
		if _, err := out.Write(pic.Data); err != nil {
			log.Err(err).Fatal("file write error")
		}
	}
}
