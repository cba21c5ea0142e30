package mp4

// id3v1Genres is the fixed ID3v1 genre table, extended with the Winamp
// additions through index 125 (Anime through Synthpop isn't included here
// since this module only needs to round-trip what's already reachable
// through the gnre atom, which predates those later additions).
var id3v1Genres = []string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel",
	"Noise", "AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative",
	"Instrumental Pop", "Instrumental Rock", "Ethnic", "Gothic", "Darkwave",
	"Techno-Industrial", "Electronic", "Pop-Folk", "Eurodance", "Dream",
	"Southern Rock", "Comedy", "Cult", "Gangsta", "Top 40", "Christian Rap",
	"Pop/Funk", "Jungle", "Native American", "Cabaret", "New Wave",
	"Psychadelic", "Rave", "Showtunes", "Trailer", "Lo-Fi", "Tribal",
	"Acid Punk", "Acid Jazz", "Polka", "Retro", "Musical", "Rock & Roll",
	"Hard Rock", "Folk", "Folk-Rock", "National Folk", "Swing", "Fast Fusion",
	"Bebob", "Latin", "Revival", "Celtic", "Bluegrass", "Avantgarde",
	"Gothic Rock", "Progressive Rock", "Psychedelic Rock", "Symphonic Rock",
	"Slow Rock", "Big Band", "Chorus", "Easy Listening", "Acoustic",
	"Humour", "Speech", "Chanson", "Opera", "Chamber Music", "Sonata",
	"Symphony", "Booty Bass", "Primus", "Porn Groove", "Satire", "Slow Jam",
	"Club", "Tango", "Samba", "Folklore", "Ballad", "Power Ballad",
	"Rhythmic Soul", "Freestyle", "Duet", "Punk Rock", "Drum Solo",
	"A capella", "Euro-House", "Dance Hall",
}

// genreIDToString converts a gnre atom's 1-based ID3v1 genre index to its
// name. MP4's gnre atom is 1-based; ID3v1 itself is 0-based.
func genreIDToString(id int) (string, bool) {
	idx := id - 1
	if idx < 0 || idx >= len(id3v1Genres) {
		return "", false
	}
	return id3v1Genres[idx], true
}

// genreStringToID converts a genre name back to its 1-based gnre index, for
// writers that prefer the compact numeric atom over the free-text ©gen
// atom when the name matches the fixed table exactly.
func genreStringToID(name string) (int, bool) {
	for i, g := range id3v1Genres {
		if g == name {
			return i + 1, true
		}
	}
	return 0, false
}
