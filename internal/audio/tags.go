package audio

import (
	"os"

	"github.com/dhowden/tag"
)

// Meta holds the subset of container metadata the pipeline cares about.
type Meta struct {
	Title  string
	Artist string
}

// ReadTags extracts title/artist metadata from the file when present.
// Missing or unreadable tags are not an error; analysis works without them.
func ReadTags(path string) Meta {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Meta{}
	}
	return Meta{Title: m.Title(), Artist: m.Artist()}
}
