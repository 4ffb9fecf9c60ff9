// Package separation names the interface to the external source-separation
// model. The model itself is a pretrained black box; this package only knows
// how to invoke it and where the four stems land.
package separation

import "context"

// Stems holds the paths of the four separated component files.
type Stems struct {
	Vocals string `json:"vocals"`
	Drums  string `json:"drums"`
	Bass   string `json:"bass"`
	Other  string `json:"other"`
}

// Separator splits a mixed track into vocals, drums, bass and other stems,
// writing them under outDir.
type Separator interface {
	Separate(ctx context.Context, inputPath, outDir string) (Stems, error)
	Close() error
}
