// Package data embeds the bundled campaign documents.
package data

import (
	"embed"
	"io/fs"
)

//go:embed campaigns/*.json campaigns/*.yaml
var files embed.FS

// Campaigns returns the bundled campaign directory, one document per file
// named after its campaign id.
func Campaigns() fs.FS {
	sub, err := fs.Sub(files, "campaigns")
	if err != nil {
		panic(err)
	}
	return sub
}
