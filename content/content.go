// Package content bundles the sample adventure that runs when no game
// directory is configured.
package content

import (
	"embed"
	"io/fs"
)

//go:embed game/*.lua
var files embed.FS

// Game returns the sample adventure as a filesystem rooted at its .lua files.
func Game() fs.FS {
	sub, err := fs.Sub(files, "game")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return sub
}
