// Package web holds the single-page upload UI, compiled into the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// FS returns the UI assets rooted at index.html.
func FS() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		// the embed directive guarantees the directory exists
		panic(err)
	}
	return sub
}
