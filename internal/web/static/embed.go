// Package static embeds the built dashboard.
package static

import (
	"embed"
	"io/fs"
)

//go:embed all:dist/*
var distFS embed.FS

// Dashboard returns the dashboard files rooted at dist, and false when the
// dashboard was not built into the binary.
func Dashboard() (fs.FS, bool) {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		return nil, false
	}
	if _, err := fs.Stat(sub, "index.html"); err != nil {
		return nil, false
	}
	return sub, true
}
