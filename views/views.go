// Package views embeds the gateway's HTML templates so the binary ships
// self-contained.
package views

import (
	"embed"
)

//go:embed *.html
var FS embed.FS
