// Package webui embeds the single-page interface served at /.
package webui

import _ "embed"

//go:embed static/index.html
var index []byte

// Index returns the page bytes.
func Index() []byte {
	return index
}
