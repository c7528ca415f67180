// Package locales embeds the translation files shipped with the binary.
package locales

import "embed"

//go:embed *.json
var Files embed.FS
