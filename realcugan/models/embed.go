//go:build embed_models

package models

import "embed"

//go:embed models-se models-pro models-nose
var files embed.FS

func init() {
	embedded = files
}
