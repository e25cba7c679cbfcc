package assets

import "github.com/spaghettifunk/anima-assets/engine/assets/loaders"

// Loader decodes one family of source files. `interface{}` params let each
// loader take its own options struct.
type Loader interface {
	Load(path string, params interface{}) (*loaders.Asset, error)
}
