package resources

import "github.com/spaghettifunk/anima-assets/engine/assets/loaders"

// Importers turn source files into CPU-side data. They may be called from
// worker goroutines.

type ImageImporter interface {
	ImportImage(path string, params loaders.ImageParams) (*loaders.ImageData, error)
}

type CubemapImporter interface {
	ImportCubemap(path string) (*loaders.CubemapData, error)
}

type ModelImporter interface {
	ImportModel(path string) (*loaders.ModelData, error)
}

type FontImporter interface {
	ImportFont(path string) (*loaders.FontData, error)
}

type ShaderImporter interface {
	ImportShader(path string) (*loaders.ShaderData, error)
}

// Importer is everything the built-in resource types import through.
type Importer interface {
	ImageImporter
	CubemapImporter
	ModelImporter
	FontImporter
	ShaderImporter
}
