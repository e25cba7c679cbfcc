package resources

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

const ShaderExtension = ".ashader"

// Shader is a single stage, as source text or SPIR-V.
type Shader struct {
	Base

	importer ShaderImporter
	data     *loaders.ShaderData
}

func NewShader(importer ShaderImporter) *Shader {
	return &Shader{
		Base:     NewBase(ResourceTypeShader),
		importer: importer,
	}
}

func (s *Shader) LoadFromFile(path string) error {
	return s.Decode(path)
}

func (s *Shader) Decode(path string) error {
	if isNative(path, ShaderExtension) {
		data := &loaders.ShaderData{}
		if err := ReadResourceFile(path, ResourceTypeShader, data); err != nil {
			return err
		}
		s.data = data
		return nil
	}
	if s.importer == nil {
		return fmt.Errorf("%w: shader %q has no importer", core.ErrInvalidParameter, s.Name())
	}
	data, err := s.importer.ImportShader(path)
	if err != nil {
		return err
	}
	s.data = data
	return nil
}

func (s *Shader) Data() *loaders.ShaderData {
	return s.data
}

func (s *Shader) Stage() loaders.ShaderStage {
	if s.data == nil {
		return loaders.ShaderStageUnknown
	}
	return s.data.Stage
}

func (s *Shader) MemoryUsage() uint64 {
	if s.data == nil {
		return 0
	}
	return s.data.MemoryUsage()
}

func (s *Shader) Release() {
	s.data = nil
}

func (s *Shader) NativeExtension() string {
	return ShaderExtension
}

func (s *Shader) SaveToFile(path string) error {
	if s.data == nil {
		return fmt.Errorf("%w: shader %q is not loaded", core.ErrNotSavable, s.Name())
	}
	return WriteResourceFile(path, ResourceTypeShader, s.data)
}
