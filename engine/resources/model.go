package resources

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

const ModelExtension = ".amodel"

// Model keeps imported mesh data on the CPU.
type Model struct {
	Base

	importer ModelImporter
	data     *loaders.ModelData
}

func NewModel(importer ModelImporter) *Model {
	return &Model{
		Base:     NewBase(ResourceTypeModel),
		importer: importer,
	}
}

func (m *Model) LoadFromFile(path string) error {
	return m.Decode(path)
}

func (m *Model) Decode(path string) error {
	if isNative(path, ModelExtension) {
		data := &loaders.ModelData{}
		if err := ReadResourceFile(path, ResourceTypeModel, data); err != nil {
			return err
		}
		m.data = data
		return nil
	}
	if m.importer == nil {
		return fmt.Errorf("%w: model %q has no importer", core.ErrInvalidParameter, m.Name())
	}
	data, err := m.importer.ImportModel(path)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

// SetData replaces the meshes, for models built in code.
func (m *Model) SetData(data *loaders.ModelData) {
	m.data = data
}

func (m *Model) Data() *loaders.ModelData {
	return m.data
}

func (m *Model) MemoryUsage() uint64 {
	if m.data == nil {
		return 0
	}
	return m.data.MemoryUsage()
}

func (m *Model) Release() {
	m.data = nil
}

func (m *Model) NativeExtension() string {
	return ModelExtension
}

func (m *Model) SaveToFile(path string) error {
	if m.data == nil {
		return fmt.Errorf("%w: model %q holds no meshes", core.ErrNotSavable, m.Name())
	}
	return WriteResourceFile(path, ResourceTypeModel, m.data)
}
