package loaders

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ShaderStage uint8

const (
	ShaderStageUnknown ShaderStage = iota
	ShaderStageVertex
	ShaderStageFragment
	ShaderStageCompute
	ShaderStageGeometry
)

var shaderStageNames = [...]string{"unknown", "vertex", "fragment", "compute", "geometry"}

func (s ShaderStage) String() string {
	if int(s) < len(shaderStageNames) {
		return shaderStageNames[s]
	}
	return fmt.Sprintf("ShaderStage(%d)", s)
}

// StageFromPath derives the stage from the stage extension, looking past a
// trailing .spv ("basic.vert.spv" is a vertex shader).
func StageFromPath(path string) ShaderStage {
	p := strings.ToLower(filepath.Base(path))
	// "lit.frag.spv" and "lit.frag.glsl" name the stage before the container
	switch filepath.Ext(p) {
	case ".spv", ".glsl", ".hlsl", ".wgsl":
		p = strings.TrimSuffix(p, filepath.Ext(p))
	}
	switch filepath.Ext(p) {
	case ".vert", ".vs":
		return ShaderStageVertex
	case ".frag", ".fs", ".ps":
		return ShaderStageFragment
	case ".comp", ".cs":
		return ShaderStageCompute
	case ".geom", ".gs":
		return ShaderStageGeometry
	}
	return ShaderStageUnknown
}

type ShaderData struct {
	Stage      ShaderStage
	EntryPoint string
	/** @brief Source text, empty for precompiled shaders. */
	Source string
	/** @brief SPIR-V words, empty for source shaders. */
	Bytecode []uint32
}

func (d *ShaderData) MemoryUsage() uint64 {
	return uint64(len(d.Source)) + uint64(len(d.Bytecode))*4
}

// ShaderParams overrides the entry point, "main" by default.
type ShaderParams struct {
	EntryPoint string
}

// ShaderLoader reads shader source files and SPIR-V binaries.
type ShaderLoader struct {
	Read ReadFunc
}

func (sl *ShaderLoader) Load(path string, params interface{}) (*Asset, error) {
	data, err := readWith(sl.Read, path)
	if err != nil {
		return nil, err
	}

	sd := &ShaderData{
		Stage:      StageFromPath(path),
		EntryPoint: "main",
	}
	if p, ok := params.(ShaderParams); ok && p.EntryPoint != "" {
		sd.EntryPoint = p.EntryPoint
	}

	if strings.EqualFold(filepath.Ext(path), ".spv") {
		if sd.Bytecode, err = decodeSPIRV(data); err != nil {
			return nil, fmt.Errorf("shader %q: %w", path, err)
		}
	} else {
		sd.Source = string(data)
	}

	return &Asset{
		Name:     strings.TrimSuffix(nameOf(path), filepath.Ext(nameOf(path))),
		FullPath: path,
		DataSize: sd.MemoryUsage(),
		Data:     sd,
	}, nil
}
