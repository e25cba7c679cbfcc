package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/anima-assets/engine/math"
)

type Mesh struct {
	Name     string
	Material string
	Vertices []math.Vertex3D
	Indices  []uint32
	Extents  math.Extents3D
}

type ModelData struct {
	Meshes []Mesh
}

// MemoryUsage returns the bytes held by vertex and index data.
func (d *ModelData) MemoryUsage() uint64 {
	var n uint64
	for _, m := range d.Meshes {
		n += uint64(len(m.Vertices)) * uint64(unsafe.Sizeof(math.Vertex3D{}))
		n += uint64(len(m.Indices)) * 4
	}
	return n
}

func (d *ModelData) VertexCount() int {
	n := 0
	for _, m := range d.Meshes {
		n += len(m.Vertices)
	}
	return n
}

// ModelLoader imports .gltf, .glb and .obj files.
type ModelLoader struct {
	Read ReadFunc
}

func (ml *ModelLoader) Load(path string, params interface{}) (*Asset, error) {
	var data *ModelData
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		data, err = loadGLTF(path)
	case ".obj":
		var raw []byte
		raw, err = readWith(ml.Read, path)
		if err != nil {
			return nil, err
		}
		data, err = ParseOBJ(raw)
		if err != nil {
			err = fmt.Errorf("parse obj %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported model format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return &Asset{
		Name:     nameOf(path),
		FullPath: path,
		DataSize: data.MemoryUsage(),
		Data:     data,
	}, nil
}

func loadGLTF(path string) (*ModelData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	data := &ModelData{}
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			m, err := loadGLTFPrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("gltf %q mesh %d primitive %d: %w", path, mi, pi, err)
			}
			m.Name = gm.Name
			if m.Name == "" {
				m.Name = fmt.Sprintf("mesh_%d", mi)
			}
			if len(gm.Primitives) > 1 {
				m.Name = fmt.Sprintf("%s_p%d", m.Name, pi)
			}
			data.Meshes = append(data.Meshes, *m)
		}
	}
	if len(data.Meshes) == 0 {
		return nil, fmt.Errorf("no geometry found in %q", path)
	}
	return data, nil
}

func loadGLTFPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*Mesh, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
	}

	m := &Mesh{Vertices: make([]math.Vertex3D, len(positions))}
	for i, p := range positions {
		v := math.Vertex3D{Position: math.NewVec3(p[0], p[1], p[2])}
		if i < len(normals) {
			v.Normal = math.NewVec3(normals[i][0], normals[i][1], normals[i][2])
		}
		if i < len(uvs) {
			v.Texcoord = math.Vec2{X: uvs[i][0], Y: uvs[i][1]}
		}
		m.Vertices[i] = v
	}

	if prim.Indices != nil {
		if m.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		m.Indices = make([]uint32, len(positions))
		for i := range m.Indices {
			m.Indices[i] = uint32(i)
		}
	}
	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		m.Material = doc.Materials[*prim.Material].Name
	}
	m.Extents = math.ExtentsOf(m.Vertices)
	return m, nil
}

type objVertex struct{ v, vt, vn int }

// ParseOBJ reads Wavefront OBJ text into one mesh per object or group.
// Polygons are fan-triangulated, negative indices count from the end and
// faces without normals get a flat one.
func ParseOBJ(raw []byte) (*ModelData, error) {
	var positions, normals []math.Vec3
	var uvs []math.Vec2

	data := &ModelData{}
	cur := Mesh{Name: "default"}
	lookup := map[objVertex]uint32{}

	flush := func() {
		if len(cur.Indices) > 0 {
			cur.Extents = math.ExtentsOf(cur.Vertices)
			data.Meshes = append(data.Meshes, cur)
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v", "vn":
			vec, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p := math.NewVec3(vec[0], vec[1], vec[2])
			if fields[0] == "v" {
				positions = append(positions, p)
			} else {
				normals = append(normals, p)
			}
		case "vt":
			vec, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			uvs = append(uvs, math.Vec2{X: vec[0], Y: vec[1]})
		case "o", "g":
			flush()
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = Mesh{Name: name, Material: cur.Material}
			lookup = map[objVertex]uint32{}
		case "usemtl":
			if len(fields) > 1 {
				cur.Material = fields[1]
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			face := make([]objVertex, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				fv, err := parseFaceVertex(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				face = append(face, fv)
			}
			for i := 1; i+1 < len(face); i++ {
				tri := [3]objVertex{face[0], face[i], face[i+1]}
				flat := flatNormal(positions[tri[0].v], positions[tri[1].v], positions[tri[2].v])
				for _, fv := range tri {
					if idx, ok := lookup[fv]; ok && fv.vn >= 0 {
						cur.Indices = append(cur.Indices, idx)
						continue
					}
					vert := math.Vertex3D{Position: positions[fv.v], Normal: flat}
					if fv.vt >= 0 {
						vert.Texcoord = uvs[fv.vt]
					}
					if fv.vn >= 0 {
						vert.Normal = normals[fv.vn]
					}
					idx := uint32(len(cur.Vertices))
					cur.Vertices = append(cur.Vertices, vert)
					cur.Indices = append(cur.Indices, idx)
					lookup[fv] = idx
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj: %w", err)
	}
	flush()

	if len(data.Meshes) == 0 {
		return nil, fmt.Errorf("no geometry found")
	}
	return data, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFaceVertex resolves "v", "v/vt", "v//vn" or "v/vt/vn" to 0-based
// indices, -1 when absent.
func parseFaceVertex(tok string, nv, nvt, nvn int) (objVertex, error) {
	parts := strings.Split(tok, "/")
	out := objVertex{v: -1, vt: -1, vn: -1}
	counts := [3]int{nv, nvt, nvn}
	dst := [3]*int{&out.v, &out.vt, &out.vn}
	for i := 0; i < len(parts) && i < 3; i++ {
		if parts[i] == "" {
			continue
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return out, fmt.Errorf("bad face index %q", tok)
		}
		if n < 0 {
			n = counts[i] + n
		} else {
			n--
		}
		if n < 0 || n >= counts[i] {
			return out, fmt.Errorf("face index %q out of range", tok)
		}
		*dst[i] = n
	}
	if out.v < 0 {
		return out, fmt.Errorf("face vertex %q has no position", tok)
	}
	return out, nil
}

func flatNormal(a, b, c math.Vec3) math.Vec3 {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}
