package resources

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

type samplePayload struct {
	Name   string
	Values []uint32
}

func TestResourceFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bin")
	in := samplePayload{Name: "sample", Values: []uint32{1, 2, 3}}
	require.NoError(t, WriteResourceFile(path, ResourceTypeModel, &in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var header ResourceHeader
	require.NoError(t, binary.Read(bytes.NewReader(raw), binary.LittleEndian, &header))
	assert.Equal(t, ResourceMagic, header.MagicNumber)
	assert.Equal(t, uint8(ResourceTypeModel), header.ResourceType)
	assert.Equal(t, ResourceVersion, header.Version)

	var out samplePayload
	require.NoError(t, ReadResourceFile(path, ResourceTypeModel, &out))
	assert.Equal(t, in, out)
}

func TestResourceFileRejects(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encodeResource(&buf, ResourceTypeFont, &samplePayload{Name: "f"}))
	valid := buf.Bytes()

	var out samplePayload
	err := decodeResource(bytes.NewReader(valid), ResourceTypeShader, &out)
	assert.ErrorIs(t, err, core.ErrTypeMismatch)

	badMagic := append([]byte{}, valid...)
	badMagic[0] ^= 0xff
	assert.ErrorIs(t, decodeResource(bytes.NewReader(badMagic), ResourceTypeFont, &out), core.ErrFileFormat)

	badVersion := append([]byte{}, valid...)
	badVersion[5] = ResourceVersion + 1
	assert.ErrorIs(t, decodeResource(bytes.NewReader(badVersion), ResourceTypeFont, &out), core.ErrFileVersion)

	assert.ErrorIs(t, decodeResource(bytes.NewReader(valid[:3]), ResourceTypeFont, &out), core.ErrFileFormat)

	truncated := append([]byte{}, valid[:8]...)
	truncated = append(truncated, 1, 2, 3)
	assert.ErrorIs(t, decodeResource(bytes.NewReader(truncated), ResourceTypeFont, &out), core.ErrFileFormat)

	assert.ErrorIs(t, ReadResourceFile(filepath.Join(t.TempDir(), "none"), ResourceTypeFont, &out), os.ErrNotExist)
}
