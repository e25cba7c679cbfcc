package assets

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

const triangleOBJ = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, w, h))))
}

func newManager(t *testing.T, opts Options) (*AssetManager, string) {
	t.Helper()
	root := t.TempDir()
	am, err := NewAssetManager(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { am.Shutdown() })
	return am, root
}

func TestDetermineResourceType(t *testing.T) {
	cases := map[string]resources.ResourceType{
		"a/wall.png":         resources.ResourceTypeTexture,
		"WALL.JPG":           resources.ResourceTypeTexture,
		"wall.atex":          resources.ResourceTypeTexture,
		"sky.cubemap":        resources.ResourceTypeCubemap,
		"cube.obj":           resources.ResourceTypeModel,
		"ship.glb":           resources.ResourceTypeModel,
		"mono.fnt":           resources.ResourceTypeFont,
		"sans.ttf":           resources.ResourceTypeFont,
		"basic.vert":         resources.ResourceTypeShader,
		"basic.frag.spv":     resources.ResourceTypeShader,
		"notes.txt":          resources.ResourceTypeUnknown,
		"no_extension":       resources.ResourceTypeUnknown,
		"material.kmt.bak":   resources.ResourceTypeUnknown,
		"models/cube.amodel": resources.ResourceTypeModel,
		"lit.wgsl":           resources.ResourceTypeShader,
	}
	for path, want := range cases {
		assert.Equal(t, want, DetermineResourceType(path), path)
	}
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".acube", ".cubemap"}, Extensions(resources.ResourceTypeCubemap))
	assert.Contains(t, Extensions(resources.ResourceTypeShader), ".spv")
	assert.Empty(t, Extensions(resources.ResourceTypeUnknown))

	for _, rt := range resources.ResourceTypes() {
		for _, ext := range Extensions(rt) {
			assert.Equal(t, rt, DetermineResourceType("file"+ext), ext)
		}
	}
}

func TestInitializeIndexesKnownFiles(t *testing.T) {
	am, root := newManager(t, Options{})
	writeFile(t, filepath.Join(root, "models", "tri.obj"), []byte(triangleOBJ))
	writeTestPNG(t, filepath.Join(root, "textures", "wall.png"), 2, 2)
	writeFile(t, filepath.Join(root, "README.md"), []byte("hi"))

	require.NoError(t, am.Initialize(root))

	all := am.Assets()
	require.Len(t, all, 2)
	assert.Equal(t, "models/tri.obj", all[0].Path)
	assert.Equal(t, resources.ResourceTypeModel, all[0].Type)
	assert.Equal(t, "textures/wall.png", all[1].Path)

	_, ok := am.Lookup("README.md")
	assert.False(t, ok)
	assert.Empty(t, am.DrainChanged())
}

func TestImportThroughFileCache(t *testing.T) {
	am, root := newManager(t, Options{FileCacheLife: time.Minute})
	writeFile(t, filepath.Join(root, "tri.obj"), []byte(triangleOBJ))
	require.NoError(t, am.Initialize(root))

	for i := 0; i < 3; i++ {
		m, err := am.ImportModel("tri.obj")
		require.NoError(t, err)
		require.Len(t, m.Meshes, 1)
		assert.Len(t, m.Meshes[0].Indices, 3)
	}
	hits, misses := am.files.Stats()
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, uint64(2), hits)
}

func TestImportImageAbsolutePath(t *testing.T) {
	am, root := newManager(t, Options{})
	path := filepath.Join(root, "wall.png")
	writeTestPNG(t, path, 4, 2)
	require.NoError(t, am.Initialize(root))

	img, err := am.ImportImage(path, loaders.ImageParams{})
	require.NoError(t, err)
	assert.Equal(t, uint32(4), img.Width)
	assert.Equal(t, uint32(2), img.Height)
}

func TestImportErrors(t *testing.T) {
	am, root := newManager(t, Options{})
	require.NoError(t, am.Initialize(root))

	_, err := am.LoadAsset("notes.txt", nil)
	assert.ErrorIs(t, err, core.ErrUnknownResourceType)

	_, err = am.ImportModel("missing.obj")
	assert.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, filepath.Join(root, "tri.obj"), []byte(triangleOBJ))
	_, err = am.ImportShader("tri.obj")
	assert.ErrorIs(t, err, core.ErrTypeMismatch)
}

func TestWatchEventsTrackChanges(t *testing.T) {
	am, root := newManager(t, Options{FileCacheLife: time.Minute})
	path := filepath.Join(root, "tri.obj")
	writeFile(t, path, []byte(triangleOBJ))
	require.NoError(t, am.Initialize(root))

	_, err := am.ImportModel("tri.obj")
	require.NoError(t, err)
	require.Equal(t, 1, am.files.Len())

	am.handleWatchEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Equal(t, 0, am.files.Len())
	assert.Equal(t, []string{"tri.obj"}, am.DrainChanged())
	assert.Empty(t, am.DrainChanged())

	require.NoError(t, os.Remove(path))
	am.handleWatchEvent(fsnotify.Event{Name: path, Op: fsnotify.Remove})
	assert.Equal(t, []string{"tri.obj"}, am.DrainChanged())
	_, ok := am.Lookup("tri.obj")
	assert.False(t, ok)
}

func TestWatcherPicksUpNewFiles(t *testing.T) {
	am, root := newManager(t, Options{Watch: true})
	require.NoError(t, am.Initialize(root))

	writeFile(t, filepath.Join(root, "shaders", "basic.vert"), []byte("void main() {}"))

	require.Eventually(t, func() bool {
		_, ok := am.Lookup("shaders/basic.vert")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestShutdownIsIdempotent(t *testing.T) {
	am, root := newManager(t, Options{Watch: true, FileCacheLife: time.Minute})
	require.NoError(t, am.Initialize(root))
	require.NotNil(t, am.files)

	// watcher and file cache close together
	err := am.Shutdown()
	assert.Empty(t, multierr.Errors(err))
	require.NoError(t, am.Shutdown())
	assert.ErrorIs(t, am.addRecursive(root), ErrClosed)
}
