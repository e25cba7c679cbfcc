package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

func TestLoadStateTransitions(t *testing.T) {
	b := NewBase(ResourceTypeTexture)
	assert.Equal(t, LoadStateIdle, b.LoadState())

	assert.ErrorIs(t, b.SetLoadState(LoadStateCompleted), core.ErrInvalidStateTransition)
	require.NoError(t, b.SetLoadState(LoadStateLoading))
	assert.ErrorIs(t, b.SetLoadState(LoadStateIdle), core.ErrInvalidStateTransition)
	require.NoError(t, b.SetLoadState(LoadStateFailed))

	for _, next := range []LoadState{LoadStateIdle, LoadStateLoading, LoadStateCompleted, LoadStateFailed} {
		assert.ErrorIs(t, b.SetLoadState(next), core.ErrInvalidStateTransition, next.String())
	}
	assert.Equal(t, LoadStateFailed, b.LoadState())
}

func TestBaseIdentity(t *testing.T) {
	a := NewBase(ResourceTypeModel)
	b := NewBase(ResourceTypeModel)
	assert.NotEqual(t, core.InvalidID, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())

	a.SetPath("models/crate.obj")
	assert.Equal(t, "crate", a.Name())
	a.SetName("box")
	assert.Equal(t, "box", a.Name())
	assert.Equal(t, "models/crate.obj", a.Path())
}

func TestNameFromPath(t *testing.T) {
	cases := map[string]string{
		"textures/wall.png":   "wall",
		`models\props\c.obj`:  "c",
		"shaders/basic.vert":  "basic",
		"noext":               "noext",
		"":                    "",
		"fonts/mono.tar.afnt": "mono.tar",
	}
	for in, want := range cases {
		assert.Equal(t, want, NameFromPath(in), in)
	}
}

func TestResourceTypeNames(t *testing.T) {
	for _, rt := range ResourceTypes() {
		parsed, ok := ParseResourceType(rt.String())
		require.True(t, ok)
		assert.Equal(t, rt, parsed)
	}
	_, ok := ParseResourceType("unknown")
	assert.False(t, ok)
	assert.Equal(t, "all", ResourceTypeAll.String())
	assert.Equal(t, "ResourceType(42)", ResourceType(42).String())
}

func TestNewResourceByType(t *testing.T) {
	for _, rt := range ResourceTypes() {
		r, err := NewResource(rt, Deps{})
		require.NoError(t, err)
		assert.Equal(t, rt, r.Type())
		_, isLoader := r.(Loader)
		assert.True(t, isLoader, rt.String())
	}
	_, err := NewResource(ResourceTypeUnknown, Deps{})
	assert.ErrorIs(t, err, core.ErrUnknownResourceType)
}
