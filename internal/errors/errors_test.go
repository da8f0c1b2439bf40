package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultsComponentAndCategory(t *testing.T) {
	err := New(NewStd("boom")).Build()
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.Equal(t, "boom", err.Error())
}

func TestBuildCarriesContext(t *testing.T) {
	err := New(NewStd("missing")).
 Component("sndcore").
 Category(CategoryNotFound).
 Context("name", "foo").
 Build()

	require.NotNil(t, err.Context)
	assert.Equal(t, "foo", err.GetContext()["name"])
	assert.True(t, IsCategory(err, CategoryNotFound))
	assert.True(t, IsNotFound(err))
}

func TestIsCompaesByCategory(t *testing.T) {
	a := New(NewStd("a")).Category(CategoryExist).Build()
	b := New(NewStd("b")).Category(CategoryExist).Build()
	c := New(NewStd("c")).Category(CategoryInvalid).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestGetContextIsDefensiveCopy(t *testing.T) {
	err := New(nil).Category(CategoryInternal).Context("k", 1).Build()
	ctx := err.GetContext()
	ctx["k"] = 2
	assert.Equal(t, 1, err.GetContext()["k"])
}
