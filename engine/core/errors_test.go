package core

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Ok, CodeOf(nil))
	assert.Equal(t, SchemaError, CodeOf(SchemaErrorf("missing field %q", "mipmaps")))
	assert.Equal(t, NotFoundError, CodeOf(NotFoundf("asset %d", 42)))
	assert.Equal(t, InternalError, CodeOf(errors.New("plain")))
}

func TestStatusWrapping(t *testing.T) {
	cause := fs.ErrNotExist
	err := WrapInternal(cause, "reading %s", "a.spv")

	assert.Equal(t, InternalError, CodeOf(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "a.spv")
}

func TestStatusIsComparesCodes(t *testing.T) {
	assert.ErrorIs(t, NotFoundf("x"), NotFoundf("y"))
	assert.NotErrorIs(t, NotFoundf("x"), Internalf("x"))
}

func TestDigest(t *testing.T) {
	a := CalculateDigest([]byte("abc"))
	b := CalculateDigest([]byte("abc"))
	c := CalculateDigest([]byte("abd"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	combined := HashCombine(1, a)
	assert.NotEqual(t, combined, HashCombine(2, a))
}
