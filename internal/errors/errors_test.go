package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	t.Parallel()

	err := Newf("query failed: %s", "timeout").
		Component("ebird").
		Category(CategoryNetwork).
		Context("status_code", 503).
		Build()

	assert.Equal(t, "query failed: timeout", err.Error())
	assert.Equal(t, "ebird", err.Component)
	assert.Equal(t, CategoryNetwork, err.Category)
	assert.Equal(t, 503, err.Context["status_code"])
	assert.False(t, err.Timestamp.IsZero())
}

func TestEnhancedError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("boom")
	wrapped := Newf("outer: %w", sentinel).Build()

	assert.True(t, Is(wrapped, sentinel))

	var ee *EnhancedError
	require.True(t, As(wrapped, &ee))
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	notFound := New(fmt.Errorf("no such species")).
		Category(CategoryNotFound).
		Build()

	assert.True(t, IsCategory(notFound, CategoryNotFound))
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsCategory(notFound, CategoryNetwork))
	assert.False(t, IsNotFound(NewStd("plain")))
}

func TestBuild_DefaultComponent(t *testing.T) {
	t.Parallel()

	err := Newf("bare").Build()
	assert.Equal(t, ComponentUnknown, err.Component)
}
