package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := &Settings{}
	valid.Pipeline.MinMoveKm = 3
	valid.EBird.RateLimitMS = 100
	require.NoError(t, ValidateSettings(valid))

	negativeMove := &Settings{}
	negativeMove.Pipeline.MinMoveKm = -1
	assert.Error(t, ValidateSettings(negativeMove))

	negativeRate := &Settings{}
	negativeRate.EBird.RateLimitMS = -5
	assert.Error(t, ValidateSettings(negativeRate))
}

func TestGetDefaultConfigPaths(t *testing.T) {
	t.Parallel()

	paths, err := GetDefaultConfigPaths()
	require.NoError(t, err)
	assert.NotEmpty(t, paths)
}
