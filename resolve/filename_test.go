package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetName(t *testing.T) {
	name, err := TargetName(DefaultFilenameMask, 7, "IMG_0042.JPG")
	require.NoError(t, err)
	assert.Equal(t, "Referenz_0007.JPG", name)
}

func TestTargetNameLargeNumber(t *testing.T) {
	name, err := TargetName("Foto_{number}", 12345, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Foto_12345.jpg", name)
}

func TestTargetNameNoExtension(t *testing.T) {
	name, err := TargetName(DefaultFilenameMask, 1, "scan")
	require.NoError(t, err)
	assert.Equal(t, "Referenz_0001", name)
}

func TestTargetNameInvalidMask(t *testing.T) {
	_, err := TargetName("Referenz_", 1, "a.jpg")
	assert.ErrorIs(t, err, ErrInvalidMask)
}
