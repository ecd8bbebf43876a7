package seq16

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAfterBasic(t *testing.T) {
	require.True(t, After(5, 3))
	require.False(t, After(3, 5))
	require.False(t, After(5, 5))
}

func TestAfterWrapsAround(t *testing.T) {
	// 0 is after 65535 under wrapping arithmetic.
	require.True(t, After(0, 65535))
	require.False(t, After(65535, 0))
}

func TestDiffSymmetry(t *testing.T) {
	require.Equal(t, int32(1), Diff(1, 0))
	require.Equal(t, int32(-1), Diff(0, 1))
	require.Equal(t, int32(1), Diff(0, 65535))
}

func TestMax(t *testing.T) {
	require.Equal(t, uint16(0), Max(0, 65535))
	require.Equal(t, uint16(10), Max(10, 3))
}
