package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// touch creates an empty file at the given path.
func touch(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

// TestResolveOutputPathBaseFree returns the unsuffixed name when it is free,
// even when suffixed archives from interrupted runs are lying around.
func TestResolveOutputPathBaseFree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "SGLoader-V2_1.zip"))

	path, err := ResolveOutputPath(dir, "SGLoader-V2")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "SGLoader-V2.zip"), path)
}

// TestResolveOutputPathSkipsExisting walks the suffix sequence until the
// first free candidate.
func TestResolveOutputPathSkipsExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "SGLoader-V2.zip"))
	touch(t, filepath.Join(dir, "SGLoader-V2_1.zip"))

	path, err := ResolveOutputPath(dir, "SGLoader-V2")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "SGLoader-V2_2.zip"), path)
}

// TestResolveOutputPathFillsGaps takes the lowest free suffix even when
// higher ones exist.
func TestResolveOutputPathFillsGaps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "SGLoader-V2.zip"))
	touch(t, filepath.Join(dir, "SGLoader-V2_2.zip"))

	path, err := ResolveOutputPath(dir, "SGLoader-V2")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "SGLoader-V2_1.zip"), path)
}

// TestResolveOutputPathMissingDir treats a nonexistent output directory as
// having every candidate free.
func TestResolveOutputPathMissingDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "absent")

	path, err := ResolveOutputPath(dir, "SGLoader-V2")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "SGLoader-V2.zip"), path)
}

// TestResolveOutputPathSequence verifies the scan restarts at the base name
// on every call and proceeds without gaps.
func TestResolveOutputPathSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for i := range 5 {
		path, err := ResolveOutputPath(dir, "SGLoader-V2")
		require.NoError(t, err)

		if i == 0 {
			require.Equal(t, filepath.Join(dir, "SGLoader-V2.zip"), path)
		} else {
			require.Equal(t, filepath.Join(dir, fmt.Sprintf("SGLoader-V2_%d.zip", i)), path)
		}

		touch(t, path)
	}
}
