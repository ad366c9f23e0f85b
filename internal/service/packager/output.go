package packager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// maxArchiveProbes caps the suffix scan so a directory full of thousands of
// prior builds produces a clear error instead of an endless loop.
const maxArchiveProbes = 10000

var errNoFreeArchivePath = errors.New("no free output archive path")

// ResolveOutputPath returns a path in dir that does not exist yet, probing
// <base>.zip first and then <base>_1.zip, <base>_2.zip, ... in order.
// Suffixes are never probed when the unsuffixed name is free, and every run
// restarts the scan from the beginning.
func ResolveOutputPath(dir, base string) (string, error) {
	candidate := filepath.Join(dir, base+".zip")

	free, err := pathFree(candidate)
	if err != nil {
		return "", err
	}

	if free {
		return candidate, nil
	}

	for n := 1; n <= maxArchiveProbes; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d.zip", base, n))

		free, err = pathFree(candidate)
		if err != nil {
			return "", err
		}

		if free {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s: %w", base, errNoFreeArchivePath)
}

// pathFree reports whether nothing exists at path. I/O errors other than
// "not exist" are fatal to the run.
func pathFree(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	return false, nil
}
