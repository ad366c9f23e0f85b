package packager

import (
	"fmt"
	"os"
	"path/filepath"
)

// dirMode is used when creating staging directories.
const dirMode os.FileMode = 0o755

// Layout is the fixed staging tree a release archive is built from. All
// paths are derived from the root, so the tree keeps its shape wherever it
// is rooted.
type Layout struct {
	// root is the staging directory named after the product.
	root string
	// runtimeID qualifies the loader payload directory.
	runtimeID string
}

// NewLayout describes a staging tree rooted at root for the given platform.
func NewLayout(root, runtimeID string) *Layout {
	return &Layout{
		root:      filepath.Clean(root),
		runtimeID: runtimeID,
	}
}

// Root returns the staging root directory.
func (l *Layout) Root() string {
	return l.root
}

// BinDir holds optional debug symbols next to the staged binary.
func (l *Layout) BinDir() string {
	return filepath.Join(l.root, "bin")
}

// LoaderDir receives the published managed loader and its signing key.
func (l *Layout) LoaderDir() string {
	return filepath.Join(l.root, "dependencies", "loader", l.runtimeID)
}

// RuntimeDir receives the extracted runtime redistributable.
func (l *Layout) RuntimeDir() string {
	return filepath.Join(l.root, "dependencies", "dotnet")
}

// Reset deletes the staging root recursively and recreates the empty tree.
// Running it twice yields the same structure; content from prior runs never
// survives into the next archive.
func (l *Layout) Reset() error {
	if err := os.RemoveAll(l.root); err != nil {
		return fmt.Errorf("remove staging tree %s: %w", l.root, err)
	}

	for _, dir := range []string{
		l.root,
		l.BinDir(),
		l.LoaderDir(),
		l.RuntimeDir(),
	} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("create staging directory %s: %w", dir, err)
		}
	}

	return nil
}
