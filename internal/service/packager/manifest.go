package packager

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sgloader/sgloader-packager/internal/config"
	"github.com/sgloader/sgloader-packager/internal/version"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// ManifestFilename stores the release description archived with the build.
	ManifestFilename = "sgloader-release.yaml"

	// DefaultFileMode is used when producing artifacts for distribution.
	DefaultFileMode os.FileMode = 0o755

	// checksumFunction is used to calculate release file hashes.
	checksumFunction crypto.Hash = crypto.SHA512

	// defaultMapCapacity is the default initial capacity for maps.
	defaultMapCapacity = 16
)

var errHashUnavailable = errors.New("hash function unavailable")

// Manifest describes a produced release: what was packaged and the checksum
// of every staged file, so the update side can verify its copy.
type Manifest struct {
	// Product is the distributable name.
	Product string `yaml:"product"`
	// VersionNumber is the packager version that produced the release.
	VersionNumber string `yaml:"version"`
	// RuntimeVersion is the bundled runtime redistributable version.
	RuntimeVersion string `yaml:"runtime_version"`
	// Files maps staging-relative paths to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
}

// NewManifest produces a Manifest initialized for the configured release.
func NewManifest(cfg *config.Config) *Manifest {
	return &Manifest{
		Product:        cfg.Product,
		VersionNumber:  version.Short(),
		RuntimeVersion: cfg.RuntimeVersion,
		Files:          make(map[string]string, defaultMapCapacity),
	}
}

// WriteManifest hashes every file under the staging root and writes the
// release description into the root itself, just before compression.
func WriteManifest(cfg *config.Config, stagingRoot string) error {
	manifest := NewManifest(cfg)

	err := filepath.WalkDir(stagingRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(stagingRoot, path)
		if err != nil {
			return err
		}

		checksum, err := GetFileChecksum(path)
		if err != nil {
			return err
		}

		manifest.Files[filepath.ToSlash(rel)] = base64.StdEncoding.EncodeToString(checksum)

		return nil
	})
	if err != nil {
		return fmt.Errorf("hash staged files: %w", err)
	}

	contents, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal release manifest: %w", err)
	}

	return os.WriteFile(filepath.Join(stagingRoot, ManifestFilename), contents, DefaultFileMode)
}

// GetFileChecksum returns checksum bytes for a file using the release hash function.
func GetFileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !checksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := checksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
