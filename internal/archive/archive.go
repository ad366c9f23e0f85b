package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// dirMode is used when recreating directories from archive entries.
	dirMode os.FileMode = 0o755

	// maxEntries bounds the number of entries accepted from a downloaded archive.
	maxEntries = 65536
)

var (
	errTooManyEntries = errors.New("archive has too many entries")
	errEmptyEntryName = errors.New("invalid archive entry name")
)

// CompressDir writes a zip archive at dest containing the src directory.
// Entries are prefixed with the directory's base name, so extracting the
// archive reproduces the directory itself, not just its contents.
func CompressDir(src, dest string) error {
	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	writer := zip.NewWriter(out)
	prefix := filepath.Base(filepath.Clean(src))

	walkErr := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		// Zip entry names always use forward slashes.
		name := prefix + "/" + filepath.ToSlash(rel)

		if entry.IsDir() {
			_, err = writer.Create(name + "/")
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}

		header.Name = name
		header.Method = zip.Deflate

		entryWriter, err := writer.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return err
		}

		_, err = io.Copy(entryWriter, file)

		closeErr := file.Close()
		if err != nil {
			return err
		}

		return closeErr
	})

	if walkErr != nil {
		_ = writer.Close()
		_ = out.Close()

		return fmt.Errorf("compress %s: %w", src, walkErr)
	}

	if err = writer.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}

// ExtractZip unpacks the zip archive at src into destDir.
// Entry names are validated so a hostile archive cannot write outside destDir.
func ExtractZip(src, destDir string) error {
	reader, err := zip.OpenReader(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	if len(reader.File) > maxEntries {
		return fmt.Errorf("%s: %w", src, errTooManyEntries)
	}

	for _, entry := range reader.File {
		if err = extractEntry(entry, destDir); err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
	}

	return nil
}

// extractEntry writes a single archive entry below destDir.
func extractEntry(entry *zip.File, destDir string) error {
	target, err := safeJoin(destDir, entry.Name)
	if err != nil {
		return err
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, dirMode)
	}

	if err = os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	source, err := entry.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, source); err != nil { //nolint:gosec // Runtime archives come from a pinned URL.
		_ = out.Close()
		return err
	}

	return out.Close()
}

// safeJoin resolves an archive entry name below base, rejecting absolute
// paths and parent-directory escapes.
func safeJoin(base, name string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(filepath.FromSlash(name)))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("%w: %q", errEmptyEntryName, name)
	}

	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", errEmptyEntryName, name)
	}

	target := filepath.Join(base, clean)

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", fmt.Errorf("%w: %q", errEmptyEntryName, name)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", errEmptyEntryName, name)
	}

	return target, nil
}
