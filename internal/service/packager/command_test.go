package packager

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgloader/sgloader-packager/internal/config"
)

// fakeSource is a SourceControl stub counting invocations.
type fakeSource struct {
	calls int
	err   error
}

func (f *fakeSource) Sync(_ context.Context) error {
	f.calls++
	return f.err
}

// fakeBuilder pretends to compile by writing the artifact the config points at.
type fakeBuilder struct {
	calls    int
	err      error
	artifact string
	contents []byte
}

func (f *fakeBuilder) Build(_ context.Context) error {
	f.calls++

	if f.err != nil {
		return f.err
	}

	if err := os.MkdirAll(filepath.Dir(f.artifact), 0o755); err != nil {
		return err
	}

	return os.WriteFile(f.artifact, f.contents, 0o755)
}

// fakePublisher pretends to publish by dropping files into the output directory.
type fakePublisher struct {
	calls int
	err   error
	files map[string][]byte
}

func (f *fakePublisher) Publish(_ context.Context, outDir string) error {
	f.calls++

	if f.err != nil {
		return f.err
	}

	for name, contents := range f.files {
		if err := os.WriteFile(filepath.Join(outDir, name), contents, 0o644); err != nil {
			return err
		}
	}

	return nil
}

// fakeFetcher pretends to download by writing a canned payload to dest.
type fakeFetcher struct {
	calls   int
	err     error
	payload []byte
}

func (f *fakeFetcher) Download(_ context.Context, _, dest string) error {
	f.calls++

	if f.err != nil {
		return f.err
	}

	return os.WriteFile(dest, f.payload, 0o644)
}

// zipPayload builds an in-memory zip with the provided name->contents entries.
func zipPayload(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	for name, contents := range files {
		entry, err := writer.Create(name)
		require.NoError(t, err)

		_, err = entry.Write(contents)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buf.Bytes()
}

// testConfig returns a release layout rooted in a fresh temp directory.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.DistDir = filepath.Join(dir, "dist")
	cfg.CompiledBinary = filepath.Join(dir, "target", "release", "sgloader-v2.exe")
	cfg.DebugSymbols = filepath.Join(dir, "target", "release", "sgloader_v2.pdb")
	cfg.SigningKey = filepath.Join(dir, "keys", "signing_key")

	return cfg
}

// testTools wires fake collaborators that produce a complete successful build.
func testTools(t *testing.T, cfg *config.Config) (*Tools, *fakeSource, *fakeBuilder, *fakePublisher, *fakeFetcher) {
	t.Helper()

	source := &fakeSource{}
	builder := &fakeBuilder{
		artifact: cfg.CompiledBinary,
		contents: []byte("native launcher"),
	}
	publisher := &fakePublisher{
		files: map[string][]byte{"SS14.Loader.dll": []byte("loader")},
	}
	fetcher := &fakeFetcher{
		payload: zipPayload(t, map[string][]byte{"hostfxr.dll": []byte("fxr")}),
	}

	tools := &Tools{
		Source:    source,
		Builder:   builder,
		Publisher: publisher,
		Fetcher:   fetcher,
	}

	return tools, source, builder, publisher, fetcher
}

// writeSigningKey creates the signing key artifact the publish step copies.
func writeSigningKey(t *testing.T, cfg *config.Config) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.SigningKey), 0o755))
	require.NoError(t, os.WriteFile(cfg.SigningKey, []byte("public key"), 0o644))
}

// archiveFileEntries lists non-directory entry names of a zip archive.
func archiveFileEntries(t *testing.T, path string) []string {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		_ = reader.Close()
	}()

	var names []string

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		names = append(names, entry.Name)
	}

	return names
}

// TestRunnerFailFast aborts on the first failing step: later collaborators
// never run, the error is propagated unchanged, and no archive appears.
func TestRunnerFailFast(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	writeSigningKey(t, cfg)

	errSync := errors.New("submodule sync failed")

	tools, source, builder, publisher, fetcher := testTools(t, cfg)
	source.err = errSync

	err := NewRunner(cfg, tools).Run(context.Background())
	require.ErrorIs(t, err, errSync)

	require.Equal(t, 1, source.calls)
	require.Zero(t, builder.calls)
	require.Zero(t, publisher.calls)
	require.Zero(t, fetcher.calls)

	_, err = os.Stat(filepath.Join(cfg.DistDir, cfg.Product+".zip"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRunnerMissingSigningKeyFails treats the signing key copy as mandatory:
// a successful publish with a missing key still fails the run before fetch.
func TestRunnerMissingSigningKeyFails(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	// Signing key deliberately absent.

	tools, _, _, publisher, fetcher := testTools(t, cfg)

	err := NewRunner(cfg, tools).Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.Equal(t, 1, publisher.calls)
	require.Zero(t, fetcher.calls)

	_, err = os.Stat(filepath.Join(cfg.DistDir, cfg.Product+".zip"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRunnerMissingDebugSymbolsTolerated completes the run when no symbol
// file exists; the archive simply carries no pdb.
func TestRunnerMissingDebugSymbolsTolerated(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	writeSigningKey(t, cfg)

	tools, _, _, _, _ := testTools(t, cfg)

	require.NoError(t, NewRunner(cfg, tools).Run(context.Background()))

	entries := archiveFileEntries(t, filepath.Join(cfg.DistDir, "SGLoader-V2.zip"))
	require.NotContains(t, entries, "SGLoader-V2/bin/SGLoader-V2.pdb")
	require.Contains(t, entries, "SGLoader-V2/SGLoader-V2.exe")
}

// TestRunnerFullRun verifies a fully successful run produces an archive whose
// contents exactly match the fixed staging layout.
func TestRunnerFullRun(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	writeSigningKey(t, cfg)

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DebugSymbols), 0o755))
	require.NoError(t, os.WriteFile(cfg.DebugSymbols, []byte("symbols"), 0o644))

	tools, source, builder, publisher, fetcher := testTools(t, cfg)

	require.NoError(t, NewRunner(cfg, tools).Run(context.Background()))

	require.Equal(t, 1, source.calls)
	require.Equal(t, 1, builder.calls)
	require.Equal(t, 1, publisher.calls)
	require.Equal(t, 1, fetcher.calls)

	entries := archiveFileEntries(t, filepath.Join(cfg.DistDir, "SGLoader-V2.zip"))
	require.ElementsMatch(t, []string{
		"SGLoader-V2/SGLoader-V2.exe",
		"SGLoader-V2/bin/SGLoader-V2.pdb",
		"SGLoader-V2/dependencies/loader/win-x64/SS14.Loader.dll",
		"SGLoader-V2/dependencies/loader/win-x64/signing_key",
		"SGLoader-V2/dependencies/dotnet/hostfxr.dll",
		"SGLoader-V2/" + ManifestFilename,
	}, entries)

	// The download temp file never survives into the dist directory.
	_, err := os.Stat(filepath.Join(cfg.DistDir, "dotnet-runtime.zip"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRunRefusesParallelRuns stops before touching any collaborator when a
// fresh run marker exists.
func TestRunRefusesParallelRuns(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, createMarker())

	err := Run(context.Background(), &Options{})
	require.ErrorIs(t, err, errPackagerRunning)
}

// TestRunnerNeverOverwritesPriorArchive gives the second run a suffixed name.
func TestRunnerNeverOverwritesPriorArchive(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	writeSigningKey(t, cfg)

	tools, _, _, _, _ := testTools(t, cfg)

	require.NoError(t, NewRunner(cfg, tools).Run(context.Background()))

	tools, _, _, _, _ = testTools(t, cfg)
	require.NoError(t, NewRunner(cfg, tools).Run(context.Background()))

	_, err := os.Stat(filepath.Join(cfg.DistDir, "SGLoader-V2.zip"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(cfg.DistDir, "SGLoader-V2_1.zip"))
	require.NoError(t, err)
}
