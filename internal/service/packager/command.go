package packager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/sgloader/sgloader-packager/internal/archive"
	"github.com/sgloader/sgloader-packager/internal/config"
	"github.com/sgloader/sgloader-packager/internal/logger"
	"github.com/sgloader/sgloader-packager/internal/toolchain"
)

const (
	// signingKeyName is the canonical key filename next to the published loader.
	signingKeyName = "signing_key"

	// runtimeTempFilename is the transient download target beside the staging tree.
	runtimeTempFilename = "dotnet-runtime.zip"
)

// errPackagerRunning indicates another packaging run owns the staging tree.
var errPackagerRunning = errors.New("another packaging run is live")

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional path to the release layout settings
	// (defaults to sgloader-packager.yaml).
	ConfigPath string
}

// Tools bundles the external collaborators a packaging run shells out to.
type Tools struct {
	// Source syncs the vendored loader submodule.
	Source toolchain.SourceControl
	// Builder compiles the native launcher binary.
	Builder toolchain.NativeBuilder
	// Publisher publishes the managed loader.
	Publisher toolchain.Publisher
	// Fetcher downloads the runtime redistributable.
	Fetcher toolchain.Fetcher
}

// DefaultTools wires the production collaborators for the given configuration.
func DefaultTools(cfg *config.Config) *Tools {
	return &Tools{
		Source:    toolchain.NewGitSubmodule(cfg.SubmodulePath),
		Builder:   toolchain.NewCargoBuilder(),
		Publisher: toolchain.NewDotnetPublisher(cfg.LoaderProject, cfg.RuntimeID),
		Fetcher:   toolchain.NewHTTPFetcher(nil),
	}
}

// Runner executes a single packaging run: strictly ordered steps, first
// failure aborts, no cleanup or rollback of the staging tree.
type Runner struct {
	// cfg pins every path and version the run touches.
	cfg *config.Config
	// tools are the external collaborators.
	tools *Tools
	// layout is the staging tree being assembled.
	layout *Layout
	// outputPath is the resolved archive destination, fixed for the run.
	outputPath string
	// compress and extract are the archive operations, injectable for tests.
	compress func(src, dest string) error
	extract  func(src, destDir string) error
}

// NewRunner prepares a run over the provided configuration and collaborators.
func NewRunner(cfg *config.Config, tools *Tools) *Runner {
	return &Runner{
		cfg:      cfg,
		tools:    tools,
		layout:   NewLayout(cfg.StagingRoot(), cfg.RuntimeID),
		compress: archive.CompressDir,
		extract:  archive.ExtractZip,
	}
}

// Run executes the packaging workflow with production collaborators and is
// the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sgloader-packager")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if IsRunningNow(ctx) {
		return errPackagerRunning
	}

	if err = createMarker(); err != nil {
		return fmt.Errorf("create run marker: %w", err)
	}

	defer removeMarker()

	if err = NewRunner(cfg, DefaultTools(cfg)).Run(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// step is one fail-fast stage of the run.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// steps returns the run's stages in their mandatory order.
func (r *Runner) steps() []step {
	return []step{
		{"Resolving output archive path", r.resolveOutput},
		{"Resetting staging tree", r.resetStaging},
		{"Syncing loader submodule", r.syncSubmodule},
		{"Building native launcher", r.buildBinary},
		{"Publishing managed loader", r.publishLoader},
		{"Fetching runtime and packaging", r.fetchRuntimeAndPackage},
	}
}

// Run walks the steps in order. The first error aborts the run and is
// propagated unchanged; partially staged files stay on disk for diagnosis
// since the next run rebuilds the tree from scratch anyway.
func (r *Runner) Run(ctx context.Context) error {
	steps := r.steps()

	for i, s := range steps {
		logger.Infof(ctx, "[%d/%d] %s", i+1, len(steps), s.name)

		if err := s.run(ctx); err != nil {
			logger.ErrorKV(ctx, "Step failed", "step", s.name, "error", err)
			return err
		}
	}

	logger.InfoKV(ctx, "Release archive produced", "path", r.outputPath)

	return nil
}

// resolveOutput fixes the archive destination before anything is built, so a
// prior build can never be overwritten.
func (r *Runner) resolveOutput(ctx context.Context) error {
	path, err := ResolveOutputPath(r.cfg.DistDir, r.cfg.Product)
	if err != nil {
		return err
	}

	r.outputPath = path
	logger.DebugKV(ctx, "Resolved output archive", "path", path)

	return nil
}

// resetStaging rebuilds the empty staging tree.
func (r *Runner) resetStaging(_ context.Context) error {
	return r.layout.Reset()
}

// syncSubmodule ensures the vendored loader source is checked out.
func (r *Runner) syncSubmodule(ctx context.Context) error {
	return r.tools.Source.Sync(ctx)
}

// buildBinary compiles the native launcher and stages it under its canonical
// name, plus debug symbols when they exist.
func (r *Runner) buildBinary(ctx context.Context) error {
	if err := r.tools.Builder.Build(ctx); err != nil {
		return err
	}

	if err := r.stageBinary(); err != nil {
		return err
	}

	return r.stageDebugSymbols(ctx)
}

// stageBinary copies the compiled binary into the staging root. The write
// goes through a checksum-verified apply, so a torn copy can never end up in
// the archive.
func (r *Runner) stageBinary() error {
	contents, err := os.ReadFile(filepath.Clean(r.cfg.CompiledBinary))
	if err != nil {
		return fmt.Errorf("read compiled binary: %w", err)
	}

	hasher := checksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return fmt.Errorf("hash compiled binary: %w", err)
	}

	target := filepath.Join(r.layout.Root(), r.cfg.ExecutableName())

	// Apply renames the existing target aside before swapping in the new
	// file, so seed an empty one when staging into a fresh tree.
	if _, statErr := os.Stat(target); errors.Is(statErr, os.ErrNotExist) {
		if err = os.WriteFile(target, nil, DefaultFileMode); err != nil {
			return fmt.Errorf("seed staged binary: %w", err)
		}
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   hasher.Sum(nil),
		Hash:       checksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(contents), options); err != nil {
		return fmt.Errorf("stage binary: %w", err)
	}

	oldFileName := target + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// stageDebugSymbols copies the symbol file into bin/ when it exists.
// Absence is not an error: local toolchains do not always emit symbols.
func (r *Runner) stageDebugSymbols(ctx context.Context) error {
	_, err := os.Stat(r.cfg.DebugSymbols)
	if errors.Is(err, os.ErrNotExist) {
		logger.InfoKV(ctx, "Debug symbols not found, skipping", "path", r.cfg.DebugSymbols)
		return nil
	} else if err != nil {
		return fmt.Errorf("stat debug symbols: %w", err)
	}

	return copyFile(r.cfg.DebugSymbols, filepath.Join(r.layout.BinDir(), r.cfg.Product+".pdb"))
}

// publishLoader publishes the managed loader into the staging tree and puts
// the signing key alongside. Unlike debug symbols, a missing signing key
// fails the run: the launcher cannot verify the loader without it.
func (r *Runner) publishLoader(ctx context.Context) error {
	if err := r.tools.Publisher.Publish(ctx, r.layout.LoaderDir()); err != nil {
		return err
	}

	if err := copyFile(r.cfg.SigningKey, filepath.Join(r.layout.LoaderDir(), signingKeyName)); err != nil {
		return fmt.Errorf("copy signing key: %w", err)
	}

	return nil
}

// fetchRuntimeAndPackage downloads the runtime redistributable, extracts it
// into the staging tree, writes the release manifest and compresses the tree
// into the resolved archive path.
func (r *Runner) fetchRuntimeAndPackage(ctx context.Context) error {
	temp := filepath.Join(r.cfg.DistDir, runtimeTempFilename)

	if err := r.tools.Fetcher.Download(ctx, r.cfg.RuntimeURL(), temp); err != nil {
		return err
	}

	if err := r.extract(temp, r.layout.RuntimeDir()); err != nil {
		return err
	}

	if err := os.Remove(temp); err != nil {
		return fmt.Errorf("remove runtime temp file: %w", err)
	}

	if err := WriteManifest(r.cfg, r.layout.Root()); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Compressing staging tree", "src", r.layout.Root(), "dest", r.outputPath)

	return r.compress(r.layout.Root(), r.outputPath)
}

// copyFile duplicates src at dest, preserving the source mode.
func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	contents, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Clean(dest), contents, info.Mode()); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}

	return nil
}
