package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/sgloader/sgloader-packager/internal/logger"
)

// DotnetPublisher publishes the managed loader project self-contained for a
// single target platform.
type DotnetPublisher struct {
	// Project is the csproj descriptor passed to dotnet publish.
	Project string
	// RuntimeID is the target platform triple (for example win-x64).
	RuntimeID string
}

// NewDotnetPublisher creates a Publisher backed by the dotnet CLI.
func NewDotnetPublisher(project, runtimeID string) *DotnetPublisher {
	return &DotnetPublisher{
		Project:   project,
		RuntimeID: runtimeID,
	}
}

// Publish produces the published loader files in outDir.
// Publishing self-contained avoids runtime-missing crashes when the loader
// targets a newer framework than the host has installed.
func (d *DotnetPublisher) Publish(ctx context.Context, outDir string) error {
	args := d.args(outDir)
	logger.DebugKV(ctx, "Running dotnet", "args", args)

	cmd := exec.CommandContext(ctx, "dotnet", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("dotnet publish %s: %w", d.Project, err)
	}

	return nil
}

// args builds the dotnet publish argument list.
func (d *DotnetPublisher) args(outDir string) []string {
	return []string{
		"publish", d.Project,
		"-c", "Release",
		"-r", d.RuntimeID,
		"--self-contained", "true",
		"-o", outDir,
	}
}
