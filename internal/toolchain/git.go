package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/sgloader/sgloader-packager/internal/logger"
)

// GitSubmodule syncs a vendored submodule via the git CLI.
type GitSubmodule struct {
	// Path is the submodule directory relative to the repository root.
	Path string
}

// NewGitSubmodule creates a SourceControl backed by `git submodule update`.
func NewGitSubmodule(path string) *GitSubmodule {
	return &GitSubmodule{Path: path}
}

// Sync checks out the submodule at its pinned reference.
// The git process inherits stdout and stderr, so its own diagnostics are the
// only failure output.
func (g *GitSubmodule) Sync(ctx context.Context) error {
	args := g.args()
	logger.DebugKV(ctx, "Running git", "args", args)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git submodule update %s: %w", g.Path, err)
	}

	return nil
}

// args builds the git argument list.
func (g *GitSubmodule) args() []string {
	return []string{"submodule", "update", "--init", "--recursive", g.Path}
}
