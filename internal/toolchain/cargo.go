package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/sgloader/sgloader-packager/internal/logger"
)

// CargoBuilder compiles the native launcher binary in release mode.
type CargoBuilder struct{}

// NewCargoBuilder creates a NativeBuilder backed by the cargo CLI.
func NewCargoBuilder() *CargoBuilder {
	return &CargoBuilder{}
}

// Build runs the release compilation. The artifact location under
// target/release is fixed by the crate manifest, not by this call.
func (c *CargoBuilder) Build(ctx context.Context) error {
	args := c.args()
	logger.DebugKV(ctx, "Running cargo", "args", args)

	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cargo build: %w", err)
	}

	return nil
}

// args builds the cargo argument list.
func (c *CargoBuilder) args() []string {
	return []string{"build", "--release"}
}
