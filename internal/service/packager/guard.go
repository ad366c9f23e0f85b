package packager

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/sgloader/sgloader-packager/internal/logger"
)

const (
	// MarkerFilename marks that a packaging run is live to avoid parallel
	// runs fighting over the staging tree.
	MarkerFilename = "sgloader-packager-marker.bin"

	// markerLifetime is the period after which a stale run marker is ignored.
	markerLifetime = 30 * time.Second

	// basePackagerExecutable is the packager binary name without extension.
	basePackagerExecutable = "sgloader-packager"
)

// IsRunningNow checks presence of a run marker and attempts recovery if it looks stale.
func IsRunningNow(ctx context.Context) bool {
	logger.Debug(ctx, "Checking for the presence of a run marker")

	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The run marker is too old, attempting cleanup")

		if err = terminateProcessByName(packagerExecutable()); err != nil {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read run marker: %v", err)

	return false
}

// createMarker writes the run marker for the current process.
func createMarker() error {
	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return err
	}

	return marker.Close()
}

// removeMarker deletes the run marker if present.
func removeMarker() {
	if _, err := os.Stat(MarkerFilename); err == nil {
		_ = os.Remove(MarkerFilename)
	}
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// getExecutableExtension returns ".exe" on Windows and "" elsewhere.
func getExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}

func packagerExecutable() string {
	return basePackagerExecutable + getExecutableExtension()
}
