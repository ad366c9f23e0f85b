package toolchain

import "context"

// SourceControl ensures the nested source dependency is checked out at its
// pinned reference before any build runs.
type SourceControl interface {
	Sync(ctx context.Context) error
}

// NativeBuilder invokes the native compiler to produce the release binary at
// its configured output path.
type NativeBuilder interface {
	Build(ctx context.Context) error
}

// Publisher invokes the managed publish tool, directing its output into the
// provided directory.
type Publisher interface {
	Publish(ctx context.Context, outDir string) error
}

// Fetcher downloads a remote file to a local destination path.
type Fetcher interface {
	Download(ctx context.Context, url, dest string) error
}
