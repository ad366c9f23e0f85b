// Package toolchain wraps the external tools the release build shells out to:
// git for submodule sync, cargo for the native binary, dotnet for the managed
// loader, and an HTTP client for the runtime redistributable.
//
// Tool processes inherit stdout/stderr; a non-zero exit or bad HTTP status is
// the only failure signal, with no retries.
package toolchain
