// Package packager assembles the SGLoader distributable archive.
//
// A run resolves a fresh output path, rebuilds the staging tree, drives the
// external toolchain (submodule sync, native build, managed publish, runtime
// download) and compresses the result. Steps execute strictly in order; the
// first failure aborts the run with no rollback.
package packager
