// Package config defines the release layout settings used by the packager and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type pins every path and version the build touches: the staging
// directory, the collaborator artifact locations and the runtime
// redistributable download URL.
package config
