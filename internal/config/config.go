package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds every external location the packager touches. It is resolved
// once at startup and passed explicitly into the orchestrator, so no step
// depends on ambient process state.
type Config struct {
	// Product is the distributable name; it names the staging root, the
	// canonical executable and the output archive.
	Product string `yaml:"product"`
	// DistDir is the directory receiving staging trees and output archives.
	DistDir string `yaml:"dist_dir"`
	// SubmodulePath is the nested source dependency synced before building.
	SubmodulePath string `yaml:"submodule_path"`
	// CompiledBinary is where the native compiler leaves the release binary.
	CompiledBinary string `yaml:"compiled_binary"`
	// DebugSymbols is the optional symbol file staged next to the binary.
	DebugSymbols string `yaml:"debug_symbols"`
	// LoaderProject is the managed project descriptor passed to the publisher.
	LoaderProject string `yaml:"loader_project"`
	// SigningKey is the public key shipped alongside the published loader.
	SigningKey string `yaml:"signing_key"`
	// RuntimeID is the target platform triple for the published loader
	// and the runtime redistributable.
	RuntimeID string `yaml:"runtime_id"`
	// RuntimeVersion selects the runtime redistributable to download.
	RuntimeVersion string `yaml:"runtime_version"`
	// RuntimeURLTemplate builds the redistributable download URL from
	// RuntimeVersion and RuntimeID.
	RuntimeURLTemplate string `yaml:"runtime_url_template"`
}

const (
	// DefaultConfigFilename is the default filename for packager settings.
	DefaultConfigFilename = "sgloader-packager.yaml"

	// DefaultProduct is the distributable name recorded in the release layout.
	DefaultProduct = "SGLoader-V2"

	// DefaultDistDir is where staging trees and archives are produced.
	DefaultDistDir = "dist"

	// DefaultSubmodulePath is the vendored loader source tree.
	DefaultSubmodulePath = "third_party/SGLoader-Rewrite"

	// DefaultCompiledBinary is the native compiler's release artifact.
	DefaultCompiledBinary = "target/release/sgloader-v2.exe"

	// DefaultDebugSymbols is the optional symbol file next to the binary.
	DefaultDebugSymbols = "target/release/sgloader_v2.pdb"

	// DefaultLoaderProject is the managed loader project descriptor.
	DefaultLoaderProject = "third_party/SGLoader-Rewrite/SS14.Loader/SS14.Loader.csproj"

	// DefaultSigningKey is the public key distributed with the loader.
	DefaultSigningKey = "third_party/SGLoader-Rewrite/SS14.Launcher/signing_key"

	// DefaultRuntimeID is the only platform the release currently targets.
	DefaultRuntimeID = "win-x64"

	// DefaultRuntimeVersion pins the runtime redistributable shipped in the archive.
	DefaultRuntimeVersion = "10.0.0"

	// DefaultRuntimeURLTemplate interpolates version and runtime identifier
	// into the redistributable download URL.
	DefaultRuntimeURLTemplate = "https://builds.dotnet.microsoft.com/dotnet/Runtime/%[1]s/dotnet-runtime-%[1]s-%[2]s.zip"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errProductRequired is returned when the product name is missing.
	errProductRequired = errors.New("product name must be provided")
	// errRuntimeVersionRequired is returned when the runtime version is missing.
	errRuntimeVersionRequired = errors.New("runtime version must be provided")
)

// Default returns a configuration populated with the stock release layout.
func Default() *Config {
	return &Config{
		Product:            DefaultProduct,
		DistDir:            DefaultDistDir,
		SubmodulePath:      DefaultSubmodulePath,
		CompiledBinary:     DefaultCompiledBinary,
		DebugSymbols:       DefaultDebugSymbols,
		LoaderProject:      DefaultLoaderProject,
		SigningKey:         DefaultSigningKey,
		RuntimeID:          DefaultRuntimeID,
		RuntimeVersion:     DefaultRuntimeVersion,
		RuntimeURLTemplate: DefaultRuntimeURLTemplate,
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: the defaults describe the stock layout.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling unset fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Product == "" {
		return errProductRequired
	}

	if cfg.RuntimeVersion == "" {
		return errRuntimeVersionRequired
	}

	defaults := Default()

	if cfg.DistDir == "" {
		cfg.DistDir = defaults.DistDir
	}

	if cfg.SubmodulePath == "" {
		cfg.SubmodulePath = defaults.SubmodulePath
	}

	if cfg.CompiledBinary == "" {
		cfg.CompiledBinary = defaults.CompiledBinary
	}

	if cfg.LoaderProject == "" {
		cfg.LoaderProject = defaults.LoaderProject
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = defaults.SigningKey
	}

	if cfg.RuntimeID == "" {
		cfg.RuntimeID = defaults.RuntimeID
	}

	if cfg.RuntimeURLTemplate == "" {
		cfg.RuntimeURLTemplate = defaults.RuntimeURLTemplate
	}

	if _, err := url.ParseRequestURI(cfg.RuntimeURL()); err != nil {
		return fmt.Errorf("invalid runtime URL: %w", err)
	}

	return nil
}

// RuntimeURL interpolates the runtime version and platform identifier into
// the redistributable download URL.
func (c *Config) RuntimeURL() string {
	return fmt.Sprintf(c.RuntimeURLTemplate, c.RuntimeVersion, c.RuntimeID)
}

// StagingRoot is the directory, named after the product, that becomes the
// archive's contents.
func (c *Config) StagingRoot() string {
	return filepath.Join(c.DistDir, c.Product)
}

// ExecutableName is the canonical distributable name of the native binary.
func (c *Config) ExecutableName() string {
	return c.Product + ".exe"
}
