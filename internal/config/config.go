// Package config provides configuration management for tarmor.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (TARMOR_*)
// 3. Project config (.tarmor.yaml in cwd)
// 4. Home config (~/.config/tarmor/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tarmor/tarmor/internal/policy"
)

// Config holds all tarmor configuration.
type Config struct {
	// Output controls the default output format (table, json).
	Output string `yaml:"output" json:"output"`

	// Verbose enables debug-level logging.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Parallelism caps concurrent hashing workers (0 = one per CPU).
	Parallelism int `yaml:"parallelism" json:"parallelism"`

	// Digest selects the manifest digest scheme (sha256, blake2b-256,
	// sha3-256).
	Digest string `yaml:"digest" json:"digest"`

	// Compression is the default codec for create (none, gzip, xz, zstd).
	Compression string `yaml:"compression" json:"compression"`

	// Policy settings
	Policy PolicyConfig `yaml:"policy" json:"policy"`
}

// PolicyConfig holds the archive security policy settings. The allow_*
// switches loosen the secure defaults; quota values of zero mean "keep the
// default ceiling" (use the CLI flags to disable a ceiling outright).
type PolicyConfig struct {
	// AllowAbsolutePaths admits entries with absolute stored paths by
	// stripping the root marker instead of rejecting.
	AllowAbsolutePaths bool `yaml:"allow_absolute_paths" json:"allow_absolute_paths"`

	// AllowParentTraversal resolves ".." segments instead of rejecting
	// them. Resolving above the root is still always rejected.
	AllowParentTraversal bool `yaml:"allow_parent_traversal" json:"allow_parent_traversal"`

	// AllowLinksOutsideRoot admits symlink/hardlink targets that resolve
	// outside the extraction root.
	AllowLinksOutsideRoot bool `yaml:"allow_links_outside_root" json:"allow_links_outside_root"`

	// Strict aborts the whole operation on the first violation instead
	// of skipping the offending entry.
	Strict bool `yaml:"strict" json:"strict"`

	// MaxEntries caps entries per operation.
	MaxEntries uint64 `yaml:"max_entries" json:"max_entries"`

	// MaxTotalBytes caps aggregate uncompressed content size.
	MaxTotalBytes uint64 `yaml:"max_total_bytes" json:"max_total_bytes"`

	// MaxFileBytes caps any single file's size.
	MaxFileBytes uint64 `yaml:"max_file_bytes" json:"max_file_bytes"`

	// MaxDepth caps path segment count.
	MaxDepth uint32 `yaml:"max_depth" json:"max_depth"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput      = "table"
	defaultDigest      = "sha256"
	defaultCompression = "none"
)

// Default returns the default configuration. Policy quotas mirror the
// secure defaults in the policy package.
func Default() *Config {
	p := policy.DefaultConfig()
	return &Config{
		Output:      defaultOutput,
		Verbose:     false,
		Parallelism: 0,
		Digest:      defaultDigest,
		Compression: defaultCompression,
		Policy: PolicyConfig{
			MaxEntries:    p.MaxEntries,
			MaxTotalBytes: p.MaxTotalBytes,
			MaxFileBytes:  p.MaxFileBytes,
			MaxDepth:      p.MaxDepth,
		},
	}
}

// ToPolicy maps the loaded configuration onto the policy engine's config.
func (c *Config) ToPolicy() policy.Config {
	return policy.Config{
		RejectAbsolutePaths:   !c.Policy.AllowAbsolutePaths,
		RejectParentTraversal: !c.Policy.AllowParentTraversal,
		ConfineLinksToRoot:    !c.Policy.AllowLinksOutsideRoot,
		MaxEntries:            c.Policy.MaxEntries,
		MaxTotalBytes:         c.Policy.MaxTotalBytes,
		MaxFileBytes:          c.Policy.MaxFileBytes,
		MaxDepth:              c.Policy.MaxDepth,
		Strict:                c.Policy.Strict,
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	// Load home config
	homeConfig, _ := loadFromPath(HomeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	// Load project config
	projectConfig, _ := loadFromPath(ProjectConfigPath())
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	// Apply environment variables
	cfg = applyEnv(cfg)

	// Apply flag overrides
	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// HomeConfigPath returns the home config path.
func HomeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tarmor", "config.yaml")
}

// ProjectConfigPath returns the project config path. TARMOR_CONFIG, when
// set, overrides the default .tarmor.yaml lookup.
func ProjectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("TARMOR_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".tarmor.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("TARMOR_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if envBool("TARMOR_VERBOSE") {
		cfg.Verbose = true
	}
	if v := os.Getenv("TARMOR_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Parallelism = n
		}
	}
	if v := os.Getenv("TARMOR_DIGEST"); v != "" {
		cfg.Digest = v
	}
	if v := os.Getenv("TARMOR_COMPRESSION"); v != "" {
		cfg.Compression = v
	}
	if envBool("TARMOR_ALLOW_ABSOLUTE_PATHS") {
		cfg.Policy.AllowAbsolutePaths = true
	}
	if envBool("TARMOR_ALLOW_PARENT_TRAVERSAL") {
		cfg.Policy.AllowParentTraversal = true
	}
	if envBool("TARMOR_ALLOW_LINKS_OUTSIDE_ROOT") {
		cfg.Policy.AllowLinksOutsideRoot = true
	}
	if envBool("TARMOR_STRICT") {
		cfg.Policy.Strict = true
	}
	if v, ok := envUint64("TARMOR_MAX_ENTRIES"); ok {
		cfg.Policy.MaxEntries = v
	}
	if v, ok := envUint64("TARMOR_MAX_TOTAL_BYTES"); ok {
		cfg.Policy.MaxTotalBytes = v
	}
	if v, ok := envUint64("TARMOR_MAX_FILE_BYTES"); ok {
		cfg.Policy.MaxFileBytes = v
	}
	if v, ok := envUint64("TARMOR_MAX_DEPTH"); ok {
		cfg.Policy.MaxDepth = uint32(v)
	}
	return cfg
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

func envUint64(key string) (uint64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeUint64 overwrites dst with src when src is non-zero.
func mergeUint64(dst *uint64, src uint64) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// Booleans use OR semantics: a layer can loosen the policy, never
// silently re-tighten what an earlier layer loosened.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	mergeStr(&dst.Digest, src.Digest)
	mergeStr(&dst.Compression, src.Compression)
	if src.Verbose {
		dst.Verbose = true
	}
	if src.Parallelism != 0 {
		dst.Parallelism = src.Parallelism
	}

	mergePolicy(&dst.Policy, &src.Policy)
	return dst
}

// mergePolicy merges policy-specific config fields.
func mergePolicy(dst, src *PolicyConfig) {
	if src.AllowAbsolutePaths {
		dst.AllowAbsolutePaths = true
	}
	if src.AllowParentTraversal {
		dst.AllowParentTraversal = true
	}
	if src.AllowLinksOutsideRoot {
		dst.AllowLinksOutsideRoot = true
	}
	if src.Strict {
		dst.Strict = true
	}
	mergeUint64(&dst.MaxEntries, src.MaxEntries)
	mergeUint64(&dst.MaxTotalBytes, src.MaxTotalBytes)
	mergeUint64(&dst.MaxFileBytes, src.MaxFileBytes)
	if src.MaxDepth != 0 {
		dst.MaxDepth = src.MaxDepth
	}
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.config/tarmor/config.yaml"
	SourceProject Source = ".tarmor.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

type resolved struct {
	Value  interface{} `json:"value"`
	Source Source      `json:"source"`
}

// ResolvedConfig shows config values with their sources, for `tarmor
// config show`.
type ResolvedConfig struct {
	Output      resolved `json:"output"`
	Verbose     resolved `json:"verbose"`
	Digest      resolved `json:"digest"`
	Compression resolved `json:"compression"`
}

// resolveStringField resolves a string through the precedence chain.
// Returns the resolved value and its source.
func resolveStringField(home, project, env, flag, def string) resolved {
	result := resolved{Value: def, Source: SourceDefault}
	if home != "" {
		result = resolved{Value: home, Source: SourceHome}
	}
	if project != "" {
		result = resolved{Value: project, Source: SourceProject}
	}
	if env != "" {
		result = resolved{Value: env, Source: SourceEnv}
	}
	if flag != "" {
		result = resolved{Value: flag, Source: SourceFlag}
	}
	return result
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > home > defaults.
func Resolve(flagOutput, flagDigest, flagCompression string, flagVerbose bool) *ResolvedConfig {
	homeConfig, _ := loadFromPath(HomeConfigPath())
	projectConfig, _ := loadFromPath(ProjectConfigPath())

	var homeOutput, homeDigest, homeCompression string
	var homeVerbose bool
	if homeConfig != nil {
		homeOutput = homeConfig.Output
		homeDigest = homeConfig.Digest
		homeCompression = homeConfig.Compression
		homeVerbose = homeConfig.Verbose
	}

	var projectOutput, projectDigest, projectCompression string
	var projectVerbose bool
	if projectConfig != nil {
		projectOutput = projectConfig.Output
		projectDigest = projectConfig.Digest
		projectCompression = projectConfig.Compression
		projectVerbose = projectConfig.Verbose
	}

	rc := &ResolvedConfig{
		Output: resolveStringField(homeOutput, projectOutput,
			os.Getenv("TARMOR_OUTPUT"), flagOutput, defaultOutput),
		Digest: resolveStringField(homeDigest, projectDigest,
			os.Getenv("TARMOR_DIGEST"), flagDigest, defaultDigest),
		Compression: resolveStringField(homeCompression, projectCompression,
			os.Getenv("TARMOR_COMPRESSION"), flagCompression, defaultCompression),
		Verbose: resolved{Value: false, Source: SourceDefault},
	}

	// Resolve verbose (boolean with OR semantics through chain)
	if homeVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceHome}
	}
	if projectVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceProject}
	}
	if envBool("TARMOR_VERBOSE") {
		rc.Verbose = resolved{Value: true, Source: SourceEnv}
	}
	if flagVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceFlag}
	}

	return rc
}
