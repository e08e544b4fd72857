package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TARMOR_CONFIG", "TARMOR_OUTPUT", "TARMOR_VERBOSE",
		"TARMOR_PARALLELISM", "TARMOR_DIGEST", "TARMOR_COMPRESSION",
		"TARMOR_ALLOW_ABSOLUTE_PATHS", "TARMOR_ALLOW_PARENT_TRAVERSAL",
		"TARMOR_ALLOW_LINKS_OUTSIDE_ROOT", "TARMOR_STRICT",
		"TARMOR_MAX_ENTRIES", "TARMOR_MAX_TOTAL_BYTES",
		"TARMOR_MAX_FILE_BYTES", "TARMOR_MAX_DEPTH",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output != "table" {
		t.Errorf("Default Output = %q, want %q", cfg.Output, "table")
	}
	if cfg.Digest != "sha256" {
		t.Errorf("Default Digest = %q, want %q", cfg.Digest, "sha256")
	}
	if cfg.Compression != "none" {
		t.Errorf("Default Compression = %q, want %q", cfg.Compression, "none")
	}
	if cfg.Verbose {
		t.Error("Default Verbose = true, want false")
	}
	if cfg.Policy.MaxEntries != 200_000 {
		t.Errorf("Default Policy.MaxEntries = %d, want 200000", cfg.Policy.MaxEntries)
	}
	if cfg.Policy.MaxTotalBytes != 8<<30 {
		t.Errorf("Default Policy.MaxTotalBytes = %d, want %d", cfg.Policy.MaxTotalBytes, uint64(8<<30))
	}
	if cfg.Policy.MaxFileBytes != 2<<30 {
		t.Errorf("Default Policy.MaxFileBytes = %d, want %d", cfg.Policy.MaxFileBytes, uint64(2<<30))
	}
	if cfg.Policy.MaxDepth != 64 {
		t.Errorf("Default Policy.MaxDepth = %d, want 64", cfg.Policy.MaxDepth)
	}
	if cfg.Policy.AllowAbsolutePaths || cfg.Policy.AllowParentTraversal || cfg.Policy.AllowLinksOutsideRoot {
		t.Error("Default policy should not loosen any confinement rule")
	}
}

func TestToPolicy(t *testing.T) {
	cfg := Default()
	p := cfg.ToPolicy()

	if !p.RejectAbsolutePaths || !p.RejectParentTraversal || !p.ConfineLinksToRoot {
		t.Error("default ToPolicy should keep all confinement rules on")
	}
	if p.Strict {
		t.Error("default ToPolicy Strict = true, want false")
	}

	cfg.Policy.AllowAbsolutePaths = true
	cfg.Policy.AllowLinksOutsideRoot = true
	cfg.Policy.Strict = true
	p = cfg.ToPolicy()

	if p.RejectAbsolutePaths {
		t.Error("AllowAbsolutePaths should disable RejectAbsolutePaths")
	}
	if p.ConfineLinksToRoot {
		t.Error("AllowLinksOutsideRoot should disable ConfineLinksToRoot")
	}
	if !p.RejectParentTraversal {
		t.Error("RejectParentTraversal should stay on when not loosened")
	}
	if !p.Strict {
		t.Error("Strict should carry through")
	}
}

func TestMerge(t *testing.T) {
	dst := Default()
	src := &Config{
		Output: "json",
		Digest: "blake2b-256",
	}

	result := merge(dst, src)

	if result.Output != "json" {
		t.Errorf("merge Output = %q, want %q", result.Output, "json")
	}
	if result.Digest != "blake2b-256" {
		t.Errorf("merge Digest = %q, want %q", result.Digest, "blake2b-256")
	}
	// Defaults should be preserved when not overridden
	if result.Policy.MaxEntries != 200_000 {
		t.Errorf("merge preserved MaxEntries = %d, want 200000", result.Policy.MaxEntries)
	}
	if result.Compression != "none" {
		t.Errorf("merge preserved Compression = %q, want none", result.Compression)
	}
}

func TestMerge_PolicyQuotas(t *testing.T) {
	dst := Default()
	src := &Config{
		Policy: PolicyConfig{
			MaxEntries:   500,
			MaxFileBytes: 1024,
			MaxDepth:     8,
		},
	}

	result := merge(dst, src)

	if result.Policy.MaxEntries != 500 {
		t.Errorf("merge Policy.MaxEntries = %d, want 500", result.Policy.MaxEntries)
	}
	if result.Policy.MaxFileBytes != 1024 {
		t.Errorf("merge Policy.MaxFileBytes = %d, want 1024", result.Policy.MaxFileBytes)
	}
	if result.Policy.MaxDepth != 8 {
		t.Errorf("merge Policy.MaxDepth = %d, want 8", result.Policy.MaxDepth)
	}
	// Untouched quota keeps its default
	if result.Policy.MaxTotalBytes != 8<<30 {
		t.Errorf("merge Policy.MaxTotalBytes = %d, want default", result.Policy.MaxTotalBytes)
	}
}

func TestMerge_BooleanLoosening(t *testing.T) {
	dst := Default()
	src := &Config{
		Policy: PolicyConfig{AllowParentTraversal: true, Strict: true},
	}

	result := merge(dst, src)

	if !result.Policy.AllowParentTraversal {
		t.Error("merge should carry AllowParentTraversal = true")
	}
	if !result.Policy.Strict {
		t.Error("merge should carry Strict = true")
	}
	if result.Policy.AllowAbsolutePaths {
		t.Error("merge should not loosen AllowAbsolutePaths")
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARMOR_OUTPUT", "json")
	t.Setenv("TARMOR_VERBOSE", "true")
	t.Setenv("TARMOR_DIGEST", "sha3-256")
	t.Setenv("TARMOR_STRICT", "1")
	t.Setenv("TARMOR_MAX_ENTRIES", "42")

	cfg := Default()
	cfg = applyEnv(cfg)

	if cfg.Output != "json" {
		t.Errorf("applyEnv Output = %q, want %q", cfg.Output, "json")
	}
	if !cfg.Verbose {
		t.Error("applyEnv Verbose = false, want true")
	}
	if cfg.Digest != "sha3-256" {
		t.Errorf("applyEnv Digest = %q, want %q", cfg.Digest, "sha3-256")
	}
	if !cfg.Policy.Strict {
		t.Error("applyEnv Strict = false, want true")
	}
	if cfg.Policy.MaxEntries != 42 {
		t.Errorf("applyEnv MaxEntries = %d, want 42", cfg.Policy.MaxEntries)
	}
}

func TestApplyEnv_InvalidNumberIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARMOR_MAX_ENTRIES", "lots")

	cfg := Default()
	cfg = applyEnv(cfg)

	if cfg.Policy.MaxEntries != 200_000 {
		t.Errorf("applyEnv with bad number MaxEntries = %d, want default", cfg.Policy.MaxEntries)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
output: json
compression: zstd
verbose: true
policy:
  strict: true
  max_entries: 1000
  allow_parent_traversal: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFromPath(configPath)
	if err != nil {
		t.Fatalf("loadFromPath() error = %v", err)
	}

	if cfg.Output != "json" {
		t.Errorf("loadFromPath Output = %q, want %q", cfg.Output, "json")
	}
	if cfg.Compression != "zstd" {
		t.Errorf("loadFromPath Compression = %q, want %q", cfg.Compression, "zstd")
	}
	if !cfg.Verbose {
		t.Error("loadFromPath Verbose = false, want true")
	}
	if !cfg.Policy.Strict {
		t.Error("loadFromPath Policy.Strict = false, want true")
	}
	if cfg.Policy.MaxEntries != 1000 {
		t.Errorf("loadFromPath Policy.MaxEntries = %d, want 1000", cfg.Policy.MaxEntries)
	}
	if !cfg.Policy.AllowParentTraversal {
		t.Error("loadFromPath Policy.AllowParentTraversal = false, want true")
	}
}

func TestLoadFromPath_NotExists(t *testing.T) {
	cfg, err := loadFromPath("/nonexistent/config.yaml")
	if cfg != nil {
		t.Errorf("loadFromPath for nonexistent file should return nil config")
	}
	if err == nil {
		t.Errorf("loadFromPath for nonexistent file should return error")
	}
}

func TestLoadFromPath_Empty(t *testing.T) {
	cfg, err := loadFromPath("")
	if cfg != nil || err != nil {
		t.Errorf("loadFromPath(\"\") = %v, %v; want nil, nil", cfg, err)
	}
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(`{{{invalid yaml`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFromPath(configPath)
	if err == nil {
		t.Error("loadFromPath for invalid YAML should return error")
	}
	if cfg != nil {
		t.Error("loadFromPath for invalid YAML should return nil config")
	}
}

func TestLoad_WithProjectConfig(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tarmor.yaml")
	content := `
output: json
policy:
  max_depth: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TARMOR_CONFIG", configPath)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Output != "json" {
		t.Errorf("Load Output = %q, want %q", cfg.Output, "json")
	}
	if cfg.Policy.MaxDepth != 10 {
		t.Errorf("Load Policy.MaxDepth = %d, want 10", cfg.Policy.MaxDepth)
	}
}

func TestLoad_WithFlagOverrides(t *testing.T) {
	clearEnv(t)

	overrides := &Config{
		Output:  "json",
		Digest:  "blake2b-256",
		Verbose: true,
	}

	cfg, err := Load(overrides)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Output != "json" {
		t.Errorf("Load Output = %q, want %q", cfg.Output, "json")
	}
	if cfg.Digest != "blake2b-256" {
		t.Errorf("Load Digest = %q, want %q", cfg.Digest, "blake2b-256")
	}
	if !cfg.Verbose {
		t.Error("Load Verbose = false, want true")
	}
}

func TestLoad_FlagBeatsEnvAndProject(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tarmor.yaml")
	if err := os.WriteFile(configPath, []byte("output: table\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TARMOR_CONFIG", configPath)
	t.Setenv("TARMOR_OUTPUT", "json")

	cfg, err := Load(&Config{Output: "wide"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output != "wide" {
		t.Errorf("Load Output = %q, want flag value %q", cfg.Output, "wide")
	}
}

func TestProjectConfigPath_UsesTarmorConfigEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")
	t.Setenv("TARMOR_CONFIG", configPath)

	got := ProjectConfigPath()
	if got != configPath {
		t.Fatalf("ProjectConfigPath() = %q, want %q", got, configPath)
	}
}

func TestProjectConfigPath_DefaultFromCwd(t *testing.T) {
	t.Setenv("TARMOR_CONFIG", "")
	got := ProjectConfigPath()
	cwd, _ := os.Getwd()
	expected := filepath.Join(cwd, ".tarmor.yaml")
	if got != expected {
		t.Errorf("ProjectConfigPath() = %q, want %q", got, expected)
	}
}

func TestProjectConfigPath_WhitespaceOnlyConfig(t *testing.T) {
	t.Setenv("TARMOR_CONFIG", "  \t  ")
	got := ProjectConfigPath()
	cwd, _ := os.Getwd()
	expected := filepath.Join(cwd, ".tarmor.yaml")
	if got != expected {
		t.Errorf("ProjectConfigPath() with whitespace = %q, want %q", got, expected)
	}
}

func TestResolveStringField(t *testing.T) {
	tests := []struct {
		name       string
		home       string
		project    string
		env        string
		flag       string
		def        string
		wantValue  string
		wantSource Source
	}{
		{
			name:       "default only",
			def:        "table",
			wantValue:  "table",
			wantSource: SourceDefault,
		},
		{
			name:       "home overrides default",
			home:       "json",
			def:        "table",
			wantValue:  "json",
			wantSource: SourceHome,
		},
		{
			name:       "project overrides home",
			home:       "json",
			project:    "table",
			def:        "table",
			wantValue:  "table",
			wantSource: SourceProject,
		},
		{
			name:       "env overrides project",
			home:       "json",
			project:    "table",
			env:        "json",
			def:        "table",
			wantValue:  "json",
			wantSource: SourceEnv,
		},
		{
			name:       "flag overrides everything",
			home:       "json",
			project:    "table",
			env:        "json",
			flag:       "wide",
			def:        "table",
			wantValue:  "wide",
			wantSource: SourceFlag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveStringField(tt.home, tt.project, tt.env, tt.flag, tt.def)
			if got.Value != tt.wantValue {
				t.Errorf("resolveStringField() Value = %v, want %v", got.Value, tt.wantValue)
			}
			if got.Source != tt.wantSource {
				t.Errorf("resolveStringField() Source = %v, want %v", got.Source, tt.wantSource)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	clearEnv(t)
	rc := Resolve("json", "sha3-256", "zstd", true)

	if rc.Output.Value != "json" || rc.Output.Source != SourceFlag {
		t.Errorf("Resolve Output = (%v, %v), want (json, %v)", rc.Output.Value, rc.Output.Source, SourceFlag)
	}
	if rc.Digest.Value != "sha3-256" || rc.Digest.Source != SourceFlag {
		t.Errorf("Resolve Digest = (%v, %v), want (sha3-256, %v)", rc.Digest.Value, rc.Digest.Source, SourceFlag)
	}
	if rc.Compression.Value != "zstd" || rc.Compression.Source != SourceFlag {
		t.Errorf("Resolve Compression = (%v, %v), want (zstd, %v)", rc.Compression.Value, rc.Compression.Source, SourceFlag)
	}
	if rc.Verbose.Value != true || rc.Verbose.Source != SourceFlag {
		t.Errorf("Resolve Verbose = (%v, %v), want (true, %v)", rc.Verbose.Value, rc.Verbose.Source, SourceFlag)
	}
}

func TestResolve_EnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARMOR_OUTPUT", "json")
	t.Setenv("TARMOR_VERBOSE", "1")

	rc := Resolve("", "", "", false)

	if rc.Output.Value != "json" || rc.Output.Source != SourceEnv {
		t.Errorf("Resolve env Output = (%v, %v), want (json, %v)", rc.Output.Value, rc.Output.Source, SourceEnv)
	}
	if rc.Verbose.Value != true || rc.Verbose.Source != SourceEnv {
		t.Errorf("Resolve env Verbose = (%v, %v), want (true, %v)", rc.Verbose.Value, rc.Verbose.Source, SourceEnv)
	}
	if rc.Digest.Value != "sha256" || rc.Digest.Source != SourceDefault {
		t.Errorf("Resolve default Digest = (%v, %v), want (sha256, %v)", rc.Digest.Value, rc.Digest.Source, SourceDefault)
	}
}

func TestResolve_WithProjectConfig(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tarmor.yaml")
	content := `
output: json
digest: blake2b-256
verbose: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TARMOR_CONFIG", configPath)

	rc := Resolve("", "", "", false)

	if rc.Output.Value != "json" || rc.Output.Source != SourceProject {
		t.Errorf("Output = (%v, %v), want (json, %v)", rc.Output.Value, rc.Output.Source, SourceProject)
	}
	if rc.Digest.Value != "blake2b-256" || rc.Digest.Source != SourceProject {
		t.Errorf("Digest = (%v, %v), want (blake2b-256, %v)", rc.Digest.Value, rc.Digest.Source, SourceProject)
	}
	if rc.Verbose.Value != true || rc.Verbose.Source != SourceProject {
		t.Errorf("Verbose = (%v, %v), want (true, %v)", rc.Verbose.Value, rc.Verbose.Source, SourceProject)
	}
}

// --- Benchmarks ---

func BenchmarkDefault(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Default()
	}
}

func BenchmarkMerge(b *testing.B) {
	base := Default()
	overlay := &Config{
		Output:  "json",
		Digest:  "blake2b-256",
		Verbose: true,
		Policy:  PolicyConfig{MaxEntries: 5000},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dst := *base // copy
		merge(&dst, overlay)
	}
}
