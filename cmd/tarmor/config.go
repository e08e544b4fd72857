package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tarmor/tarmor/internal/config"
)

var (
	configShow bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and manage tarmor configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (TARMOR_*)
  3. Project config (.tarmor.yaml)
  4. Home config (~/.config/tarmor/config.yaml)
  5. Defaults

Environment variables:
  TARMOR_CONFIG                   - Explicit config file path (overrides the project config location)
  TARMOR_OUTPUT                   - Default output format (table, json)
  TARMOR_VERBOSE                  - Enable verbose output (true/1)
  TARMOR_PARALLELISM              - Concurrent hashing workers (0 = one per CPU)
  TARMOR_DIGEST                   - Manifest digest scheme (sha256, blake2b-256, sha3-256)
  TARMOR_COMPRESSION              - Default compression for create (none, gzip, xz, zstd)
  TARMOR_STRICT                   - Abort on the first policy violation (true/1)
  TARMOR_ALLOW_ABSOLUTE_PATHS     - Admit absolute entry paths (true/1)
  TARMOR_ALLOW_PARENT_TRAVERSAL   - Resolve '..' segments instead of rejecting (true/1)
  TARMOR_ALLOW_LINKS_OUTSIDE_ROOT - Admit link targets outside the root (true/1)
  TARMOR_MAX_ENTRIES              - Entry count ceiling
  TARMOR_MAX_TOTAL_BYTES          - Total uncompressed size ceiling
  TARMOR_MAX_FILE_BYTES           - Single file size ceiling
  TARMOR_MAX_DEPTH                - Path depth ceiling
  TARMOR_LOG_LEVEL                - Explicit log level (trace, debug, info, warn, error)

Examples:
  tarmor config --show           # Show resolved configuration
  tarmor config --show -o json   # Output as JSON`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show resolved configuration with sources")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if !configShow {
		// Show help if no flags
		return cmd.Help()
	}

	resolved := config.Resolve(output, digest, "", verbose)

	if output == "json" {
		data, err := json.MarshalIndent(resolved, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println("Tarmor Configuration")
	fmt.Println("====================")
	fmt.Println()

	fmt.Println("Config files:")
	printConfigFile("Home:   ", config.HomeConfigPath())
	printConfigFile("Project:", config.ProjectConfigPath())

	fmt.Println()
	fmt.Println("Resolved values:")
	fmt.Printf("  output:      %v  (from %s)\n", resolved.Output.Value, resolved.Output.Source)
	fmt.Printf("  digest:      %v  (from %s)\n", resolved.Digest.Value, resolved.Digest.Source)
	fmt.Printf("  compression: %v  (from %s)\n", resolved.Compression.Value, resolved.Compression.Source)
	fmt.Printf("  verbose:     %v  (from %s)\n", resolved.Verbose.Value, resolved.Verbose.Source)

	fmt.Println()
	fmt.Println("Environment variables (if set):")
	envVars := []string{
		"TARMOR_CONFIG",
		"TARMOR_OUTPUT",
		"TARMOR_VERBOSE",
		"TARMOR_PARALLELISM",
		"TARMOR_DIGEST",
		"TARMOR_COMPRESSION",
		"TARMOR_STRICT",
		"TARMOR_ALLOW_ABSOLUTE_PATHS",
		"TARMOR_ALLOW_PARENT_TRAVERSAL",
		"TARMOR_ALLOW_LINKS_OUTSIDE_ROOT",
		"TARMOR_MAX_ENTRIES",
		"TARMOR_MAX_TOTAL_BYTES",
		"TARMOR_MAX_FILE_BYTES",
		"TARMOR_MAX_DEPTH",
		"TARMOR_LOG_LEVEL",
	}
	anySet := false
	for _, env := range envVars {
		if v := os.Getenv(env); v != "" {
			fmt.Printf("  %s=%s\n", env, v)
			anySet = true
		}
	}
	if !anySet {
		fmt.Println("  (none set)")
	}

	return nil
}

func printConfigFile(label, path string) {
	if path == "" {
		fmt.Printf("  ✗ %s (unresolvable)\n", label)
		return
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  ✓ %s %s\n", label, path)
	} else {
		fmt.Printf("  ✗ %s %s (not found)\n", label, path)
	}
}
