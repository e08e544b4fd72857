package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarmor/tarmor/internal/config"
	"github.com/tarmor/tarmor/internal/logging"
	"github.com/tarmor/tarmor/internal/manifest"
	"github.com/tarmor/tarmor/internal/pipeline"
	"github.com/tarmor/tarmor/internal/policy"
)

// Exit codes, stable for scripting.
const (
	exitOK        = 0
	exitIO        = 1
	exitUserInput = 2
	exitPolicy    = 3
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	output      string
	cfgFile     string
	digest      string
	parallelism int
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tarmor",
	Short: "Secure-by-default tar archiver",
	Long: `tarmor creates, extracts, lists, and verifies tar archives with a
security policy enforced over every entry.

Every entry passes path confinement, link-escape, and resource-quota
checks before it touches the filesystem. Extraction and creation build a
deterministic content manifest that later runs can verify against.

Core Commands:
  create       Build an archive from files and directories
  extract      Unpack an archive under a destination root
  list         Show an archive's contents and digests
  verify       Check an archive against a stored manifest

Exit codes: 0 success, 1 I/O error, 2 invalid input, 3 policy violation
or manifest mismatch.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
	},
}

// Execute runs the CLI and exits with the classified status code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode classifies a terminal error. Policy violations and manifest
// mismatches are deliberate refusals, distinct from plain I/O failures.
func exitCode(err error) int {
	var userErr *pipeline.UserInputError
	var runErr *pipeline.PolicyRunError
	var verifyErr *manifest.VerifyError
	var violation *policy.Violation
	switch {
	case errors.As(err, &userErr):
		return exitUserInput
	case errors.As(err, &runErr), errors.As(err, &verifyErr), errors.As(err, &violation):
		return exitPolicy
	}
	return exitIO
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress diagnostics")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .tarmor.yaml)")
	rootCmd.PersistentFlags().StringVar(&digest, "digest", "", "Manifest digest scheme (sha256, blake2b-256, sha3-256)")
	rootCmd.PersistentFlags().IntVar(&parallelism, "parallelism", 0, "Hashing workers (0 = one per CPU)")
}

// loadConfig resolves the layered configuration with the global flags as
// the highest-priority overrides.
func loadConfig() (*config.Config, error) {
	overrides := &config.Config{
		Output:      output,
		Verbose:     verbose,
		Digest:      digest,
		Parallelism: parallelism,
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, err
	}
	if err := manifest.Scheme(cfg.Digest).Valid(); err != nil {
		return nil, &pipeline.UserInputError{Msg: err.Error()}
	}
	return cfg, nil
}

// newPipeline wires one operation's pipeline from the resolved config.
func newPipeline(cfg *config.Config, pol policy.Config) *pipeline.Pipeline {
	log := logging.NewLogger(cfg.Verbose)
	if quiet {
		log = logging.NewNopLogger()
	}
	return pipeline.New(pol, manifest.Scheme(cfg.Digest), cfg.Parallelism, log)
}

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(cfgFile)
	if path == "" {
		return
	}
	_ = os.Setenv("TARMOR_CONFIG", path)
}
