package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tarmor/tarmor/internal/compress"
	"github.com/tarmor/tarmor/internal/formatter"
	"github.com/tarmor/tarmor/internal/pipeline"
)

var (
	createFile        string
	createDir         string
	createManifestOut string
	createExcludes    []string
	createExcludeFrom []string
	createGzip        bool
	createXz          bool
	createZstd        bool
	createPrintPlan   bool
	createPolicy      policyFlagSet
)

var createCmd = &cobra.Command{
	Use:   "create -f ARCHIVE [flags] PATH...",
	Short: "Build an archive from files and directories",
	Long: `Build an archive from the given paths, relative to the working
directory. Every candidate entry is checked against the security policy
before it is stored; the content manifest is computed alongside.

Examples:
  tarmor create -f backup.tar.gz -z src docs
  tarmor create -f out.tar -C /data --exclude '*.log' .
  tarmor create -f out.tar --manifest-out out.manifest.json src
  tarmor create -f out.tar --print-plan src`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "Archive file to write (required)")
	createCmd.Flags().StringVarP(&createDir, "directory", "C", "", "Resolve input paths relative to this directory")
	createCmd.Flags().StringArrayVar(&createExcludes, "exclude", nil, "Glob pattern to skip (repeatable)")
	createCmd.Flags().StringArrayVar(&createExcludeFrom, "exclude-from", nil, "File with glob patterns, one per line (repeatable)")
	createCmd.Flags().StringVar(&createManifestOut, "manifest-out", "", "Write the content manifest JSON to this path")
	createCmd.Flags().BoolVar(&createPrintPlan, "print-plan", false, "Show policy decisions without writing anything")
	createCmd.Flags().BoolVarP(&createGzip, "gzip", "z", false, "Compress with gzip")
	createCmd.Flags().BoolVarP(&createXz, "xz", "J", false, "Compress with xz")
	createCmd.Flags().BoolVar(&createZstd, "zstd", false, "Compress with zstd")
	createPolicy.register(createCmd)
	_ = createCmd.MarkFlagRequired("file")
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	codec, err := createCodec(cfg.Compression)
	if err != nil {
		return err
	}

	p := newPipeline(cfg, createPolicy.apply(cmd, cfg.ToPolicy()))
	summary, err := p.Create(cmd.Context(), pipeline.CreateOptions{
		ArchivePath: createFile,
		Inputs:      args,
		Dir:         createDir,
		Codec:       codec,
		Excludes:    createExcludes,
		ExcludeFrom: createExcludeFrom,
		ManifestOut: createManifestOut,
		PrintPlan:   createPrintPlan,
	})

	if summary != nil && createPrintPlan {
		if renderErr := formatter.WriteDecisionsTable(os.Stdout, summary.Decisions); renderErr != nil {
			return renderErr
		}
	}
	if summary != nil && !quiet && len(summary.Violations) > 0 {
		_ = formatter.WriteViolations(os.Stderr, summary.Violations)
	}
	return err
}

// createCodec resolves the output compression: an explicit flag wins over
// the configured default, and the flags are mutually exclusive.
func createCodec(configured string) (compress.Codec, error) {
	var chosen []compress.Codec
	if createGzip {
		chosen = append(chosen, compress.CodecGzip)
	}
	if createXz {
		chosen = append(chosen, compress.CodecXz)
	}
	if createZstd {
		chosen = append(chosen, compress.CodecZstd)
	}
	if len(chosen) > 1 {
		return "", &pipeline.UserInputError{Msg: "at most one compression flag may be given"}
	}
	if len(chosen) == 1 {
		return chosen[0], nil
	}

	codec := compress.Codec(configured)
	if codec == "" {
		return compress.CodecNone, nil
	}
	if err := codec.Valid(); err != nil {
		return "", &pipeline.UserInputError{Msg: err.Error()}
	}
	return codec, nil
}
