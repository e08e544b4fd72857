package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tarmor/tarmor/internal/formatter"
	"github.com/tarmor/tarmor/internal/pipeline"
)

var (
	extractFile            string
	extractDir             string
	extractManifest        string
	extractManifestRelaxed bool
	extractPrintPlan       bool
	extractPolicy          policyFlagSet
)

var extractCmd = &cobra.Command{
	Use:   "extract -f ARCHIVE [flags]",
	Short: "Unpack an archive under a destination root",
	Long: `Unpack an archive. Compression is autodetected. Every entry is
checked against the security policy before anything is written: paths are
confined to the destination root, link escapes are rejected, and resource
quotas are enforced.

By default violating entries are skipped and reported, and the run fails
once complete; --strict aborts on the first violation instead.

Examples:
  tarmor extract -f backup.tar.gz -C /restore
  tarmor extract -f in.tar --strict
  tarmor extract -f in.tar --manifest in.manifest.json
  tarmor extract -f in.tar --print-plan`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Archive file to read (required)")
	extractCmd.Flags().StringVarP(&extractDir, "directory", "C", "", "Destination root (default: current directory)")
	extractCmd.Flags().StringVar(&extractManifest, "manifest", "", "Verify extracted contents against this manifest")
	extractCmd.Flags().BoolVar(&extractManifestRelaxed, "manifest-relaxed", false, "Tolerate extracted paths the manifest does not list")
	extractCmd.Flags().BoolVar(&extractPrintPlan, "print-plan", false, "Show policy decisions without touching the destination")
	extractPolicy.register(extractCmd)
	_ = extractCmd.MarkFlagRequired("file")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p := newPipeline(cfg, extractPolicy.apply(cmd, cfg.ToPolicy()))
	summary, err := p.Extract(cmd.Context(), pipeline.ExtractOptions{
		ArchivePath:     extractFile,
		Dest:            extractDir,
		ManifestPath:    extractManifest,
		ManifestRelaxed: extractManifestRelaxed,
		PrintPlan:       extractPrintPlan,
	})

	if summary != nil && extractPrintPlan {
		if renderErr := formatter.WriteDecisionsTable(os.Stdout, summary.Decisions); renderErr != nil {
			return renderErr
		}
	}
	if summary != nil && !quiet {
		if len(summary.Violations) > 0 {
			_ = formatter.WriteViolations(os.Stderr, summary.Violations)
		}
		if summary.Report != nil {
			_ = formatter.WriteReport(os.Stdout, summary.Report)
		}
	}
	return err
}
