package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tarmor/tarmor/internal/formatter"
)

var (
	verifyFile     string
	verifyManifest string
	verifyRelaxed  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify -f ARCHIVE --manifest FILE",
	Short: "Check an archive against a stored manifest",
	Long: `Hash an archive's entries and compare them against a stored
manifest, without extracting. Missing and mismatched entries always fail;
--relaxed tolerates entries the manifest does not list.

Examples:
  tarmor verify -f backup.tar.gz --manifest backup.manifest.json
  tarmor verify -f backup.tar.gz --manifest backup.manifest.json --relaxed`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "", "Archive file to read (required)")
	verifyCmd.Flags().StringVar(&verifyManifest, "manifest", "", "Manifest JSON to verify against (required)")
	verifyCmd.Flags().BoolVar(&verifyRelaxed, "relaxed", false, "Tolerate archive entries the manifest does not list")
	_ = verifyCmd.MarkFlagRequired("file")
	_ = verifyCmd.MarkFlagRequired("manifest")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p := newPipeline(cfg, cfg.ToPolicy())
	summary, err := p.VerifyArchive(cmd.Context(), verifyFile, verifyManifest, verifyRelaxed)

	if summary != nil && summary.Report != nil && !quiet {
		_ = formatter.WriteReport(os.Stdout, summary.Report)
	}
	return err
}
