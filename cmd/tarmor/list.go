package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tarmor/tarmor/internal/formatter"
)

var (
	listFile string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list -f ARCHIVE",
	Short: "Show an archive's contents and digests",
	Long: `List an archive's entries with their content digests, without
extracting. Output is the canonical manifest: sorted by path with an
aggregate digest over the whole entry set.

Examples:
  tarmor list -f backup.tar.gz
  tarmor list -f backup.tar.gz --json > backup.manifest.json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listFile, "file", "f", "", "Archive file to read (required)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit the manifest as JSON")
	_ = listCmd.MarkFlagRequired("file")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p := newPipeline(cfg, cfg.ToPolicy())
	summary, err := p.List(cmd.Context(), listFile)
	if err != nil {
		return err
	}

	if listJSON || cfg.Output == "json" {
		return summary.Manifest.Encode(os.Stdout)
	}
	return formatter.WriteManifestTable(os.Stdout, summary.Manifest)
}
