package main

import (
	"github.com/spf13/cobra"

	"github.com/tarmor/tarmor/internal/policy"
)

// policyFlagSet holds the per-command policy overrides shared by create and
// extract. Quota flags are only applied when explicitly set, so a literal 0
// means "unlimited" rather than "keep the default".
type policyFlagSet struct {
	strict         bool
	allowAbsolute  bool
	allowTraversal bool
	allowLinks     bool
	maxFiles       uint64
	maxTotalBytes  uint64
	maxSingleFile  uint64
	maxDepth       uint32
}

func (p *policyFlagSet) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&p.strict, "strict", false, "Abort on the first policy violation")
	f.BoolVar(&p.allowAbsolute, "allow-absolute-paths", false, "Admit absolute entry paths by stripping the root marker")
	f.BoolVar(&p.allowTraversal, "allow-parent-traversal", false, "Resolve '..' segments instead of rejecting them")
	f.BoolVar(&p.allowLinks, "allow-links-outside-root", false, "Admit link targets that resolve outside the root")
	f.Uint64Var(&p.maxFiles, "max-files", 0, "Entry count ceiling (0 = unlimited)")
	f.Uint64Var(&p.maxTotalBytes, "max-total-bytes", 0, "Total uncompressed size ceiling in bytes (0 = unlimited)")
	f.Uint64Var(&p.maxSingleFile, "max-single-file", 0, "Single file size ceiling in bytes (0 = unlimited)")
	f.Uint32Var(&p.maxDepth, "max-depth", 0, "Path depth ceiling in segments (0 = unlimited)")
}

// apply layers the explicitly-set flags over the config-derived policy.
func (p *policyFlagSet) apply(cmd *cobra.Command, cfg policy.Config) policy.Config {
	f := cmd.Flags()
	if p.strict {
		cfg.Strict = true
	}
	if p.allowAbsolute {
		cfg.RejectAbsolutePaths = false
	}
	if p.allowTraversal {
		cfg.RejectParentTraversal = false
	}
	if p.allowLinks {
		cfg.ConfineLinksToRoot = false
	}
	if f.Changed("max-files") {
		cfg.MaxEntries = p.maxFiles
	}
	if f.Changed("max-total-bytes") {
		cfg.MaxTotalBytes = p.maxTotalBytes
	}
	if f.Changed("max-single-file") {
		cfg.MaxFileBytes = p.maxSingleFile
	}
	if f.Changed("max-depth") {
		cfg.MaxDepth = p.maxDepth
	}
	return cfg
}
