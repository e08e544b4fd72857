package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tarmor/tarmor/internal/manifest"
	"github.com/tarmor/tarmor/internal/policy"
	"github.com/tarmor/tarmor/internal/tarcodec"
	"github.com/tarmor/tarmor/internal/types"
)

// ExtractOptions configures one extraction.
type ExtractOptions struct {
	// ArchivePath is the archive to read; compression is autodetected.
	ArchivePath string
	// Dest is the destination root directory, created if missing.
	Dest string
	// ManifestPath, when set, verifies extracted contents against the
	// stored manifest after extraction.
	ManifestPath string
	// ManifestRelaxed tolerates extracted paths the manifest does not
	// list; missing and mismatched entries stay fatal.
	ManifestRelaxed bool
	// PrintPlan evaluates policy over the whole archive and reports
	// decisions without touching the destination.
	PrintPlan bool
}

// Extract unpacks an archive under the destination root. Entries are
// evaluated strictly in archive order; in strict mode the first violation
// aborts with nothing further written, in permissive mode violating entries
// are skipped and the run completes but still reports failure. When a
// manifest is supplied, extracted content is re-hashed and verified with the
// manifest's own digest scheme.
func (p *Pipeline) Extract(ctx context.Context, opts ExtractOptions) (*Summary, error) {
	if opts.ArchivePath == "" {
		return nil, userInputErrorf("no archive path given")
	}
	dest, err := filepath.Abs(workDir(opts.Dest))
	if err != nil {
		return nil, userInputErrorf("resolve destination: %v", err)
	}

	var expected *manifest.Manifest
	scheme := p.scheme
	if opts.ManifestPath != "" {
		expected, err = manifest.LoadFile(opts.ManifestPath)
		if err != nil {
			return nil, err
		}
		// Verification must hash with the scheme the manifest was
		// built with, whatever this run's configured scheme is.
		scheme = expected.Scheme
	}

	in, err := os.Open(opts.ArchivePath)
	if err != nil {
		return nil, userInputErrorf("open archive %s: %v", opts.ArchivePath, err)
	}
	defer in.Close()

	cr, codec, err := openArchiveReader(in, opts.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	log := p.log.WithField("archive", opts.ArchivePath)
	log.WithField("codec", string(codec)).Debug("extracting archive")

	fsys := newDestFS(dest)
	if !opts.PrintPlan {
		if err := os.MkdirAll(dest, defaultDirMode); err != nil {
			return nil, fmt.Errorf("create destination %s: %w", dest, err)
		}
	}

	engine := policy.NewEngine(p.policy)
	summary := &Summary{Codec: codec}
	tr := tarcodec.NewReader(cr)
	var sources []manifest.Source
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		entry, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}

		d := engine.Evaluate(entry)
		summary.Decisions = append(summary.Decisions, d)
		if !d.Admitted() {
			summary.Violations = append(summary.Violations, d.Violation)
			log.WithField("path", entry.Path).Warn(d.Violation.Error())
			if p.policy.Strict {
				// Abort before anything else is written; content of
				// the rejected entry is never consumed.
				return summary, &PolicyRunError{Violations: []*policy.Violation{d.Violation}}
			}
			continue
		}

		if !opts.PrintPlan {
			var content io.Reader
			if entry.Type == types.EntryFile {
				content = tr.Content()
			}
			if err := fsys.Apply(d, content); err != nil {
				return summary, err
			}
		}
		sources = append(sources, extractedSource(fsys, d))
	}
	summary.EntriesSeen = engine.Tracker().EntriesSeen()
	summary.BytesSeen = engine.Tracker().BytesSeen()

	if opts.PrintPlan {
		return summary, p.runError(summary)
	}

	// Hash extracted files in parallel from their final locations.
	built, err := manifest.NewBuilder(scheme, p.parallelism).Build(ctx, sources)
	if err != nil {
		return summary, err
	}
	summary.Manifest = built

	if expected != nil {
		report := manifest.Verify(expected, built.Entries)
		summary.Report = report
		if err := report.Check(opts.ManifestRelaxed); err != nil {
			return summary, err
		}
		log.WithField("matched", len(report.Matched)).Info("manifest verified")
	}
	return summary, p.runError(summary)
}

// extractedSource describes an admitted decision to the manifest builder.
// Files are re-opened from the destination; other kinds digest metadata.
func extractedSource(fsys *destFS, d policy.Decision) manifest.Source {
	src := manifest.Source{
		Path:   d.Path.String(),
		Type:   d.Entry.Type,
		Size:   d.Entry.Size,
		Mode:   d.Entry.Mode,
		Target: d.Action.Target,
	}
	if d.Entry.Type == types.EntryFile {
		abs := fsys.abs(src.Path)
		src.Open = func() (io.ReadCloser, error) {
			return os.Open(abs)
		}
	}
	return src
}
