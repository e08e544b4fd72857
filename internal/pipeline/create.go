package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tarmor/tarmor/internal/compress"
	"github.com/tarmor/tarmor/internal/manifest"
	"github.com/tarmor/tarmor/internal/policy"
	"github.com/tarmor/tarmor/internal/tarcodec"
	"github.com/tarmor/tarmor/internal/types"
)

// CreateOptions configures one archive creation.
type CreateOptions struct {
	// ArchivePath is the output archive file.
	ArchivePath string
	// Inputs are the files and directories to archive, relative to Dir.
	Inputs []string
	// Dir is the working directory entry paths are made relative to;
	// empty means the process working directory.
	Dir string
	// Codec selects the output compression.
	Codec compress.Codec
	// Excludes are glob patterns pruning matching paths.
	Excludes []string
	// ExcludeFrom names files holding additional patterns, one per line.
	ExcludeFrom []string
	// ManifestOut, when set, writes the manifest JSON beside the archive.
	ManifestOut string
	// PrintPlan evaluates policy and reports decisions without writing
	// anything.
	PrintPlan bool
}

// Create builds an archive from filesystem inputs. Every candidate entry
// passes through the policy engine before being stored; in strict mode the
// first violation aborts, otherwise violating entries are skipped and the
// run completes but still reports failure.
func (p *Pipeline) Create(ctx context.Context, opts CreateOptions) (*Summary, error) {
	if len(opts.Inputs) == 0 {
		return nil, userInputErrorf("no input paths given")
	}
	if opts.ArchivePath == "" && !opts.PrintPlan {
		return nil, userInputErrorf("no archive path given")
	}
	codec := opts.Codec
	if codec == "" {
		codec = compress.CodecNone
	}
	if err := codec.Valid(); err != nil {
		return nil, &UserInputError{Msg: err.Error()}
	}

	base, err := filepath.Abs(workDir(opts.Dir))
	if err != nil {
		return nil, userInputErrorf("resolve working directory: %v", err)
	}

	excludes := append([]string(nil), opts.Excludes...)
	fromFiles, err := loadExcludeFiles(opts.ExcludeFrom)
	if err != nil {
		return nil, err
	}
	excludes = append(excludes, fromFiles...)

	sources, err := collectSources(base, opts.Inputs, excludes)
	if err != nil {
		return nil, err
	}

	log := p.log.WithField("archive", opts.ArchivePath)
	log.WithField("candidates", len(sources)).Debug("evaluating create inputs")

	engine := policy.NewEngine(p.policy)
	summary := &Summary{Codec: codec}
	var admitted []sourceEntry
	var decisions []policy.Decision
	for _, src := range sources {
		d := engine.Evaluate(src.Raw)
		summary.Decisions = append(summary.Decisions, d)
		if !d.Admitted() {
			summary.Violations = append(summary.Violations, d.Violation)
			log.WithField("path", src.Raw.Path).Warn(d.Violation.Error())
			if p.policy.Strict {
				return summary, &PolicyRunError{Violations: []*policy.Violation{d.Violation}}
			}
			continue
		}
		admitted = append(admitted, src)
		decisions = append(decisions, d)
	}
	summary.EntriesSeen = engine.Tracker().EntriesSeen()
	summary.BytesSeen = engine.Tracker().BytesSeen()

	if opts.PrintPlan {
		return summary, p.runError(summary)
	}

	m, err := p.buildSourceManifest(ctx, admitted, decisions)
	if err != nil {
		return summary, err
	}
	summary.Manifest = m

	if err := p.writeArchive(ctx, opts.ArchivePath, codec, admitted, decisions); err != nil {
		return summary, err
	}
	log.WithField("entries", len(admitted)).Info("archive written")

	if opts.ManifestOut != "" {
		if err := m.WriteFile(opts.ManifestOut); err != nil {
			return summary, err
		}
	}
	return summary, p.runError(summary)
}

// runError maps accumulated violations to the run's terminal error: a
// permissive run that skipped entries still fails overall.
func (p *Pipeline) runError(summary *Summary) error {
	if len(summary.Violations) == 0 {
		return nil
	}
	return &PolicyRunError{Violations: summary.Violations}
}

// buildSourceManifest hashes admitted inputs from their filesystem
// locations on the worker pool.
func (p *Pipeline) buildSourceManifest(ctx context.Context, admitted []sourceEntry, decisions []policy.Decision) (*manifest.Manifest, error) {
	sources := make([]manifest.Source, len(admitted))
	for i, src := range admitted {
		abs := src.Abs
		sources[i] = manifest.Source{
			Path:   decisions[i].Path.String(),
			Type:   src.Raw.Type,
			Size:   src.Raw.Size,
			Mode:   src.Raw.Mode,
			Target: decisions[i].Action.Target,
			Open: func() (io.ReadCloser, error) {
				return os.Open(abs)
			},
		}
	}
	return manifest.NewBuilder(p.scheme, p.parallelism).Build(ctx, sources)
}

// writeArchive streams admitted entries into the output file. Any failure
// removes the partial archive so callers never see a truncated output.
func (p *Pipeline) writeArchive(ctx context.Context, path string, codec compress.Codec, admitted []sourceEntry, decisions []policy.Decision) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(path)
		}
	}()

	cw, err := compress.NewWriter(out, codec)
	if err != nil {
		return err
	}
	tw := tarcodec.NewWriter(cw)
	for i, src := range admitted {
		if err = ctx.Err(); err != nil {
			return err
		}
		entry := src.Raw
		entry.Path = decisions[i].Path.String()
		if entry.Type.IsLink() {
			entry.LinkTarget = decisions[i].Action.Target
		}
		var content io.Reader
		if entry.Type == types.EntryFile {
			f, openErr := os.Open(src.Abs)
			if openErr != nil {
				err = fmt.Errorf("open %s: %w", src.Abs, openErr)
				return err
			}
			content = f
			err = tw.WriteEntry(entry, content)
			f.Close()
		} else {
			err = tw.WriteEntry(entry, nil)
		}
		if err != nil {
			return err
		}
	}
	if err = tw.Close(); err != nil {
		return err
	}
	if err = cw.Close(); err != nil {
		return fmt.Errorf("finalize compressed stream: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close archive %s: %w", path, err)
	}
	return nil
}

// workDir maps an empty directory option to the process working directory.
func workDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
