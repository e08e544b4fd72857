package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tarmor/tarmor/internal/compress"
	"github.com/tarmor/tarmor/internal/manifest"
	"github.com/tarmor/tarmor/internal/policy"
	"github.com/tarmor/tarmor/internal/tarcodec"
	"github.com/tarmor/tarmor/internal/types"
)

// List reads an archive and returns its canonical manifest without touching
// the filesystem. No policy is enforced: listing is a read-only inspection,
// and content digests are computed inline from the sequential tar stream.
func (p *Pipeline) List(ctx context.Context, archivePath string) (*Summary, error) {
	return p.hashArchive(ctx, archivePath, p.scheme)
}

// VerifyArchive checks an archive's contents against a stored manifest
// without extracting. The archive is hashed with the manifest's scheme.
func (p *Pipeline) VerifyArchive(ctx context.Context, archivePath, manifestPath string, relaxed bool) (*Summary, error) {
	if manifestPath == "" {
		return nil, userInputErrorf("no manifest path given")
	}
	expected, err := manifest.LoadFile(manifestPath)
	if err != nil {
		return nil, err
	}

	summary, err := p.hashArchive(ctx, archivePath, expected.Scheme)
	if err != nil {
		return summary, err
	}

	report := manifest.Verify(expected, summary.Manifest.Entries)
	summary.Report = report
	if err := report.Check(relaxed); err != nil {
		return summary, err
	}
	p.log.WithField("archive", archivePath).
		WithField("matched", len(report.Matched)).
		Info("archive verified against manifest")
	return summary, nil
}

// hashArchive streams the archive once and builds its manifest with the
// given scheme.
func (p *Pipeline) hashArchive(ctx context.Context, archivePath string, scheme manifest.Scheme) (*Summary, error) {
	if archivePath == "" {
		return nil, userInputErrorf("no archive path given")
	}
	in, err := os.Open(archivePath)
	if err != nil {
		return nil, userInputErrorf("open archive %s: %v", archivePath, err)
	}
	defer in.Close()

	cr, codec, err := openArchiveReader(in, archivePath)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	entries, err := hashEntries(ctx, cr, scheme)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Codec:    codec,
		Manifest: manifest.New(scheme, entries),
	}, nil
}

func openArchiveReader(in io.Reader, archivePath string) (io.ReadCloser, compress.Codec, error) {
	cr, codec, err := compress.NewReader(in)
	if err != nil {
		return nil, codec, fmt.Errorf("read archive %s: %w", archivePath, err)
	}
	return cr, codec, nil
}

// hashEntries digests every entry from a sequential tar stream. The stream
// cannot be re-read, so file digests are computed inline rather than on the
// worker pool. Paths are canonicalized (but not policy-checked) so the
// result lines up with manifests produced by create and extract.
func hashEntries(ctx context.Context, r io.Reader, scheme manifest.Scheme) ([]manifest.Entry, error) {
	canonical := policy.Config{} // normalization only, every rejection off
	tr := tarcodec.NewReader(r)
	var entries []manifest.Entry
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}

		path, v := policy.Normalize(entry.Path, canonical)
		if v != nil {
			return nil, v
		}
		me := manifest.Entry{
			Path:   path.String(),
			Type:   entry.Type,
			Size:   entry.Size,
			Mode:   entry.Mode,
			Target: entry.LinkTarget,
		}
		if entry.Type == types.EntryFile {
			h := scheme.New()
			if _, err := io.Copy(h, tr.Content()); err != nil {
				return nil, fmt.Errorf("hash %s: %w", entry.Path, err)
			}
			me.Digest = hex.EncodeToString(h.Sum(nil))
		} else {
			me.Size = 0
			me.Digest = manifest.MetadataDigest(scheme, entry.Type, me.Path, entry.Mode, entry.LinkTarget)
		}
		entries = append(entries, me)
	}
}
