package manifest

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/tarmor/tarmor/internal/types"
	"github.com/tarmor/tarmor/internal/worker"
)

// hashBufferSize bounds per-worker memory while streaming file content.
const hashBufferSize = 64 * 1024

// Source supplies one admitted entry to the builder. Open must return a
// fresh content reader for file entries; it is nil for directories and
// links, which are digested over their metadata tuple only.
type Source struct {
	Path   string
	Type   types.EntryType
	Size   uint64
	Mode   uint32
	Target string
	Open   func() (io.ReadCloser, error)
}

// Builder computes per-entry digests on a bounded worker pool and aggregates
// them into a canonical manifest. Hashing completion order is irrelevant:
// the output is always re-sorted by path before the aggregate is computed.
type Builder struct {
	scheme Scheme
	pool   *worker.Pool[Source, Entry]
}

// NewBuilder creates a builder hashing with scheme on up to parallelism
// concurrent workers (<= 0 means one per CPU).
func NewBuilder(scheme Scheme, parallelism int) *Builder {
	return &Builder{
		scheme: scheme,
		pool:   worker.NewPool[Source, Entry](parallelism),
	}
}

// Build hashes every source and returns the finalized manifest. If ctx is
// cancelled mid-build, in-flight work stops cooperatively and no partial
// manifest is returned.
func (b *Builder) Build(ctx context.Context, sources []Source) (*Manifest, error) {
	results := b.pool.Process(ctx, sources, b.hashOne)
	if err := worker.FirstError(results); err != nil {
		return nil, err
	}

	entries := make([]Entry, len(results))
	for i, r := range results {
		entries[i] = r.Value
	}
	return New(b.scheme, entries), nil
}

func (b *Builder) hashOne(ctx context.Context, src Source) (Entry, error) {
	entry := Entry{
		Path:   src.Path,
		Type:   src.Type,
		Size:   src.Size,
		Mode:   src.Mode,
		Target: src.Target,
	}

	if src.Type != types.EntryFile || src.Open == nil {
		entry.Size = 0
		entry.Digest = MetadataDigest(b.scheme, src.Type, src.Path, src.Mode, src.Target)
		return entry, nil
	}

	r, err := src.Open()
	if err != nil {
		return Entry{}, fmt.Errorf("open %s for hashing: %w", src.Path, err)
	}
	defer r.Close()

	h := b.scheme.New()
	buf := make([]byte, hashBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return Entry{}, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Entry{}, fmt.Errorf("hash %s: %w", src.Path, err)
		}
	}
	entry.Digest = hex.EncodeToString(h.Sum(nil))
	return entry, nil
}
