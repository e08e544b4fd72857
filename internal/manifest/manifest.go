// Package manifest computes, persists, and verifies deterministic records of
// archive contents. A manifest is sorted by normalized path, so two archives
// with identical (path, content, mode, type) sets serialize byte-identically
// regardless of original entry order.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tarmor/tarmor/internal/types"
)

// FormatVersion is the manifest document schema version.
const FormatVersion = 1

// Entry describes one admitted archive entry. Immutable after creation.
type Entry struct {
	Path   string          `json:"path"`
	Type   types.EntryType `json:"type"`
	Size   uint64          `json:"size"`
	Mode   uint32          `json:"mode"`
	Digest string          `json:"digest"`
	Target string          `json:"target,omitempty"`
}

// Manifest is the canonical, order-stable record of an archive's contents.
type Manifest struct {
	Version   int     `json:"version"`
	Scheme    Scheme  `json:"scheme"`
	Aggregate string  `json:"aggregate"`
	Entries   []Entry `json:"entries"`
}

// New assembles a manifest from entries: sorts them by path, computes the
// aggregate digest, and stamps the format version. The input slice is sorted
// in place.
func New(scheme Scheme, entries []Entry) *Manifest {
	sortEntries(entries)
	return &Manifest{
		Version:   FormatVersion,
		Scheme:    scheme,
		Aggregate: aggregate(scheme, entries),
		Entries:   entries,
	}
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
}

// aggregate hashes the ordered concatenation of per-entry tuples. Any
// single-field change anywhere changes the aggregate.
func aggregate(scheme Scheme, entries []Entry) string {
	h := scheme.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00%o\x00%s\x00%s\n",
			e.Path, e.Type, e.Size, e.Mode, e.Digest, e.Target)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MetadataDigest computes the digest for entries without a content stream
// (directories, symlinks, hardlinks): a hash over the metadata tuple.
func MetadataDigest(scheme Scheme, entryType types.EntryType, path string, mode uint32, target string) string {
	h := scheme.New()
	fmt.Fprintf(h, "%s\x00%s\x00%o\x00%s", entryType, path, mode, target)
	return hex.EncodeToString(h.Sum(nil))
}

// Encode writes the manifest as indented JSON. Encoding a manifest parsed by
// Decode reproduces the original bytes.
func (m *Manifest) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// Decode parses a manifest document and validates its internal consistency:
// schema version, digest scheme, sorted order, and aggregate digest.
func Decode(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	if err := m.Scheme.Valid(); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if !sort.SliceIsSorted(m.Entries, func(i, j int) bool { return m.Entries[i].Path < m.Entries[j].Path }) {
		return nil, fmt.Errorf("manifest entries not sorted by path")
	}
	if got := aggregate(m.Scheme, m.Entries); got != m.Aggregate {
		return nil, fmt.Errorf("manifest aggregate digest mismatch: stored %s, computed %s", m.Aggregate, got)
	}
	return &m, nil
}

// WriteFile persists the manifest to path.
func (m *Manifest) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest %s: %w", path, err)
	}
	if err := m.Encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest %s: %w", path, err)
	}
	return nil
}

// LoadFile reads and validates a manifest from path.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
