// Package tarcodec adapts the tar container format to the entry model the
// policy engine consumes. The reader is a lazy, forward-only RawEntry
// stream; the writer encodes admitted entries. Header layout details stay
// inside this package.
package tarcodec

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"

	"github.com/tarmor/tarmor/internal/types"
)

// Reader streams RawEntry records from a tar byte stream. It never seeks
// backward; content for the current file entry must be consumed (or
// skipped) before the next call to Next.
type Reader struct {
	tr *tar.Reader
}

// NewReader wraps an uncompressed tar stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{tr: tar.NewReader(r)}
}

// Next returns the next entry, or io.EOF at the end of the archive.
// Entry kinds tar can express but the policy model cannot (devices, FIFOs)
// surface as an error naming the offending path.
func (r *Reader) Next() (types.RawEntry, error) {
	for {
		hdr, err := r.tr.Next()
		if errors.Is(err, io.EOF) {
			return types.RawEntry{}, io.EOF
		}
		if err != nil {
			return types.RawEntry{}, fmt.Errorf("read tar header: %w", err)
		}

		entryType, ok := classify(hdr.Typeflag)
		if !ok {
			if hdr.Typeflag == tar.TypeXGlobalHeader {
				// PAX global headers carry no extractable content.
				continue
			}
			return types.RawEntry{}, fmt.Errorf("unsupported tar entry type %q for %q", hdr.Typeflag, hdr.Name)
		}

		return types.RawEntry{
			Path:       hdr.Name,
			Type:       entryType,
			LinkTarget: hdr.Linkname,
			Size:       uint64(hdr.Size),
			Mode:       uint32(hdr.Mode) & 0o7777,
			ModTime:    hdr.ModTime,
		}, nil
	}
}

// Content returns a bounded reader over the current file entry's bytes.
func (r *Reader) Content() io.Reader {
	return r.tr
}

func classify(flag byte) (types.EntryType, bool) {
	switch flag {
	case tar.TypeReg:
		return types.EntryFile, true
	case tar.TypeDir:
		return types.EntryDir, true
	case tar.TypeSymlink:
		return types.EntrySymlink, true
	case tar.TypeLink:
		return types.EntryHardlink, true
	}
	return "", false
}

// Writer encodes admitted entries into a tar stream with deterministic
// headers: no owner names, numeric ids zeroed, PAX format for long paths.
type Writer struct {
	tw *tar.Writer
}

// NewWriter wraps an uncompressed tar output stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{tw: tar.NewWriter(w)}
}

// WriteEntry appends one entry. content supplies exactly entry.Size bytes
// for file entries and is ignored for the other kinds.
func (w *Writer) WriteEntry(entry types.RawEntry, content io.Reader) error {
	hdr := &tar.Header{
		Name:    entry.Path,
		Mode:    int64(entry.Mode),
		Size:    int64(entry.Size),
		ModTime: entry.ModTime,
		Format:  tar.FormatPAX,
	}

	switch entry.Type {
	case types.EntryFile:
		hdr.Typeflag = tar.TypeReg
	case types.EntryDir:
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
		hdr.Size = 0
	case types.EntrySymlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = entry.LinkTarget
		hdr.Size = 0
	case types.EntryHardlink:
		hdr.Typeflag = tar.TypeLink
		hdr.Linkname = entry.LinkTarget
		hdr.Size = 0
	default:
		return fmt.Errorf("cannot encode entry type %q", entry.Type)
	}

	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header for %s: %w", entry.Path, err)
	}
	if entry.Type == types.EntryFile && entry.Size > 0 {
		if _, err := io.CopyN(w.tw, content, int64(entry.Size)); err != nil {
			return fmt.Errorf("write tar content for %s: %w", entry.Path, err)
		}
	}
	return nil
}

// Close finalizes the archive trailer. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		return fmt.Errorf("finalize tar stream: %w", err)
	}
	return nil
}
