package tarcodec

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/tarmor/tarmor/internal/types"
)

func TestWriteReadRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	entries := []types.RawEntry{
		{Path: "dir", Type: types.EntryDir, Mode: 0o755, ModTime: ts},
		{Path: "dir/a.txt", Type: types.EntryFile, Size: 5, Mode: 0o644, ModTime: ts},
		{Path: "dir/link", Type: types.EntrySymlink, LinkTarget: "a.txt", Mode: 0o777, ModTime: ts},
		{Path: "dir/copy", Type: types.EntryHardlink, LinkTarget: "dir/a.txt", Mode: 0o644, ModTime: ts},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, e := range entries {
		var content io.Reader
		if e.Type == types.EntryFile {
			content = strings.NewReader("hello")
		}
		if err := w.WriteEntry(e, content); err != nil {
			t.Fatalf("write %s: %v", e.Path, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r := NewReader(&buf)
	var got []types.RawEntry
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if e.Type == types.EntryFile {
			content, err := io.ReadAll(r.Content())
			if err != nil {
				t.Fatalf("read content: %v", err)
			}
			if string(content) != "hello" {
				t.Errorf("content = %q, want hello", content)
			}
		}
		got = append(got, e)
	}

	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range got {
		want := entries[i]
		if strings.TrimSuffix(e.Path, "/") != want.Path {
			t.Errorf("entry[%d].Path = %q, want %q", i, e.Path, want.Path)
		}
		if e.Type != want.Type {
			t.Errorf("entry[%d].Type = %s, want %s", i, e.Type, want.Type)
		}
		if e.LinkTarget != want.LinkTarget {
			t.Errorf("entry[%d].LinkTarget = %q, want %q", i, e.LinkTarget, want.LinkTarget)
		}
	}
}

func TestReaderRejectsUnsupportedTypes(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name:     "dev/null",
		Typeflag: tar.TypeChar,
		Mode:     0o666,
	}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r := NewReader(&buf)
	if _, err := r.Next(); err == nil {
		t.Error("character device entry accepted")
	}
}

func TestReaderSkipsPaxGlobalHeader(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name:       "pax_global_header",
		Typeflag:   tar.TypeXGlobalHeader,
		PAXRecords: map[string]string{"comment": "ignored"},
	}); err != nil {
		t.Fatalf("write global header: %v", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:     "real.txt",
		Typeflag: tar.TypeReg,
		Size:     0,
		Mode:     0o644,
	}); err != nil {
		t.Fatalf("write file header: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r := NewReader(&buf)
	e, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if e.Path != "real.txt" {
		t.Errorf("path = %q, want real.txt (global header skipped)", e.Path)
	}
}
