package manifest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tarmor/tarmor/internal/types"
)

func sampleEntries() []Entry {
	return []Entry{
		{Path: "b.txt", Type: types.EntryFile, Size: 3, Mode: 0o644, Digest: "bb"},
		{Path: "a.txt", Type: types.EntryFile, Size: 5, Mode: 0o644, Digest: "aa"},
		{Path: "dir", Type: types.EntryDir, Mode: 0o755, Digest: "dd"},
	}
}

func TestNewSortsAndAggregates(t *testing.T) {
	m := New(SchemeSHA256, sampleEntries())

	if m.Version != FormatVersion {
		t.Errorf("version = %d, want %d", m.Version, FormatVersion)
	}
	want := []string{"a.txt", "b.txt", "dir"}
	for i, e := range m.Entries {
		if e.Path != want[i] {
			t.Errorf("entry[%d].Path = %q, want %q", i, e.Path, want[i])
		}
	}
	if m.Aggregate == "" {
		t.Error("aggregate digest empty")
	}
}

func TestManifestDeterministicAcrossInputOrder(t *testing.T) {
	forward := sampleEntries()
	reversed := sampleEntries()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	m1 := New(SchemeSHA256, forward)
	m2 := New(SchemeSHA256, reversed)

	var buf1, buf2 bytes.Buffer
	if err := m1.Encode(&buf1); err != nil {
		t.Fatalf("encode m1: %v", err)
	}
	if err := m2.Encode(&buf2); err != nil {
		t.Fatalf("encode m2: %v", err)
	}
	if !bytes.Equal(buf1.Bytes(), buf2.Bytes()) {
		t.Error("serialized manifests differ across input order")
	}
	if m1.Aggregate != m2.Aggregate {
		t.Errorf("aggregates differ: %s vs %s", m1.Aggregate, m2.Aggregate)
	}
}

func TestAggregateSensitiveToEveryField(t *testing.T) {
	base := New(SchemeSHA256, sampleEntries()).Aggregate

	mutations := []func(*Entry){
		func(e *Entry) { e.Path = "z.txt" },
		func(e *Entry) { e.Size++ },
		func(e *Entry) { e.Mode = 0o600 },
		func(e *Entry) { e.Digest = "ff" },
		func(e *Entry) { e.Type = types.EntrySymlink },
		func(e *Entry) { e.Target = "elsewhere" },
	}
	for i, mutate := range mutations {
		entries := sampleEntries()
		mutate(&entries[0])
		if got := New(SchemeSHA256, entries).Aggregate; got == base {
			t.Errorf("mutation %d did not change the aggregate", i)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := New(SchemeSHA256, sampleEntries())

	var first bytes.Buffer
	if err := m.Encode(&first); err != nil {
		t.Fatalf("encode: %v", err)
	}

	parsed, err := Decode(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var second bytes.Buffer
	if err := parsed.Encode(&second); err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("re-serialized manifest differs from original bytes")
	}
}

func TestDecodeRejectsTampering(t *testing.T) {
	m := New(SchemeSHA256, sampleEntries())
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	tampered := strings.Replace(buf.String(), `"size": 5`, `"size": 6`, 1)
	if tampered == buf.String() {
		t.Fatal("tamper replacement did not apply")
	}
	if _, err := Decode(strings.NewReader(tampered)); err == nil {
		t.Error("decode accepted a manifest with a tampered entry")
	}
}

func TestDecodeRejectsUnknownVersionAndScheme(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"version": 99, "scheme": "sha256", "aggregate": "", "entries": []}`)); err == nil {
		t.Error("decode accepted unknown version")
	}
	if _, err := Decode(strings.NewReader(`{"version": 1, "scheme": "crc32", "aggregate": "", "entries": []}`)); err == nil {
		t.Error("decode accepted unknown scheme")
	}
}

func TestSchemes(t *testing.T) {
	for _, s := range []Scheme{SchemeSHA256, SchemeBLAKE2b, SchemeSHA3_256} {
		if err := s.Valid(); err != nil {
			t.Errorf("scheme %s invalid: %v", s, err)
		}
		h := s.New()
		h.Write([]byte("content"))
		if got := len(h.Sum(nil)); got != 32 {
			t.Errorf("scheme %s digest length = %d, want 32", s, got)
		}
	}
	if err := Scheme("md5").Valid(); err == nil {
		t.Error("md5 accepted as a scheme")
	}
}
