package formatter

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_BasicOutput(t *testing.T) {
	tbl := NewTable("PATH", "TYPE", "SIZE")
	tbl.AddRow("docs/readme.md", "file", "1.2 KiB")
	tbl.AddRow("docs", "dir", "0 B")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "PATH") || !strings.Contains(out, "TYPE") || !strings.Contains(out, "SIZE") {
		t.Errorf("missing headers in output:\n%s", out)
	}
	if !strings.Contains(out, "----") {
		t.Errorf("missing separator in output:\n%s", out)
	}
	if !strings.Contains(out, "docs/readme.md") || !strings.Contains(out, "dir") {
		t.Errorf("missing data rows in output:\n%s", out)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Errorf("expected 4 lines (header, separator, 2 rows), got %d:\n%s", len(lines), out)
	}
}

func TestTable_EmptyTable(t *testing.T) {
	tbl := NewTable("A", "B")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty output for table with no rows, got:\n%s", buf.String())
	}
}

func TestTable_MaxWidth(t *testing.T) {
	tbl := NewTable("PATH", "STATUS")
	tbl.SetMaxWidth(0, 8)
	tbl.AddRow("very/long/nested/path.txt", "ok")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "very/...") {
		t.Errorf("expected truncated path, got:\n%s", out)
	}
	if strings.Contains(out, "very/long/nested/path.txt") {
		t.Errorf("path should have been truncated:\n%s", out)
	}
}

func TestTable_MissingValues(t *testing.T) {
	tbl := NewTable("A", "B", "C")
	tbl.AddRow("only-one")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "only-one") {
		t.Errorf("expected value in output:\n%s", buf.String())
	}
}

func TestTable_TruncateExactlyAtMax(t *testing.T) {
	tbl := NewTable("ID", "VALUE")
	tbl.SetMaxWidth(0, 5)
	tbl.AddRow("abcde", "ok") // len == max, should NOT truncate

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "abcde") {
		t.Errorf("string at exactly max should not be truncated:\n%s", buf.String())
	}
}

func TestTable_SeparatorMatchesHeaderLength(t *testing.T) {
	tbl := NewTable("SHORT", "LONGHEADER")
	tbl.AddRow("x", "y")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected at least 2 lines, got %d", len(lines))
	}
	sepFields := strings.Fields(lines[1])
	if len(sepFields) != 2 {
		t.Fatalf("expected 2 separator fields, got %d: %q", len(sepFields), lines[1])
	}
	if sepFields[0] != "-----" {
		t.Errorf("expected 5 dashes for SHORT, got %q", sepFields[0])
	}
	if sepFields[1] != "----------" {
		t.Errorf("expected 10 dashes for LONGHEADER, got %q", sepFields[1])
	}
}

// --- Benchmarks ---

func BenchmarkTableRender(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tbl := NewTable("Path", "Type", "Size")
		tbl.SetMaxWidth(0, 40)
		for j := 0; j < 10; j++ {
			tbl.AddRow("some/archived/path.txt", "file", "4.0 KiB")
		}
		var buf bytes.Buffer
		_ = tbl.Render(&buf)
	}
}
