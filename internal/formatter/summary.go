package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/tarmor/tarmor/internal/manifest"
	"github.com/tarmor/tarmor/internal/policy"
)

const digestPreviewLen = 12

func statusOk() string       { return color.New(color.FgGreen).Sprint("ok") }
func statusRejected() string { return color.New(color.FgRed).Sprint("rejected") }

// FormatSize renders a byte count with binary units.
func FormatSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// WriteManifestTable renders archive contents, one row per entry.
func WriteManifestTable(w io.Writer, m *manifest.Manifest) error {
	tbl := NewTable("PATH", "TYPE", "SIZE", "DIGEST")
	for _, e := range m.Entries {
		digest := e.Digest
		if len(digest) > digestPreviewLen {
			digest = digest[:digestPreviewLen]
		}
		tbl.AddRow(e.Path, string(e.Type), FormatSize(e.Size), digest)
	}
	if err := tbl.Render(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d entries, aggregate %s:%s\n", len(m.Entries), m.Scheme, m.Aggregate)
	return err
}

// WriteDecisionsTable renders the policy plan: one row per entry with its
// resolved action, or the violation that rejected it.
func WriteDecisionsTable(w io.Writer, decisions []policy.Decision) error {
	tbl := NewTable("PATH", "TYPE", "ACTION", "STATUS")
	for _, d := range decisions {
		if d.Admitted() {
			tbl.AddRow(d.Path.String(), string(d.Entry.Type), string(d.Action.Kind), statusOk())
			continue
		}
		tbl.AddRow(d.Entry.Path, string(d.Entry.Type), "-",
			fmt.Sprintf("%s: %s", statusRejected(), d.Violation.Kind))
	}
	return tbl.Render(w)
}

// WriteViolations lists every recorded violation, one per line.
func WriteViolations(w io.Writer, violations []*policy.Violation) error {
	red := color.New(color.FgRed)
	for _, v := range violations {
		if _, err := fmt.Fprintf(w, "%s %s\n", red.Sprint("violation:"), v.Error()); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport renders a verification report. Matched paths are summarized;
// every discrepancy is listed individually.
func WriteReport(w io.Writer, r *manifest.Report) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if _, err := fmt.Fprintf(w, "%s %d matched\n", green.Sprint("✓"), len(r.Matched)); err != nil {
		return err
	}
	for _, m := range r.Mismatched {
		if _, err := fmt.Fprintf(w, "%s %s: expected %s, got %s\n",
			red.Sprint("✗ mismatched"), m.Path, preview(m.Expected), preview(m.Actual)); err != nil {
			return err
		}
	}
	for _, path := range r.Missing {
		if _, err := fmt.Fprintf(w, "%s %s\n", red.Sprint("✗ missing"), path); err != nil {
			return err
		}
	}
	for _, path := range r.Extra {
		if _, err := fmt.Fprintf(w, "%s %s\n", yellow.Sprint("? extra"), path); err != nil {
			return err
		}
	}
	return nil
}

// preview shortens bare digests for terminal display; mismatch details that
// render metadata tuples stay intact.
func preview(s string) string {
	if strings.ContainsRune(s, ' ') || len(s) <= digestPreviewLen {
		return s
	}
	return s[:digestPreviewLen]
}
