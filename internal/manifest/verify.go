package manifest

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Mismatch records a path present on both sides with differing digest or
// metadata. Expected and Actual hold the digests when those differ,
// otherwise the rendered metadata tuples, so the record always shows the
// field that actually diverged.
type Mismatch struct {
	Path     string `json:"path"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Report classifies every path from the union of manifest and observed
// entries into exactly one bucket. No path is ever silently dropped.
type Report struct {
	Matched    []string   `json:"matched"`
	Missing    []string   `json:"missing"`
	Extra      []string   `json:"extra"`
	Mismatched []Mismatch `json:"mismatched"`
}

// Ok reports whether verification passed. Missing and mismatched paths are
// always fatal; extra paths are tolerated only in relaxed mode.
func (r *Report) Ok(relaxed bool) bool {
	if len(r.Missing) > 0 || len(r.Mismatched) > 0 {
		return false
	}
	return relaxed || len(r.Extra) == 0
}

// Verify compares observed entries against a stored manifest. Buckets:
//
//   - matched: present on both sides with equal digest, type, size, and mode
//   - mismatched: present on both sides, any field differs (always fatal)
//   - missing: in the manifest, absent from observed (always fatal — a
//     manifest promises completeness)
//   - extra: observed but not in the manifest (fatal unless relaxed)
func Verify(expected *Manifest, observed []Entry) *Report {
	expectedByPath := lo.KeyBy(expected.Entries, func(e Entry) string { return e.Path })
	observedByPath := lo.KeyBy(observed, func(e Entry) string { return e.Path })

	report := &Report{
		Matched:    []string{},
		Missing:    []string{},
		Extra:      []string{},
		Mismatched: []Mismatch{},
	}

	union := lo.Uniq(append(lo.Keys(expectedByPath), lo.Keys(observedByPath)...))
	sort.Strings(union)

	for _, path := range union {
		want, inManifest := expectedByPath[path]
		got, inObserved := observedByPath[path]
		switch {
		case inManifest && !inObserved:
			report.Missing = append(report.Missing, path)
		case !inManifest && inObserved:
			report.Extra = append(report.Extra, path)
		case want == got:
			report.Matched = append(report.Matched, path)
		default:
			expected, actual := mismatchDetail(want, got)
			report.Mismatched = append(report.Mismatched, Mismatch{
				Path:     path,
				Expected: expected,
				Actual:   actual,
			})
		}
	}
	return report
}

func mismatchDetail(want, got Entry) (string, string) {
	if want.Digest != got.Digest {
		return want.Digest, got.Digest
	}
	return metadataTuple(want), metadataTuple(got)
}

func metadataTuple(e Entry) string {
	return fmt.Sprintf("type=%s size=%d mode=%o target=%q", e.Type, e.Size, e.Mode, e.Target)
}

// VerifyError is the terminal failure produced when a report does not pass.
// It keeps the full report so callers can render every discrepancy.
type VerifyError struct {
	Report  *Report
	Relaxed bool
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("manifest verification failed: %d missing, %d mismatched, %d extra",
		len(e.Report.Missing), len(e.Report.Mismatched), len(e.Report.Extra))
}

// Check converts a report into the overall verification result.
func (r *Report) Check(relaxed bool) error {
	if r.Ok(relaxed) {
		return nil
	}
	return &VerifyError{Report: r, Relaxed: relaxed}
}
