package policy

import (
	"strings"
	"unicode/utf8"
)

// NormalizedPath is a confined, root-relative, traversal-free path. The zero
// value names the confinement root itself, which only a directory entry may
// legitimately carry.
type NormalizedPath struct {
	segments []string
}

// String joins the segments with forward slashes. The result never begins
// with a separator and never contains ".." segments; the root renders as
// ".".
func (p NormalizedPath) String() string {
	if len(p.segments) == 0 {
		return "."
	}
	return strings.Join(p.segments, "/")
}

// IsRoot reports whether the path names the confinement root itself.
func (p NormalizedPath) IsRoot() bool {
	return len(p.segments) == 0
}

// Depth is the number of path segments.
func (p NormalizedPath) Depth() int {
	return len(p.segments)
}

// Segments returns a copy of the resolved segments.
func (p NormalizedPath) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Windows device names that must never become filesystem entries, matched
// case-insensitively against the segment base name.
var reservedDeviceNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// Normalize canonicalizes a raw archive path against the confinement root.
//
// Separators from every platform are honored so that an archive produced on
// one OS cannot exploit separator differences on another. "." segments are
// elided, ".." segments pop the last resolved segment, and popping above the
// root always rejects rather than clamping, so no arrangement of segments
// can yield an escaping path.
//
// Normalize is a pure function: depth quotas are the tracker's concern.
func Normalize(raw string, cfg Config) (NormalizedPath, *Violation) {
	if raw == "" {
		return NormalizedPath{}, &Violation{Kind: ViolationInvalidPath, Path: raw}
	}
	if !utf8.ValidString(raw) || strings.ContainsRune(raw, 0) {
		return NormalizedPath{}, &Violation{Kind: ViolationInvalidPath, Path: raw}
	}

	rest, absolute := stripRootMarker(raw)
	if absolute && cfg.RejectAbsolutePaths {
		return NormalizedPath{}, &Violation{Kind: ViolationAbsolutePath, Path: raw}
	}

	var resolved []string
	for _, seg := range splitSegments(rest) {
		switch seg {
		case ".":
			continue
		case "..":
			if cfg.RejectParentTraversal {
				return NormalizedPath{}, &Violation{Kind: ViolationParentTraversal, Path: raw}
			}
			if len(resolved) == 0 {
				return NormalizedPath{}, &Violation{Kind: ViolationParentTraversal, Path: raw}
			}
			resolved = resolved[:len(resolved)-1]
		default:
			clean, ok := cleanSegment(seg)
			if !ok {
				return NormalizedPath{}, &Violation{Kind: ViolationInvalidPath, Path: raw}
			}
			resolved = append(resolved, clean)
		}
	}

	// A path resolving to zero segments names the root itself ("." or
	// "./"). GNU tar archives of "." start with exactly such an entry, so
	// it is admissible; the engine restricts it to directory entries.
	return NormalizedPath{segments: resolved}, nil
}

// stripRootMarker removes a leading root marker and reports whether one was
// present: leading separators, DOS drive letters ("C:"), and UNC prefixes.
func stripRootMarker(raw string) (string, bool) {
	switch {
	case strings.HasPrefix(raw, "\\\\"):
		return strings.TrimLeft(raw, "\\"), true
	case raw[0] == '/' || raw[0] == '\\':
		return strings.TrimLeft(raw, "/\\"), true
	case len(raw) >= 2 && raw[1] == ':' && isASCIILetter(raw[0]):
		return strings.TrimLeft(raw[2:], "/\\"), true
	}
	return raw, false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func splitSegments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// cleanSegment strips the Windows trailing-dot/space quirk and rejects
// reserved device names. A segment that cleans down to nothing is invalid.
func cleanSegment(seg string) (string, bool) {
	clean := strings.TrimRight(seg, ". ")
	if clean == "" {
		return "", false
	}
	base := clean
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if _, reserved := reservedDeviceNames[strings.ToLower(base)]; reserved {
		return "", false
	}
	return clean, true
}
