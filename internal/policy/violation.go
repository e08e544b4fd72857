package policy

import "fmt"

// ViolationKind enumerates the closed set of policy violations. Callers can
// match exhaustively on the kind when choosing exit codes.
type ViolationKind string

const (
	// ViolationInvalidPath is an empty, undecodable, or otherwise
	// malformed entry path.
	ViolationInvalidPath ViolationKind = "invalid_path"

	// ViolationAbsolutePath is a stored path carrying a root marker.
	ViolationAbsolutePath ViolationKind = "absolute_path"

	// ViolationParentTraversal is a path whose ".." segments are either
	// forbidden outright or resolve above the confinement root.
	ViolationParentTraversal ViolationKind = "parent_traversal"

	// ViolationLinkEscapesRoot is a symlink/hardlink target resolving
	// outside the confinement root or outside the validated entry set.
	ViolationLinkEscapesRoot ViolationKind = "link_escapes_root"

	// ViolationEntryCountExceeded breaches the entry count quota.
	ViolationEntryCountExceeded ViolationKind = "entry_count_exceeded"

	// ViolationTotalSizeExceeded breaches the aggregate size quota.
	ViolationTotalSizeExceeded ViolationKind = "total_size_exceeded"

	// ViolationFileSizeExceeded breaches the per-file size quota.
	ViolationFileSizeExceeded ViolationKind = "file_size_exceeded"

	// ViolationDepthExceeded breaches the path depth quota.
	ViolationDepthExceeded ViolationKind = "depth_exceeded"
)

// Violation describes why a single entry was rejected. It always names the
// offending path and, for quota kinds, the configured ceiling.
type Violation struct {
	Kind   ViolationKind
	Path   string // entry path as stored in the archive
	Target string // link target, for link violations
	Limit  uint64 // configured ceiling, for quota violations
	Actual uint64 // value that breached the ceiling
}

// Error renders a one-line diagnostic attributable to exactly one entry.
func (v *Violation) Error() string {
	switch v.Kind {
	case ViolationInvalidPath:
		return fmt.Sprintf("invalid entry path %q", v.Path)
	case ViolationAbsolutePath:
		return fmt.Sprintf("absolute path rejected: %q", v.Path)
	case ViolationParentTraversal:
		return fmt.Sprintf("path escapes root via parent traversal: %q", v.Path)
	case ViolationLinkEscapesRoot:
		return fmt.Sprintf("link target escapes root: %q -> %q", v.Path, v.Target)
	case ViolationEntryCountExceeded:
		return fmt.Sprintf("entry count exceeded for %q (limit %d, actual %d)", v.Path, v.Limit, v.Actual)
	case ViolationTotalSizeExceeded:
		return fmt.Sprintf("total size exceeded for %q (limit %d, actual %d)", v.Path, v.Limit, v.Actual)
	case ViolationFileSizeExceeded:
		return fmt.Sprintf("file size exceeded for %q (limit %d, actual %d)", v.Path, v.Limit, v.Actual)
	case ViolationDepthExceeded:
		return fmt.Sprintf("depth exceeded for %q (limit %d, actual %d)", v.Path, v.Limit, v.Actual)
	}
	return fmt.Sprintf("policy violation (%s) for %q", v.Kind, v.Path)
}
