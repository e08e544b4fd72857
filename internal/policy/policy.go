// Package policy implements the security policy enforced over every archive
// entry: path confinement, link-escape prevention, and resource quotas.
//
// All functions in this package are pure with respect to the filesystem.
// They operate on the archive's declared entry graph only, so policy
// evaluation can never race against concurrent filesystem changes.
package policy

// Config is the immutable policy configuration for one operation.
//
// A quota ceiling of zero means that dimension is unlimited.
type Config struct {
	// RejectAbsolutePaths rejects entries whose stored path carries a root
	// marker (leading separator, drive letter, or UNC prefix).
	RejectAbsolutePaths bool

	// RejectParentTraversal rejects entries containing any ".." segment.
	// When false, ".." segments are resolved by popping, but resolving
	// above the root is still always rejected.
	RejectParentTraversal bool

	// ConfineLinksToRoot rejects symlink/hardlink targets that resolve
	// outside the confinement root.
	ConfineLinksToRoot bool

	// MaxEntries caps the number of entries per operation.
	MaxEntries uint64

	// MaxTotalBytes caps the aggregate content size per operation.
	MaxTotalBytes uint64

	// MaxFileBytes caps the size of any single file.
	MaxFileBytes uint64

	// MaxDepth caps the number of path segments of any entry.
	MaxDepth uint32

	// Strict makes the first violation abort the whole operation instead
	// of skipping the offending entry.
	Strict bool
}

// DefaultConfig returns the secure-by-default policy: all confinement rules
// on, permissive continuation, and the stock resource ceilings.
func DefaultConfig() Config {
	return Config{
		RejectAbsolutePaths:   true,
		RejectParentTraversal: true,
		ConfineLinksToRoot:    true,
		MaxEntries:            200_000,
		MaxTotalBytes:         8 << 30,
		MaxFileBytes:          2 << 30,
		MaxDepth:              64,
		Strict:                false,
	}
}
