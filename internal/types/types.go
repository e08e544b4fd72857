// Package types defines the archive entry model shared by the policy
// engine, the manifest subsystem, and the archive pipeline.
package types

import (
	"fmt"
	"time"
)

// EntryType classifies an archive entry.
type EntryType string

const (
	// EntryFile is a regular file with content.
	EntryFile EntryType = "file"

	// EntryDir is a directory.
	EntryDir EntryType = "dir"

	// EntrySymlink is a symbolic link to another path.
	EntrySymlink EntryType = "symlink"

	// EntryHardlink is a hard link to content stored earlier in the
	// same archive.
	EntryHardlink EntryType = "hardlink"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() error {
	switch t {
	case EntryFile, EntryDir, EntrySymlink, EntryHardlink:
		return nil
	}
	return fmt.Errorf("unknown entry type %q", string(t))
}

// IsLink reports whether the entry type carries a link target.
func (t EntryType) IsLink() bool {
	return t == EntrySymlink || t == EntryHardlink
}

// RawEntry is one record as produced by the tar codec. The policy engine
// consumes it read-only; it is never mutated after creation.
type RawEntry struct {
	// Path is the entry path exactly as stored in the archive.
	Path string

	// Type classifies the entry.
	Type EntryType

	// LinkTarget is the declared target for symlink/hardlink entries,
	// empty otherwise.
	LinkTarget string

	// Size is the content size in bytes. Zero for directories and links.
	Size uint64

	// Mode holds the permission bits as stored in the archive header.
	Mode uint32

	// ModTime is the recorded modification time, if any.
	ModTime time.Time
}
