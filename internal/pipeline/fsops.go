package pipeline

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tarmor/tarmor/internal/policy"
)

const (
	defaultFileMode fs.FileMode = 0o644
	defaultDirMode  fs.FileMode = 0o755
)

// destFS materializes admitted decisions under a single destination root.
// Every path it touches is a normalized root-relative path produced by the
// policy engine; it never re-validates, only executes.
type destFS struct {
	root string
}

func newDestFS(root string) *destFS {
	return &destFS{root: root}
}

// abs maps a normalized slash-separated path to its on-disk location.
func (f *destFS) abs(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

// Apply executes one admitted decision. content supplies the file bytes for
// write_file actions and is ignored otherwise.
func (f *destFS) Apply(d policy.Decision, content io.Reader) error {
	rel := d.Path.String()
	dst := f.abs(rel)

	switch d.Action.Kind {
	case policy.ActionCreateDir:
		if err := os.MkdirAll(dst, sanitizeMode(d.Entry.Mode, defaultDirMode)); err != nil {
			return fmt.Errorf("create directory %s: %w", rel, err)
		}
		return nil

	case policy.ActionWriteFile:
		if err := f.ensureParent(dst); err != nil {
			return err
		}
		out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, sanitizeMode(d.Entry.Mode, defaultFileMode))
		if err != nil {
			return fmt.Errorf("create file %s: %w", rel, err)
		}
		if _, err := io.Copy(out, content); err != nil {
			out.Close()
			return fmt.Errorf("write file %s: %w", rel, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", rel, err)
		}
		return nil

	case policy.ActionCreateSymlink:
		if err := f.ensureParent(dst); err != nil {
			return err
		}
		// Replace whatever an earlier (duplicate) entry left behind.
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("replace symlink %s: %w", rel, err)
		}
		// The linkname is parent-relative by POSIX semantics (absolute
		// only when confinement is off); writing it verbatim reproduces
		// the link's meaning and keeps extracted trees relocatable.
		if err := os.Symlink(filepath.FromSlash(d.Action.Target), dst); err != nil {
			return fmt.Errorf("create symlink %s: %w", rel, err)
		}
		return nil

	case policy.ActionCreateHardlink:
		if err := f.ensureParent(dst); err != nil {
			return err
		}
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("replace hardlink %s: %w", rel, err)
		}
		if err := os.Link(f.abs(d.Action.Target), dst); err != nil {
			return fmt.Errorf("create hardlink %s: %w", rel, err)
		}
		return nil
	}
	return fmt.Errorf("unknown action %q for %s", d.Action.Kind, rel)
}

func (f *destFS) ensureParent(dst string) error {
	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, defaultDirMode); err != nil {
		return fmt.Errorf("create parent directory %s: %w", parent, err)
	}
	return nil
}

// sanitizeMode strips setuid, setgid, and sticky bits so archives never
// plant privilege-escalation bits on the destination, and falls back to a
// safe default when the archive declares no permissions at all.
func sanitizeMode(mode uint32, fallback fs.FileMode) fs.FileMode {
	m := fs.FileMode(mode) & fs.ModePerm
	if m == 0 {
		return fallback
	}
	return m
}
