package policy

import "github.com/tarmor/tarmor/internal/types"

// ActionKind enumerates the filesystem mutations an admitted entry maps to.
type ActionKind string

const (
	ActionWriteFile      ActionKind = "write_file"
	ActionCreateDir      ActionKind = "create_dir"
	ActionCreateSymlink  ActionKind = "create_symlink"
	ActionCreateHardlink ActionKind = "create_hardlink"
)

// Action is the resolved filesystem action for an admitted entry. For
// symlinks Target is the declared linkname, preserved verbatim; for
// hardlinks it is the normalized archive path of the linked-to entry. It is
// empty for files and directories.
type Action struct {
	Kind   ActionKind
	Target string
}

// ResolveLink validates an entry's link target (if any) against the
// confinement root and maps the entry to its Action.
//
// Resolution operates purely on the archive's declared graph: filesystem
// symlinks are never followed here, which keeps policy evaluation free of
// TOCTOU races.
//
// admitted looks up paths already admitted earlier in the same operation;
// hardlinks may only reference that set.
func ResolveLink(entry types.RawEntry, source NormalizedPath, cfg Config, admitted func(string) bool) (Action, *Violation) {
	switch entry.Type {
	case types.EntryFile:
		return Action{Kind: ActionWriteFile}, nil
	case types.EntryDir:
		return Action{Kind: ActionCreateDir}, nil
	}

	if entry.LinkTarget == "" {
		return Action{}, &Violation{Kind: ViolationInvalidPath, Path: entry.Path}
	}
	if entry.Type == types.EntryHardlink {
		return resolveHardlink(entry, source, cfg, admitted)
	}
	return resolveSymlink(entry, source, cfg)
}

// resolveSymlink confines a symlink under POSIX semantics: a relative
// linkname resolves against the link's own parent directory, so "../sibling"
// declared by "a/b/link" lands on "a/sibling" and stays in-root. The
// declared linkname is kept verbatim in the Action so extraction reproduces
// the link exactly; only the resolved location is checked.
func resolveSymlink(entry types.RawEntry, source NormalizedPath, cfg Config) (Action, *Violation) {
	action := Action{Kind: ActionCreateSymlink, Target: entry.LinkTarget}
	if !cfg.ConfineLinksToRoot {
		return action, nil
	}

	escape := &Violation{
		Kind:   ViolationLinkEscapesRoot,
		Path:   source.String(),
		Target: entry.LinkTarget,
	}
	if _, absolute := stripRootMarker(entry.LinkTarget); absolute {
		return Action{}, escape
	}

	// Walk the target from the link's parent directory. Popping above the
	// root is an escape no matter how deep the link sits; resolving onto
	// the root itself is fine.
	stack := source.Segments()
	if len(stack) > 0 {
		stack = stack[:len(stack)-1]
	}
	for _, seg := range splitSegments(entry.LinkTarget) {
		switch seg {
		case ".":
		case "..":
			if len(stack) == 0 {
				return Action{}, escape
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}
	return action, nil
}

// resolveHardlink confines a hardlink linkname, which names another archive
// entry relative to the archive root. The target must normalize inside the
// root and match a path admitted earlier in the same operation; the Action
// carries the normalized form so extraction can link to it directly.
func resolveHardlink(entry types.RawEntry, source NormalizedPath, cfg Config, admitted func(string) bool) (Action, *Violation) {
	if !cfg.ConfineLinksToRoot {
		return Action{Kind: ActionCreateHardlink, Target: entry.LinkTarget}, nil
	}

	// Force the absolute-path and traversal-resolution rules regardless of
	// how the entry-path rules are configured: a link escape is a link
	// escape.
	targetCfg := cfg
	targetCfg.RejectAbsolutePaths = true
	targetCfg.RejectParentTraversal = false
	target, v := Normalize(entry.LinkTarget, targetCfg)
	if v != nil || !admitted(target.String()) {
		return Action{}, &Violation{
			Kind:   ViolationLinkEscapesRoot,
			Path:   source.String(),
			Target: entry.LinkTarget,
		}
	}
	return Action{Kind: ActionCreateHardlink, Target: target.String()}, nil
}
