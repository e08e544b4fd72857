package pipeline

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/tarmor/tarmor/internal/types"
)

// sourceEntry pairs an archive-relative raw entry with the filesystem
// location its content comes from.
type sourceEntry struct {
	Raw types.RawEntry
	Abs string
}

// collectSources walks the inputs and flattens them into archive entries.
// Archive paths are slash-separated and relative to base; an input resolving
// outside base is a user error, because the entry name would have to escape
// the archive root. Symlinks are recorded, never followed.
func collectSources(base string, inputs []string, excludes []string) ([]sourceEntry, error) {
	var sources []sourceEntry
	for _, input := range inputs {
		abs := input
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(base, abs)
		}
		abs = filepath.Clean(abs)

		rel, err := filepath.Rel(base, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, userInputErrorf("input %s is outside the working directory %s", input, base)
		}

		info, err := os.Lstat(abs)
		if err != nil {
			return nil, userInputErrorf("stat input %s: %v", input, err)
		}

		if info.IsDir() {
			dirSources, err := walkDir(base, abs, excludes)
			if err != nil {
				return nil, err
			}
			sources = append(sources, dirSources...)
			continue
		}

		entry, err := entryFromInfo(filepath.ToSlash(rel), abs, info)
		if err != nil {
			return nil, err
		}
		if excluded(entry.Raw.Path, excludes) {
			continue
		}
		sources = append(sources, entry)
	}
	return dedupeSources(sources), nil
}

func walkDir(base, dir string, excludes []string) ([]sourceEntry, error) {
	var sources []sourceEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		slashRel := filepath.ToSlash(rel)
		if slashRel == "." {
			// Archiving the working directory itself: keep its children,
			// not a self-referential root entry.
			return nil
		}
		if excluded(slashRel, excludes) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		entry, err := entryFromInfo(slashRel, path, info)
		if err != nil {
			return err
		}
		sources = append(sources, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func entryFromInfo(rel, abs string, info fs.FileInfo) (sourceEntry, error) {
	raw := types.RawEntry{
		Path:    rel,
		Mode:    uint32(info.Mode().Perm()),
		ModTime: info.ModTime(),
	}
	switch {
	case info.IsDir():
		raw.Type = types.EntryDir
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(abs)
		if err != nil {
			return sourceEntry{}, fmt.Errorf("read symlink %s: %w", rel, err)
		}
		raw.Type = types.EntrySymlink
		raw.LinkTarget = filepath.ToSlash(target)
	case info.Mode().IsRegular():
		raw.Type = types.EntryFile
		raw.Size = uint64(info.Size())
	default:
		return sourceEntry{}, userInputErrorf("input %s has unsupported file type %s", rel, info.Mode().Type())
	}
	return sourceEntry{Raw: raw, Abs: abs}, nil
}

// excluded matches a pattern against the full archive-relative path and
// against the entry's base name, so "*.log" prunes logs at any depth.
func excluded(rel string, patterns []string) bool {
	return lo.SomeBy(patterns, func(p string) bool {
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		ok, _ := filepath.Match(p, filepath.Base(rel))
		return ok
	})
}

// dedupeSources drops repeated archive paths, keeping the first occurrence.
// Overlapping inputs ("dir" and "dir/file") would otherwise store the same
// entry twice and trip the quota counter spuriously.
func dedupeSources(sources []sourceEntry) []sourceEntry {
	return lo.UniqBy(sources, func(s sourceEntry) string { return s.Raw.Path })
}

// loadExcludeFiles reads one glob pattern per line; blank lines and lines
// starting with '#' are skipped.
func loadExcludeFiles(paths []string) ([]string, error) {
	var patterns []string
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, userInputErrorf("open exclude file %s: %v", path, err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return nil, fmt.Errorf("read exclude file %s: %w", path, err)
		}
		f.Close()
	}
	return patterns, nil
}
