package policy

import "math"

// Tracker holds the running quota counters for one create or extract
// operation. It is exclusively owned by the sequential evaluation stage and
// must never be shared across operations.
type Tracker struct {
	entriesSeen uint64
	bytesSeen   uint64
}

// NewTracker returns counters for a fresh operation.
func NewTracker() *Tracker {
	return &Tracker{}
}

// EntriesSeen is the number of committed entries.
func (t *Tracker) EntriesSeen() uint64 { return t.entriesSeen }

// BytesSeen is the aggregate committed content size.
func (t *Tracker) BytesSeen() uint64 { return t.bytesSeen }

// CheckAndCommit evaluates one candidate entry against the configured
// ceilings and, only on success, commits its contribution to the counters.
// The commit is all-or-nothing: a rejected candidate never changes state.
//
// Checks run in a fixed order (entries, total bytes, per-file bytes, depth)
// so that the first violation in that order is the one reported when several
// ceilings are breached at once. A ceiling of zero disables that dimension.
func (t *Tracker) CheckAndCommit(cfg Config, path string, size uint64, depth int) *Violation {
	if cfg.MaxEntries > 0 {
		if t.entriesSeen == math.MaxUint64 || t.entriesSeen+1 > cfg.MaxEntries {
			return &Violation{
				Kind:   ViolationEntryCountExceeded,
				Path:   path,
				Limit:  cfg.MaxEntries,
				Actual: t.entriesSeen + 1,
			}
		}
	}
	if cfg.MaxTotalBytes > 0 {
		// An addition that would wrap is itself a breach.
		if size > math.MaxUint64-t.bytesSeen || t.bytesSeen+size > cfg.MaxTotalBytes {
			return &Violation{
				Kind:   ViolationTotalSizeExceeded,
				Path:   path,
				Limit:  cfg.MaxTotalBytes,
				Actual: saturatingAdd(t.bytesSeen, size),
			}
		}
	}
	if cfg.MaxFileBytes > 0 && size > cfg.MaxFileBytes {
		return &Violation{
			Kind:   ViolationFileSizeExceeded,
			Path:   path,
			Limit:  cfg.MaxFileBytes,
			Actual: size,
		}
	}
	if cfg.MaxDepth > 0 && uint64(depth) > uint64(cfg.MaxDepth) {
		return &Violation{
			Kind:   ViolationDepthExceeded,
			Path:   path,
			Limit:  uint64(cfg.MaxDepth),
			Actual: uint64(depth),
		}
	}

	t.entriesSeen++
	t.bytesSeen += size
	return nil
}

func saturatingAdd(a, b uint64) uint64 {
	if b > math.MaxUint64-a {
		return math.MaxUint64
	}
	return a + b
}
