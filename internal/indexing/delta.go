package indexing

import (
	"sort"
)

// Change classifies a path relative to the stored hash map.
type Change int

const (
	ChangeAdded Change = iota
	ChangeModified
	ChangeDeleted
	ChangeUnchanged
)

func (c Change) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	case ChangeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Delta is the outcome of comparing a filesystem scan against the
// stored file-hash map. Each slice is sorted by path.
type Delta struct {
	Added     []string
	Modified  []string
	Deleted   []string
	Unchanged []string
}

// Classify compares scanned files against stored hashes. It performs no
// mutation; the coordinator applies the result. Scanned content is
// hashed here so classification and the later insert agree byte-for-byte.
func Classify(stored map[string]string, scanned []ScannedFile) Delta {
	var d Delta

	seen := make(map[string]bool, len(scanned))
	for _, f := range scanned {
		seen[f.Path] = true
		prior, ok := stored[f.Path]
		switch {
		case !ok:
			d.Added = append(d.Added, f.Path)
		case prior != HashBytes(f.Data):
			d.Modified = append(d.Modified, f.Path)
		default:
			d.Unchanged = append(d.Unchanged, f.Path)
		}
	}

	for path := range stored {
		if !seen[path] {
			d.Deleted = append(d.Deleted, path)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Modified)
	sort.Strings(d.Deleted)
	sort.Strings(d.Unchanged)

	return d
}
