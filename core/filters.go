package core

import (
	"slices"
	"strconv"
	"strings"
)

// Filters narrows a search to entries matching every set predicate.
// The zero value matches everything.
type Filters struct {
	DocumentID     string
	Tags           []string
	FilenameSubstr string
	MinWordCount   int
}

// IsZero reports whether no predicate is set.
func (f Filters) IsZero() bool {
	return f.DocumentID == "" && len(f.Tags) == 0 && f.FilenameSubstr == "" && f.MinWordCount == 0
}

// Match reports whether the entry satisfies every set predicate.
// Tag predicates require each requested tag to be present on the entry.
func (f Filters) Match(e *IndexEntry) bool {
	if f.DocumentID != "" && e.DocumentID != f.DocumentID {
		return false
	}
	if f.FilenameSubstr != "" && !strings.Contains(e.Filename, f.FilenameSubstr) {
		return false
	}
	if f.MinWordCount > 0 && e.WordCount < f.MinWordCount {
		return false
	}
	for _, tag := range f.Tags {
		if !slices.Contains(e.Tags, tag) {
			return false
		}
	}
	return true
}

// Canonical returns a deterministic serialization of the filter set.
// Two filter sets with the same predicates produce the same string
// regardless of tag order, so they hash to the same cache key.
func (f Filters) Canonical() string {
	tags := slices.Clone(f.Tags)
	slices.Sort(tags)

	var b strings.Builder
	b.WriteString("doc=")
	b.WriteString(f.DocumentID)
	b.WriteString(";file=")
	b.WriteString(f.FilenameSubstr)
	b.WriteString(";minwc=")
	b.WriteString(strconv.Itoa(f.MinWordCount))
	b.WriteString(";tags=")
	b.WriteString(strings.Join(tags, ","))
	return b.String()
}
