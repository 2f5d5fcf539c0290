package crawler

// ExclusionFilter is the caller-configured set of URL keys that are never
// fetched or reported. The zero value excludes nothing.
type ExclusionFilter struct {
	keys map[string]struct{}
}

// NewExclusionFilter builds a filter from absolute URL strings. Entries are
// normalized the same way discovered links are; entries that do not
// normalize are kept verbatim so an exact match still excludes them.
func NewExclusionFilter(urls []string) ExclusionFilter {
	keys := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		if key, err := ParseSeed(raw); err == nil {
			keys[key] = struct{}{}
			continue
		}
		keys[raw] = struct{}{}
	}
	return ExclusionFilter{keys: keys}
}

// IsExcluded reports whether key is in the exclusion set.
func (f ExclusionFilter) IsExcluded(key string) bool {
	_, ok := f.keys[key]
	return ok
}

// Len returns the number of excluded keys.
func (f ExclusionFilter) Len() int {
	return len(f.keys)
}
