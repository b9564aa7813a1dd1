package scanner

import "HNFilter/internal/domain"

// Deduplicator remembers URLs emitted during one fetch cycle.
// It is not safe for concurrent use; concurrent cycles need their own instance.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator returns an empty set.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// MarkIfNew records url and reports true the first time a trimmed URL is seen.
// Blank URLs are never new.
func (d *Deduplicator) MarkIfNew(url string) bool {
	key := domain.NormalizeURL(url)
	if key == "" {
		return false
	}
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Reset forgets every recorded URL.
func (d *Deduplicator) Reset() {
	d.seen = make(map[string]struct{})
}

// Len is the number of distinct URLs recorded.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}
