package walker

import "strings"

// Deduplicator admits or rejects candidates against the names already
// accepted in this session. Name equality is case-insensitive and
// whitespace-normalized; on collision the first-seen record wins and no
// fields are merged, since a generic shared name can belong to two distinct
// businesses with different extraction success.
type Deduplicator struct {
	seen map[string]bool
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]bool)}
}

// Admit reports whether the name is new and records it.
func (d *Deduplicator) Admit(name string) bool {
	key := CanonicalName(name)
	if key == "" || d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

// Seen reports whether a name was already admitted.
func (d *Deduplicator) Seen(name string) bool {
	return d.seen[CanonicalName(name)]
}

// CanonicalName folds case and collapses interior whitespace.
func CanonicalName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
