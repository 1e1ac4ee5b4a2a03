package usecases

import (
	"strings"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

const (
	maxSuggestions   = 10
	minSuggestLength = 2
)

// PlaceIndex is the preloaded place-name index used for autocomplete and
// query disambiguation.
type PlaceIndex struct {
	places []domain.Place
	lower  []string
	exact  map[string]domain.Place
}

// NewPlaceIndex builds an index over places, keeping their order.
func NewPlaceIndex(places []domain.Place) *PlaceIndex {
	idx := &PlaceIndex{
		places: make([]domain.Place, 0, len(places)),
		lower:  make([]string, 0, len(places)),
		exact:  make(map[string]domain.Place, len(places)),
	}
	for _, p := range places {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		p.Name = name
		key := strings.ToLower(name)
		idx.places = append(idx.places, p)
		idx.lower = append(idx.lower, key)
		if _, dup := idx.exact[key]; !dup {
			idx.exact[key] = p
		}
	}
	return idx
}

// Len returns the number of indexed places.
func (idx *PlaceIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.places)
}

// Match returns up to 10 places whose name starts with q or contains q at a
// word boundary, case-insensitively.
func (idx *PlaceIndex) Match(q string) []domain.Place {
	if idx == nil {
		return nil
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []domain.Place
	for i, name := range idx.lower {
		if strings.HasPrefix(name, q) || strings.Contains(name, " "+q) {
			out = append(out, idx.places[i])
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// Suggest returns autocomplete labels ("Name (Region)") for q. Queries
// shorter than two characters yield nothing.
func (idx *PlaceIndex) Suggest(q string) []string {
	if len([]rune(strings.TrimSpace(q))) < minSuggestLength {
		return []string{}
	}
	matches := idx.Match(q)
	labels := make([]string, 0, len(matches))
	for _, p := range matches {
		labels = append(labels, p.Label())
	}
	return labels
}

// Exact looks up a place by its full name, case-insensitively.
func (idx *PlaceIndex) Exact(name string) (domain.Place, bool) {
	if idx == nil {
		return domain.Place{}, false
	}
	p, ok := idx.exact[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// StripRegion removes a trailing " (Region)" from an autocomplete label.
func StripRegion(label string) string {
	if i := strings.Index(label, " ("); i > 0 {
		return strings.TrimSpace(label[:i])
	}
	return strings.TrimSpace(label)
}
