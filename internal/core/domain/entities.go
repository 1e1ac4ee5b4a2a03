package domain

import (
	"time"
)

// ExclusionFilteredOut is the upstream classification for records that do not
// match the active filter set. Such records are never ranked or rendered.
const ExclusionFilteredOut = 3

// UnmappableDistance is assigned to records without a coordinate so they sort
// after every real great-circle distance.
const UnmappableDistance = 1e12

// ListingRecord is a normalized campsite entry.
type ListingRecord struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	City           string      `json:"city"`
	Address        string      `json:"address"`
	Coordinate     *Coordinate `json:"coordinate,omitempty"`
	ExclusionCode  int         `json:"exclusion_code"`
	DistanceMeters float64     `json:"distance_meters"` // computed per search
}

// Excluded reports whether the record is hidden under the current filter context.
func (r ListingRecord) Excluded() bool {
	return r.ExclusionCode == ExclusionFilteredOut
}

// Mappable reports whether the record carries a coordinate.
func (r ListingRecord) Mappable() bool {
	return r.Coordinate != nil
}

// ResultSet is an ordered sequence of listing records.
type ResultSet []ListingRecord

// Clone returns a deep copy so callers can hand out read-only snapshots.
func (rs ResultSet) Clone() ResultSet {
	if rs == nil {
		return nil
	}
	out := make(ResultSet, len(rs))
	for i, r := range rs {
		if r.Coordinate != nil {
			c := *r.Coordinate
			r.Coordinate = &c
		}
		out[i] = r
	}
	return out
}

// Renderable returns the records the view layer may display: mappable and
// not excluded.
func (rs ResultSet) Renderable() ResultSet {
	out := make(ResultSet, 0, len(rs))
	for _, r := range rs {
		if r.Excluded() || !r.Mappable() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CacheEntry is the single device-local snapshot of the broadest recent fetch.
type CacheEntry struct {
	Records   ResultSet `json:"records"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Place is an entry of the local place-name index.
type Place struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Label renders the place the way autocomplete shows it: "Name (Region)".
func (p Place) Label() string {
	if p.Region == "" {
		return p.Name
	}
	return p.Name + " (" + p.Region + ")"
}

// Result sources.
const (
	SourceCache   = "cache"
	SourceNetwork = "network"
)

// SearchResult is what a completed search publishes to the view layer.
type SearchResult struct {
	Query       string     `json:"query"`
	Center      Coordinate `json:"center"`
	Records     ResultSet  `json:"records"`
	Source      string     `json:"source"`
	CompletedAt time.Time  `json:"completed_at"`
}

// DetailContent is the opaque body returned by the detail provider.
type DetailContent struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}
