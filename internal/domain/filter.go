package domain

import (
	"fmt"
	"strings"
)

// ScopeKind selects how a filter restricts events geographically. Modeled as
// an enum rather than mode strings so matching can switch exhaustively and
// fail closed on anything unhandled.
type ScopeKind int

const (
	// ScopeGlobal matches everywhere; only the magnitude floor applies.
	ScopeGlobal ScopeKind = iota

	// ScopeGeofence matches events within RadiusKm of the user's last known
	// position. Without a position nothing matches.
	ScopeGeofence

	// ScopePlaces matches events whose normalized place contains any of the
	// comma-delimited PlaceTerms, case-insensitively.
	ScopePlaces
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeGeofence:
		return "geofence"
	case ScopePlaces:
		return "places"
	default:
		return fmt.Sprintf("ScopeKind(%d)", int(k))
	}
}

// ParseScopeKind converts a configuration string to a ScopeKind.
func ParseScopeKind(s string) (ScopeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "global", "":
		return ScopeGlobal, nil
	case "geofence", "radius":
		return ScopeGeofence, nil
	case "places", "place":
		return ScopePlaces, nil
	default:
		return ScopeGlobal, fmt.Errorf("unknown scope %q", s)
	}
}

// Filter is the scope-plus-magnitude predicate shared by notification
// matching and display filtering. The two are configured independently: a
// user may browse one region while alerting on another.
type Filter struct {
	Scope        ScopeKind
	MinMagnitude float64
	PlaceTerms   string
	RadiusKm     float64
}

// Matches reports whether an event passes the filter. userLoc is the current
// user position, nil when none is known. Pure: no side effects, no I/O.
func (f Filter) Matches(e Event, userLoc *Coordinate) bool {
	// Magnitude gate first; scope is never consulted below the floor.
	if e.Magnitude < f.MinMagnitude {
		return false
	}

	switch f.Scope {
	case ScopeGlobal:
		return true
	case ScopeGeofence:
		// Fail closed: never guess a location, and events without usable
		// coordinates cannot be placed inside any fence.
		if userLoc == nil || !e.HasGeo {
			return false
		}
		return DistanceKm(*userLoc, e.Geo) <= f.RadiusKm
	case ScopePlaces:
		place := strings.ToLower(NormalizePlace(e.Place))
		for _, term := range splitPlaceTerms(f.PlaceTerms) {
			if strings.Contains(place, term) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Apply returns the events that pass the filter, preserving input order.
func (f Filter) Apply(events []Event, userLoc *Coordinate) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Matches(e, userLoc) {
			out = append(out, e)
		}
	}
	return out
}

// splitPlaceTerms splits comma-delimited terms, trims and lowercases each,
// and drops empties.
func splitPlaceTerms(raw string) []string {
	parts := strings.Split(raw, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToLower(strings.TrimSpace(p)); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// NotificationSettings is the per-cycle notification configuration, read at
// the start of each poll cycle. Persistence belongs to the caller.
type NotificationSettings struct {
	Enabled bool
	Filter
}
