package domain

import (
	"fmt"
	"sort"
	"time"
)

// Group labels for the two most recent calendar days. Older buckets are
// labeled with their ISO date.
const (
	GroupToday     = "Today"
	GroupYesterday = "Yesterday"
)

const groupDateLayout = "2006-01-02"

// ListedEvent is an event prepared for display, carrying the elapsed time
// since the next older event in the full sorted sequence ("" for the oldest).
type ListedEvent struct {
	Event
	GapFromPrevious string `json:"gap_from_previous,omitempty"`
}

// EventGroup is one calendar-day bucket of the grouped view.
type EventGroup struct {
	Label  string        `json:"label"`
	Date   time.Time     `json:"date"` // local midnight of the bucket's day
	Events []ListedEvent `json:"events"`
}

// GroupedView is the display-ready projection of a snapshot: filtered,
// sorted newest first, and bucketed by viewer-local calendar day. Zero
// groups is the valid "no results" state, distinct from loading or error.
type GroupedView struct {
	Groups []EventGroup `json:"groups"`
	Total  int          `json:"total"`
}

// ProjectGroupedView filters a snapshot for display, sorts it descending by
// time (ties broken by id for determinism), and partitions it into Today /
// Yesterday / per-day buckets in the viewer's local day, newest bucket
// first. Empty buckets are omitted. Gaps are computed across the whole
// sorted sequence, not per bucket.
func ProjectGroupedView(snapshot []Event, filter Filter, userLoc *Coordinate, now time.Time, loc *time.Location) GroupedView {
	if loc == nil {
		loc = time.Local
	}

	filtered := filter.Apply(snapshot, userLoc)
	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].Time.Equal(filtered[j].Time) {
			return filtered[i].Time.After(filtered[j].Time)
		}
		return filtered[i].ID < filtered[j].ID
	})

	view := GroupedView{Total: len(filtered)}
	todayMidnight := localMidnight(now, loc)

	for i, e := range filtered {
		gap := ""
		if i < len(filtered)-1 {
			gap = FormatGap(e.Time.Sub(filtered[i+1].Time))
		}
		listed := ListedEvent{Event: e, GapFromPrevious: gap}

		day := localMidnight(e.Time, loc)
		if n := len(view.Groups); n > 0 && view.Groups[n-1].Date.Equal(day) {
			view.Groups[n-1].Events = append(view.Groups[n-1].Events, listed)
			continue
		}
		view.Groups = append(view.Groups, EventGroup{
			Label:  groupLabel(day, todayMidnight),
			Date:   day,
			Events: []ListedEvent{listed},
		})
	}

	return view
}

// FormatGap renders an inter-event interval as minutes, switching to
// hours-and-minutes at one hour. Sub-minute and non-positive gaps collapse
// to "0 min".
func FormatGap(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int(d.Minutes())
	if mins < 60 {
		return fmt.Sprintf("%d min", mins)
	}
	return fmt.Sprintf("%d h %d min", mins/60, mins%60)
}

func localMidnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

func groupLabel(day, todayMidnight time.Time) string {
	switch {
	case day.Equal(todayMidnight):
		return GroupToday
	case day.Equal(todayMidnight.AddDate(0, 0, -1)):
		return GroupYesterday
	default:
		return day.Format(groupDateLayout)
	}
}
