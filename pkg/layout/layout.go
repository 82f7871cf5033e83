// Package layout computes side-by-side placement of events that share one
// visual column, such as all events of a single calendar day.
//
// Events are grouped into clusters of transitively overlapping intervals.
// Within a cluster each event gets the leftmost free discrete column and is
// then widened to the right over every neighbour column that has no
// overlapping occupant. The result is expressed as width and offset
// fractions of the full column width.
//
// Intervals are half-open: an event ending at 10:00 does not overlap one
// starting at 10:00.
package layout

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrInvalidInterval = errors.New("event must end after it starts")
	ErrDuplicateKey    = errors.New("duplicate event key")
)

// Event is anything that can be placed in a day column.
type Event interface {
	LayoutKey() string
	LayoutStart() time.Time
	LayoutEnd() time.Time
}

// Info describes where a single event is drawn inside its column.
// WidthFraction == ColumnSpan/TotalColumns and
// OffsetFraction == BaseColumnIndex/TotalColumns.
type Info struct {
	WidthFraction   float64 `json:"widthFraction"`
	OffsetFraction  float64 `json:"offsetFraction"`
	OverlapGroup    int     `json:"overlapGroup"`
	BaseColumnIndex int     `json:"baseColumnIndex"`
	ColumnSpan      int     `json:"columnSpan"`
	TotalColumns    int     `json:"totalColumns"`
}

type interval struct {
	key   string
	start time.Time
	end   time.Time
}

func (a interval) overlaps(b interval) bool {
	return a.start.Before(b.end) && a.end.After(b.start)
}

// CalculateEventLayouts returns the layout of every event keyed by its
// LayoutKey. It fails when two events share a key or when an event does not
// end after it starts.
func CalculateEventLayouts[E Event](events []E) (map[string]Info, error) {
	intervals, err := sortedIntervals(events)
	if err != nil {
		return nil, err
	}

	result := make(map[string]Info, len(intervals))
	for group, members := range cluster(intervals) {
		base, total := assignColumns(intervals, members)
		for _, idx := range members {
			boundary := rightBoundary(intervals, members, base, idx, total)
			result[intervals[idx].key] = newInfo(group, base[idx], boundary-base[idx], total)
		}
	}
	return result, nil
}

// Clusters returns the keys of each overlap group in temporal order.
func Clusters[E Event](events []E) ([][]string, error) {
	intervals, err := sortedIntervals(events)
	if err != nil {
		return nil, err
	}
	groups := cluster(intervals)
	keys := make([][]string, 0, len(groups))
	for _, members := range groups {
		groupKeys := make([]string, 0, len(members))
		for _, idx := range members {
			groupKeys = append(groupKeys, intervals[idx].key)
		}
		keys = append(keys, groupKeys)
	}
	return keys, nil
}

// sortedIntervals validates events and orders them by start, then key.
func sortedIntervals[E Event](events []E) ([]interval, error) {
	intervals := make([]interval, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		iv := interval{key: e.LayoutKey(), start: e.LayoutStart(), end: e.LayoutEnd()}
		if !iv.end.After(iv.start) {
			return nil, fmt.Errorf("event %q [%s, %s): %w", iv.key,
				iv.start.Format(time.RFC3339), iv.end.Format(time.RFC3339), ErrInvalidInterval)
		}
		if _, ok := seen[iv.key]; ok {
			return nil, fmt.Errorf("event %q: %w", iv.key, ErrDuplicateKey)
		}
		seen[iv.key] = struct{}{}
		intervals = append(intervals, iv)
	}

	slices.SortFunc(intervals, func(a, b interval) int {
		if c := a.start.Compare(b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	return intervals, nil
}

func newInfo(group, base, span, total int) Info {
	return Info{
		WidthFraction:   fraction(span, total),
		OffsetFraction:  fraction(base, total),
		OverlapGroup:    group,
		BaseColumnIndex: base,
		ColumnSpan:      span,
		TotalColumns:    total,
	}
}

// total is never zero for a non-empty cluster.
func fraction(n, total int) float64 {
	return float64(n) / float64(total)
}
