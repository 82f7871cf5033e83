package calendar

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/klokku/daylayout/pkg/layout"
	log "github.com/sirupsen/logrus"
)

func startOfDay(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// startOfNextDay is computed from the calendar date, so days around DST
// changes are 23 or 25 hours long.
func startOfNextDay(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, loc)
}

// clipToDay returns the part of e falling into [dayStart, dayEnd).
func clipToDay(e Event, dayStart, dayEnd time.Time) (Event, bool) {
	if !e.StartTime.Before(dayEnd) || !e.EndTime.After(dayStart) {
		return Event{}, false
	}
	if e.StartTime.Before(dayStart) {
		e.StartTime = dayStart
	}
	if e.EndTime.After(dayEnd) {
		e.EndTime = dayEnd
	}
	return e, e.valid()
}

// BuildDayLayouts lays out events for the given number of consecutive days,
// starting with the day that contains firstDay in loc. Events spanning
// midnight appear in every day they touch, clipped to that day. Events that
// do not end after they start are skipped.
func BuildDayLayouts(events []Event, loc *time.Location, firstDay time.Time, days int) ([]DayLayout, error) {
	valid := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.valid() {
			log.Warnf("skipping event %s with invalid time range [%s, %s)", e.UID,
				e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339))
			continue
		}
		valid = append(valid, e)
	}

	result := make([]DayLayout, 0, days)
	dayStart := startOfDay(firstDay, loc)
	for i := 0; i < days; i++ {
		dayEnd := startOfNextDay(dayStart, loc)
		dayLayout, err := buildDayLayout(valid, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		result = append(result, dayLayout)
		dayStart = dayEnd
	}
	return result, nil
}

func buildDayLayout(events []Event, dayStart, dayEnd time.Time) (DayLayout, error) {
	var dayEvents []Event
	for _, e := range events {
		if clipped, ok := clipToDay(e, dayStart, dayEnd); ok {
			dayEvents = append(dayEvents, clipped)
		}
	}

	layouts, err := layout.CalculateEventLayouts(dayEvents)
	if err != nil {
		return DayLayout{}, fmt.Errorf("failed to lay out %s: %w", dayStart.Format(time.DateOnly), err)
	}

	positioned := make([]PositionedEvent, 0, len(dayEvents))
	clusters := 0
	for _, e := range dayEvents {
		info := layouts[e.UID]
		clusters = max(clusters, info.OverlapGroup+1)
		positioned = append(positioned, PositionedEvent{Event: e, Layout: info})
	}
	slices.SortFunc(positioned, func(a, b PositionedEvent) int {
		if c := a.Event.StartTime.Compare(b.Event.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Event.UID, b.Event.UID)
	})

	return DayLayout{
		Date:     dayStart,
		Events:   positioned,
		Clusters: clusters,
	}, nil
}
