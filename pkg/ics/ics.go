// Package ics reads events from iCalendar data, either files or CalDAV
// collections, and flattens recurring events into single occurrences.
package ics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidWindow = errors.New("window must end after it starts")

// instanceTimeFormat is the iCalendar UTC date-time form. Keys built with it
// stay within one URL path segment.
const instanceTimeFormat = "20060102T150405Z"

// Occurrence is one concrete instance of a VEVENT. Key is the UID for single
// events and "<uid>_<start in UTC, 20060102T150405Z>" for instances of
// recurring ones.
type Occurrence struct {
	Key      string
	UID      string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
}

// Decode reads every calendar in r and returns the occurrences overlapping
// [from, to). Floating times and dates are interpreted in loc.
func Decode(r io.Reader, from, to time.Time, loc *time.Location) ([]Occurrence, error) {
	if !to.After(from) {
		return nil, ErrInvalidWindow
	}

	var occurrences []Occurrence
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("could not decode calendar: %w", err)
		}
		expanded, err := Expand(cal, from, to, loc)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, expanded...)
	}
	return occurrences, nil
}

// Expand returns the occurrences of cal's events overlapping [from, to).
// Instances replaced by a RECURRENCE-ID override are taken from the override.
// Events that cannot be read are skipped.
func Expand(cal *ical.Calendar, from, to time.Time, loc *time.Location) ([]Occurrence, error) {
	if !to.After(from) {
		return nil, ErrInvalidWindow
	}

	events := cal.Events()
	overridden := make(map[string]struct{})
	for _, event := range events {
		recurrenceId, err := event.Props.DateTime(ical.PropRecurrenceID, loc)
		if err != nil || recurrenceId.IsZero() {
			continue
		}
		uid, _ := event.Props.Text(ical.PropUID)
		overridden[instanceKey(uid, recurrenceId)] = struct{}{}
	}

	var occurrences []Occurrence
	for _, event := range events {
		base, err := readEvent(event, loc)
		if err != nil {
			log.Warnf("skipping calendar event: %v", err)
			continue
		}

		recurrenceId, _ := event.Props.DateTime(ical.PropRecurrenceID, loc)
		if !recurrenceId.IsZero() {
			base.Key = instanceKey(base.UID, recurrenceId)
			if overlaps(base, from, to) {
				occurrences = append(occurrences, base)
			}
			continue
		}

		set, err := event.RecurrenceSet(loc)
		if err != nil {
			log.Warnf("skipping event %s with invalid recurrence rule: %v", base.UID, err)
			continue
		}
		if set == nil {
			if overlaps(base, from, to) {
				occurrences = append(occurrences, base)
			}
			continue
		}

		duration := base.End.Sub(base.Start)
		for _, start := range set.Between(from.Add(-duration), to, true) {
			instance := base
			instance.Key = instanceKey(base.UID, start)
			instance.Start = start.In(loc)
			instance.End = instance.Start.Add(duration)
			if _, ok := overridden[instance.Key]; ok || !overlaps(instance, from, to) {
				continue
			}
			occurrences = append(occurrences, instance)
		}
	}
	return occurrences, nil
}

func readEvent(event ical.Event, loc *time.Location) (Occurrence, error) {
	uid, err := event.Props.Text(ical.PropUID)
	if err != nil || uid == "" {
		return Occurrence{}, fmt.Errorf("event without UID")
	}
	summary, _ := event.Props.Text(ical.PropSummary)
	location, _ := event.Props.Text(ical.PropLocation)

	startProp := event.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return Occurrence{}, fmt.Errorf("event %s has no DTSTART", uid)
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return Occurrence{}, fmt.Errorf("event %s: invalid DTSTART: %w", uid, err)
	}

	end, err := endOf(event, startProp, start, loc)
	if err != nil {
		return Occurrence{}, fmt.Errorf("event %s: %w", uid, err)
	}
	if !end.After(start) {
		return Occurrence{}, fmt.Errorf("event %s does not end after it starts", uid)
	}

	return Occurrence{
		Key:      uid,
		UID:      uid,
		Summary:  summary,
		Location: location,
		Start:    start,
		End:      end,
	}, nil
}

// endOf resolves DTEND, then DURATION, then the RFC 5545 defaults: one day
// for date values and zero length for date-times.
func endOf(event ical.Event, startProp *ical.Prop, start time.Time, loc *time.Location) (time.Time, error) {
	if endProp := event.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		end, err := endProp.DateTime(loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid DTEND: %w", err)
		}
		return end, nil
	}
	if durationProp := event.Props.Get(ical.PropDuration); durationProp != nil {
		duration, err := durationProp.Duration()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid DURATION: %w", err)
		}
		return start.Add(duration), nil
	}
	if startProp.ValueType() == ical.ValueDate {
		return start.AddDate(0, 0, 1), nil
	}
	return start, nil
}

func instanceKey(uid string, start time.Time) string {
	return uid + "_" + start.UTC().Format(instanceTimeFormat)
}

func overlaps(o Occurrence, from, to time.Time) bool {
	return o.Start.Before(to) && o.End.After(from)
}
