package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klokku/daylayout/internal/utils"
	"github.com/klokku/daylayout/pkg/calendar"
	"github.com/klokku/daylayout/pkg/ics"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrNoSource = errors.New("no event source: pass a .yaml/.ics file or --caldav-url")

// yamlEvent is one entry of a YAML event file. Times without an offset are
// read in the layout timezone.
type yamlEvent struct {
	ID       string `yaml:"id"`
	Summary  string `yaml:"summary"`
	Location string `yaml:"location"`
	Color    string `yaml:"color"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
}

var localTimeFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, format := range localTimeFormats {
		if t, err := time.ParseInLocation(format, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time %q, use RFC3339 or YYYY-MM-DD HH:MM", value)
}

func readYAMLEvents(data []byte, loc *time.Location) ([]calendar.Event, error) {
	var entries []yamlEvent
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("could not parse events: %w", err)
	}

	events := make([]calendar.Event, 0, len(entries))
	for i, entry := range entries {
		id := entry.ID
		if id == "" {
			id = fmt.Sprintf("event-%d", i+1)
		}
		start, err := parseTime(entry.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("event %s: start: %w", id, err)
		}
		end, err := parseTime(entry.End, loc)
		if err != nil {
			return nil, fmt.Errorf("event %s: end: %w", id, err)
		}
		events = append(events, calendar.Event{
			UID:       id,
			Summary:   entry.Summary,
			Location:  entry.Location,
			Color:     entry.Color,
			StartTime: start,
			EndTime:   end,
		})
	}
	return events, nil
}

func occurrencesToEvents(occurrences []ics.Occurrence) []calendar.Event {
	events := make([]calendar.Event, 0, len(occurrences))
	for _, o := range occurrences {
		events = append(events, calendar.Event{
			UID:       o.Key,
			Summary:   o.Summary,
			Location:  o.Location,
			StartTime: o.Start,
			EndTime:   o.End,
		})
	}
	return events
}

// loadEvents reads the events between from and to from a file or, without a
// file, from the configured CalDAV server.
func loadEvents(ctx context.Context, path string, dav ics.CalDAVSource, from, to time.Time, loc *time.Location) ([]calendar.Event, error) {
	if path == "" {
		if dav.Endpoint == "" {
			return nil, ErrNoSource
		}
		log.Debugf("reading events from %s", dav.Endpoint)
		occurrences, err := dav.Fetch(ctx, from, to, loc)
		if err != nil {
			return nil, err
		}
		return occurrencesToEvents(occurrences), nil
	}

	log.Debugf("reading events from %s", path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return readYAMLEvents(data, loc)
	case ".ics", ".ical":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		occurrences, err := ics.Decode(f, from, to, loc)
		if err != nil {
			return nil, err
		}
		return occurrencesToEvents(occurrences), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func resolveLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

func resolveFirstDay(date string, clock utils.Clock, loc *time.Location) (time.Time, error) {
	if date == "" {
		year, month, day := clock.Now().In(loc).Date()
		return time.Date(year, month, day, 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return day, nil
}

func envOr(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
