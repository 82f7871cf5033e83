package ics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	log "github.com/sirupsen/logrus"
)

var ErrCalendarNotFound = errors.New("calendar not found")

// CalDAVSource reads events from one calendar collection of a CalDAV server.
// Calendar is matched against the display name and then the collection path.
type CalDAVSource struct {
	Endpoint string
	Username string
	Password string
	Calendar string

	HTTPClient *http.Client
}

func (s CalDAVSource) client() (*caldav.Client, error) {
	var httpClient webdav.HTTPClient = http.DefaultClient
	if s.HTTPClient != nil {
		httpClient = s.HTTPClient
	}
	if s.Username != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, s.Username, s.Password)
	}
	client, err := caldav.NewClient(httpClient, s.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return client, nil
}

// Fetch returns the occurrences overlapping [from, to).
func (s CalDAVSource) Fetch(ctx context.Context, from, to time.Time, loc *time.Location) ([]Occurrence, error) {
	if !to.After(from) {
		return nil, ErrInvalidWindow
	}
	client, err := s.client()
	if err != nil {
		return nil, err
	}

	calendarPath, err := s.findCalendar(ctx, client)
	if err != nil {
		return nil, err
	}
	log.Debugf("querying calendar %s between %s and %s", calendarPath, from.Format(time.RFC3339), to.Format(time.RFC3339))

	objects, err := client.QueryCalendar(ctx, calendarPath, &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar %s: %w", calendarPath, err)
	}

	var occurrences []Occurrence
	for _, object := range objects {
		if object.Data == nil {
			continue
		}
		expanded, err := Expand(object.Data, from, to, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", object.Path, err)
		}
		occurrences = append(occurrences, expanded...)
	}
	log.Debugf("fetched %d occurrences from %d calendar objects", len(occurrences), len(objects))
	return occurrences, nil
}

func (s CalDAVSource) findCalendar(ctx context.Context, client *caldav.Client) (string, error) {
	principalPath, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := client.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := client.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	if s.Calendar == "" && len(calendars) > 0 {
		return calendars[0].Path, nil
	}
	for _, cal := range calendars {
		if cal.Name == s.Calendar || strings.Trim(cal.Path, "/") == strings.Trim(s.Calendar, "/") {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("%w: '%s'", ErrCalendarNotFound, s.Calendar)
}
