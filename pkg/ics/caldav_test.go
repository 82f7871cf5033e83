package ics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	workCalendarPath = "/user/calendars/work/"
	homeCalendarPath = "/user/calendars/home/"
)

// calendarBackend serves fixed calendars and records the queries it receives.
type calendarBackend struct {
	calendars []caldav.Calendar
	objects   map[string][]caldav.CalendarObject

	mu      sync.Mutex
	queries []caldav.CalendarQuery
}

func (b *calendarBackend) CurrentUserPrincipal(ctx context.Context) (string, error) {
	return "/user/", nil
}

func (b *calendarBackend) CalendarHomeSetPath(ctx context.Context) (string, error) {
	return "/user/calendars/", nil
}

func (b *calendarBackend) CreateCalendar(ctx context.Context, calendar *caldav.Calendar) error {
	return fmt.Errorf("read only")
}

func (b *calendarBackend) ListCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	return b.calendars, nil
}

func (b *calendarBackend) GetCalendar(ctx context.Context, path string) (*caldav.Calendar, error) {
	for _, cal := range b.calendars {
		if cal.Path == path {
			return &cal, nil
		}
	}
	return nil, fmt.Errorf("calendar %s not found", path)
}

func (b *calendarBackend) GetCalendarObject(ctx context.Context, path string, req *caldav.CalendarCompRequest) (*caldav.CalendarObject, error) {
	for _, objects := range b.objects {
		for _, object := range objects {
			if object.Path == path {
				return &object, nil
			}
		}
	}
	return nil, fmt.Errorf("calendar object %s not found", path)
}

func (b *calendarBackend) ListCalendarObjects(ctx context.Context, path string, req *caldav.CalendarCompRequest) ([]caldav.CalendarObject, error) {
	return b.objects[path], nil
}

func (b *calendarBackend) QueryCalendarObjects(ctx context.Context, path string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error) {
	b.mu.Lock()
	b.queries = append(b.queries, *query)
	b.mu.Unlock()
	return caldav.Filter(query, b.objects[path])
}

func (b *calendarBackend) PutCalendarObject(ctx context.Context, path string, calendar *ical.Calendar, opts *caldav.PutCalendarObjectOptions) (*caldav.CalendarObject, error) {
	return nil, fmt.Errorf("read only")
}

func (b *calendarBackend) DeleteCalendarObject(ctx context.Context, path string) error {
	return fmt.Errorf("read only")
}

func (b *calendarBackend) lastQuery() caldav.CalendarQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1]
}

func calendarObject(t *testing.T, path string, events ...string) caldav.CalendarObject {
	t.Helper()
	cal, err := ical.NewDecoder(strings.NewReader(calendarOf(events...))).Decode()
	require.NoError(t, err)
	return caldav.CalendarObject{Path: path, Data: cal}
}

func startCalDAVServer(t *testing.T) (*httptest.Server, *calendarBackend) {
	t.Helper()
	backend := &calendarBackend{
		calendars: []caldav.Calendar{
			{Path: workCalendarPath, Name: "Work", SupportedComponentSet: []string{ical.CompEvent}},
			{Path: homeCalendarPath, Name: "Home", SupportedComponentSet: []string{ical.CompEvent}},
		},
		objects: map[string][]caldav.CalendarObject{
			workCalendarPath: {
				calendarObject(t, workCalendarPath+"standup.ics", vevent(
					"UID:standup", "SUMMARY:Standup", "DTSTART:20260105T090000Z", "DTEND:20260105T091500Z")),
				calendarObject(t, workCalendarPath+"offsite.ics", vevent(
					"UID:offsite", "SUMMARY:Offsite", "DTSTART:20260301T090000Z", "DTEND:20260301T170000Z")),
			},
			homeCalendarPath: {
				calendarObject(t, homeCalendarPath+"dinner.ics", vevent(
					"UID:dinner", "SUMMARY:Dinner", "DTSTART:20260106T180000Z", "DTEND:20260106T200000Z")),
			},
		},
	}

	handler := &caldav.Handler{Backend: backend}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != "alice" || password != "secret" {
			w.Header().Set("WWW-Authenticate", `Basic realm="calendars"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server, backend
}

func summaries(occurrences []Occurrence) []string {
	result := make([]string, 0, len(occurrences))
	for _, o := range occurrences {
		result = append(result, o.Summary)
	}
	return result
}

func TestCalDAVSource_Fetch(t *testing.T) {
	server, backend := startCalDAVServer(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		calendar string
		want     []string
	}{
		{name: "by display name", calendar: "Home", want: []string{"Dinner"}},
		{name: "by collection path", calendar: "/user/calendars/home/", want: []string{"Dinner"}},
		{name: "by path without slashes", calendar: "user/calendars/work", want: []string{"Standup"}},
		{name: "first calendar when none is named", calendar: "", want: []string{"Standup"}},
	}
	for _, tc := range testCases {
		t.Run("should find calendar "+tc.name, func(t *testing.T) {
			source := CalDAVSource{Endpoint: server.URL, Username: "alice", Password: "secret", Calendar: tc.calendar}

			occurrences, err := source.Fetch(ctx, windowFrom, windowTo, time.UTC)

			require.NoError(t, err)
			assert.Equal(t, tc.want, summaries(occurrences))
		})
	}

	t.Run("should query only the requested window", func(t *testing.T) {
		source := CalDAVSource{Endpoint: server.URL, Username: "alice", Password: "secret", Calendar: "Work"}

		occurrences, err := source.Fetch(ctx, windowFrom, windowTo, time.UTC)

		require.NoError(t, err)
		require.Len(t, occurrences, 1)
		assert.Equal(t, "standup", occurrences[0].Key)
		assert.True(t, occurrences[0].Start.Equal(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)))
		query := backend.lastQuery()
		assert.Equal(t, ical.CompCalendar, query.CompFilter.Name)
		require.Len(t, query.CompFilter.Comps, 1)
		eventFilter := query.CompFilter.Comps[0]
		assert.Equal(t, ical.CompEvent, eventFilter.Name)
		assert.True(t, eventFilter.Start.Equal(windowFrom))
		assert.True(t, eventFilter.End.Equal(windowTo))
	})

	t.Run("should fail for an unknown calendar", func(t *testing.T) {
		source := CalDAVSource{Endpoint: server.URL, Username: "alice", Password: "secret", Calendar: "Holidays"}

		_, err := source.Fetch(ctx, windowFrom, windowTo, time.UTC)

		assert.ErrorIs(t, err, ErrCalendarNotFound)
	})

	t.Run("should fail with wrong credentials", func(t *testing.T) {
		source := CalDAVSource{Endpoint: server.URL, Username: "alice", Password: "wrong", Calendar: "Work"}

		_, err := source.Fetch(ctx, windowFrom, windowTo, time.UTC)

		assert.Error(t, err)
	})

	t.Run("should reject an empty window", func(t *testing.T) {
		source := CalDAVSource{Endpoint: server.URL, Calendar: "Work"}

		_, err := source.Fetch(ctx, windowTo, windowFrom, time.UTC)

		assert.ErrorIs(t, err, ErrInvalidWindow)
	})
}
