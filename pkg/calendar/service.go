package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/daylayout/internal/event_bus"
	"github.com/klokku/daylayout/internal/utils"
	"github.com/klokku/daylayout/pkg/ics"
	"github.com/klokku/daylayout/pkg/user"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidRange = errors.New("event must end after it starts")
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidDays  = errors.New("number of days must be positive")

	ErrInvalidCalendar = errors.New("invalid calendar data")
)

// Default window of calendar imports relative to today.
const (
	importLookBehind = 30 * 24 * time.Hour
	importLookAhead  = 365 * 24 * time.Hour
)

type Service struct {
	repo     Repository
	cache    LayoutCache
	eventBus *event_bus.EventBus
	clock    utils.Clock
}

func NewService(repo Repository, cache LayoutCache, eventBus *event_bus.EventBus, clock utils.Clock) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		eventBus: eventBus,
		clock:    clock,
	}
}

func (s *Service) AddEvent(ctx context.Context, event Event) (*Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if !event.valid() {
		return nil, ErrInvalidRange
	}

	eventUid, err := s.repo.StoreEvent(ctx, userId, event)
	if err != nil {
		return nil, fmt.Errorf("failed to store event: %w", err)
	}
	event.UID = eventUid

	s.publishChange(ctx, userId, event_bus.EventCreated, event.UID, event.StartTime, event.EndTime)
	return &event, nil
}

func (s *Service) GetEvent(ctx context.Context, eventUid string) (*Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	event, err := s.repo.GetEvent(ctx, userId, eventUid)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Service) GetEvents(ctx context.Context, from time.Time, to time.Time) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return s.repo.GetEvents(ctx, userId, from, to)
}

func (s *Service) ModifyEvent(ctx context.Context, event Event) (*Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if !event.valid() {
		return nil, ErrInvalidRange
	}

	previous, err := s.repo.GetEvent(ctx, userId, event.UID)
	if err != nil {
		return nil, err
	}
	err = s.repo.UpdateEvent(ctx, userId, event)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	from, to := union(previous, event)
	s.publishChange(ctx, userId, event_bus.EventUpdated, event.UID, from, to)
	return &event, nil
}

func (s *Service) DeleteEvent(ctx context.Context, eventUid string) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	previous, err := s.repo.GetEvent(ctx, userId, eventUid)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEvent(ctx, userId, eventUid); err != nil {
		return err
	}

	s.publishChange(ctx, userId, event_bus.EventDeleted, eventUid, previous.StartTime, previous.EndTime)
	return nil
}

// ImportEvents upserts all events in a single transaction. Events without a
// UID get a new one. Nothing is stored when any event is invalid.
func (s *Service) ImportEvents(ctx context.Context, events []Event) (int, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current user: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	from, to := events[0].StartTime, events[0].EndTime
	for i := range events {
		if !events[i].valid() {
			return 0, fmt.Errorf("event %q: %w", events[i].UID, ErrInvalidRange)
		}
		if events[i].UID == "" {
			events[i].UID = uuid.NewString()
		}
		from, to = earliest(from, events[i].StartTime), later(to, events[i].EndTime)
	}

	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		for _, event := range events {
			if err := repo.UpsertEvent(ctx, userId, event); err != nil {
				return fmt.Errorf("failed to import event %s: %w", event.UID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to perform transaction: %w", err)
	}

	log.Debugf("imported %d events for user %d", len(events), userId)
	s.publishChange(ctx, userId, event_bus.EventImported, "", from, to)
	return len(events), nil
}

// ImportCalendar imports the occurrences of an iCalendar stream that overlap
// [from, to). Zero bounds default to a window around today.
func (s *Service) ImportCalendar(ctx context.Context, data io.Reader, from, to time.Time) (int, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current user: %w", err)
	}
	loc, err := currentUser.Location()
	if err != nil {
		return 0, err
	}

	today := startOfDay(s.clock.Now(), loc)
	if from.IsZero() {
		from = today.Add(-importLookBehind)
	}
	if to.IsZero() {
		to = today.Add(importLookAhead)
	}

	occurrences, err := ics.Decode(data, from, to, loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCalendar, err)
	}
	events := make([]Event, 0, len(occurrences))
	for _, o := range occurrences {
		events = append(events, Event{
			UID:       o.Key,
			Summary:   o.Summary,
			Location:  o.Location,
			StartTime: o.Start,
			EndTime:   o.End,
		})
	}
	return s.ImportEvents(ctx, events)
}

// GetDayLayouts returns the layouts of days consecutive days starting with
// date (YYYY-MM-DD) in the current user's timezone. An empty date means today.
func (s *Service) GetDayLayouts(ctx context.Context, date string, days int) ([]DayLayout, error) {
	if days < 1 {
		return nil, ErrInvalidDays
	}
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	loc, err := currentUser.Location()
	if err != nil {
		return nil, err
	}
	firstDay, err := s.firstDay(date, loc)
	if err != nil {
		return nil, err
	}

	result := make([]DayLayout, days)
	keys := make([]LayoutKey, days)
	dayStarts := make([]time.Time, days)
	var missing []int
	day := firstDay
	for i := range days {
		dayStarts[i] = day
		keys[i] = LayoutKey{UserId: currentUser.Id, Timezone: loc.String(), Date: day.Format(time.DateOnly)}
		day = startOfNextDay(day, loc)

		cached, ok, err := s.cache.Get(ctx, keys[i])
		if err != nil {
			log.Warnf("layout cache read failed for %v: %v", keys[i], err)
		}
		if ok {
			result[i] = cached
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		log.Tracef("all %d day layouts served from cache", days)
		return result, nil
	}

	// read before the events so a change landing in between keeps the result out of the cache
	generation, err := s.cache.Generation(ctx, currentUser.Id)
	cacheable := err == nil
	if err != nil {
		log.Warnf("layout cache generation read failed for user %d: %v", currentUser.Id, err)
	}

	from := dayStarts[missing[0]]
	to := startOfNextDay(dayStarts[missing[len(missing)-1]], loc)
	events, err := s.repo.GetEvents(ctx, currentUser.Id, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	for _, i := range missing {
		built, err := BuildDayLayouts(events, loc, dayStarts[i], 1)
		if err != nil {
			return nil, err
		}
		result[i] = built[0]
		if !cacheable {
			continue
		}
		if err := s.cache.Set(ctx, keys[i], generation, built[0]); err != nil {
			log.Warnf("layout cache write failed for %v: %v", keys[i], err)
		}
	}
	return result, nil
}

func (s *Service) firstDay(date string, loc *time.Location) (time.Time, error) {
	if date == "" {
		return startOfDay(s.clock.Now(), loc), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, date)
	}
	return day, nil
}

func (s *Service) publishChange(ctx context.Context, userId int, kind event_bus.ChangeKind, uid string, from, to time.Time) {
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.CalendarEventChangedType, event_bus.CalendarEventChanged{
		UserId:    userId,
		Kind:      kind,
		UID:       uid,
		StartTime: from,
		EndTime:   to,
	}))
	if err != nil {
		log.Errorf("failed to publish %s change of event %s: %v", kind, uid, err)
	}
}

func union(a, b Event) (time.Time, time.Time) {
	return earliest(a.StartTime, b.StartTime), later(a.EndTime, b.EndTime)
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
