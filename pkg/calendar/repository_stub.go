package calendar

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RepositoryStub struct {
	mu     sync.Mutex
	events map[int]map[string]Event // userId -> uid -> event
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{events: make(map[int]map[string]Event)}
}

// WithTransaction runs fn against a copy of the data and keeps the copy only when fn succeeds.
func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	txRepo := &RepositoryStub{events: make(map[int]map[string]Event, len(r.events))}
	for userId, userEvents := range r.events {
		txRepo.events[userId] = maps.Clone(userEvents)
	}
	r.mu.Unlock()

	if err := fn(txRepo); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = txRepo.events
	return nil
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, userId int, event Event) (string, error) {
	if event.UID == "" {
		event.UID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[userId][event.UID]; exists {
		return "", fmt.Errorf("%w: %s", ErrEventAlreadyExists, event.UID)
	}
	if r.events[userId] == nil {
		r.events[userId] = make(map[string]Event)
	}
	r.events[userId][event.UID] = event
	return event.UID, nil
}

func (r *RepositoryStub) UpsertEvent(ctx context.Context, userId int, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events[userId] == nil {
		r.events[userId] = make(map[string]Event)
	}
	r.events[userId][event.UID] = event
	return nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, userId int, uid string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[userId][uid]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

func (r *RepositoryStub) GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]Event, 0, len(r.events[userId]))
	for _, event := range r.events[userId] {
		if event.StartTime.Before(to) && event.EndTime.After(from) {
			events = append(events, event)
		}
	}
	slices.SortFunc(events, func(a, b Event) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.UID, b.UID)
	})
	return events, nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, userId int, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[userId][event.UID]; !ok {
		return ErrEventNotFound
	}
	r.events[userId][event.UID] = event
	return nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, userId int, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[userId][uid]; !ok {
		return ErrEventNotFound
	}
	delete(r.events[userId], uid)
	return nil
}

func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[int]map[string]Event)
}
