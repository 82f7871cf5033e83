package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/klokku/daylayout/internal/event_bus"
	"github.com/klokku/daylayout/internal/utils"
	log "github.com/sirupsen/logrus"
)

// LayoutKey identifies one cached day column of one user.
type LayoutKey struct {
	UserId   int
	Timezone string
	Date     string
}

// LayoutCache memoizes day layouts. Invalidate drops every entry of a user and
// advances the user's generation. Set stores a layout only when the generation
// read before computing it is still current, so a layout built from events
// that changed meanwhile is never cached.
type LayoutCache interface {
	Generation(ctx context.Context, userId int) (int64, error)
	Get(ctx context.Context, key LayoutKey) (DayLayout, bool, error)
	Set(ctx context.Context, key LayoutKey, generation int64, dayLayout DayLayout) error
	Invalidate(ctx context.Context, userId int) error
}

// SubscribeCacheInvalidation drops a user's cached layouts whenever one of
// their events changes.
func SubscribeCacheInvalidation(eventBus *event_bus.EventBus, cache LayoutCache) (unsubscribe func()) {
	return event_bus.SubscribeTyped(
		eventBus,
		event_bus.CalendarEventChangedType,
		func(e event_bus.EventT[event_bus.CalendarEventChanged]) error {
			log.Debugf("invalidating layouts of user %d after event %s", e.Data.UserId, e.Data.Kind)
			return cache.Invalidate(e.Context(), e.Data.UserId)
		},
	)
}

type NoopLayoutCache struct{}

func (NoopLayoutCache) Generation(ctx context.Context, userId int) (int64, error) {
	return 0, nil
}

func (NoopLayoutCache) Get(ctx context.Context, key LayoutKey) (DayLayout, bool, error) {
	return DayLayout{}, false, nil
}

func (NoopLayoutCache) Set(ctx context.Context, key LayoutKey, generation int64, dayLayout DayLayout) error {
	return nil
}

func (NoopLayoutCache) Invalidate(ctx context.Context, userId int) error {
	return nil
}

type memoryEntry struct {
	dayLayout DayLayout
	expiresAt time.Time
}

// MemoryLayoutCache keeps layouts in process memory. It is only suitable for a
// single instance deployment.
type MemoryLayoutCache struct {
	mu          sync.Mutex
	ttl         time.Duration
	clock       utils.Clock
	entries     map[int]map[LayoutKey]memoryEntry
	generations map[int]int64
}

func NewMemoryLayoutCache(ttl time.Duration, clock utils.Clock) *MemoryLayoutCache {
	return &MemoryLayoutCache{
		ttl:         ttl,
		clock:       clock,
		entries:     make(map[int]map[LayoutKey]memoryEntry),
		generations: make(map[int]int64),
	}
}

func (c *MemoryLayoutCache) Generation(ctx context.Context, userId int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[userId], nil
}

func (c *MemoryLayoutCache) Get(ctx context.Context, key LayoutKey) (DayLayout, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key.UserId][key]
	if !ok {
		return DayLayout{}, false, nil
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries[key.UserId], key)
		return DayLayout{}, false, nil
	}
	return entry.dayLayout, true, nil
}

func (c *MemoryLayoutCache) Set(ctx context.Context, key LayoutKey, generation int64, dayLayout DayLayout) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generations[key.UserId] {
		log.Debugf("skipping stale layout %v of generation %d", key, generation)
		return nil
	}

	userEntries, ok := c.entries[key.UserId]
	if !ok {
		userEntries = make(map[LayoutKey]memoryEntry)
		c.entries[key.UserId] = userEntries
	}
	userEntries[key] = memoryEntry{dayLayout: dayLayout, expiresAt: c.clock.Now().Add(c.ttl)}
	return nil
}

func (c *MemoryLayoutCache) Invalidate(ctx context.Context, userId int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userId)
	c.generations[userId]++
	return nil
}
