package app

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/daylayout/internal/config"
	"github.com/klokku/daylayout/internal/event_bus"
	"github.com/klokku/daylayout/internal/utils"
	"github.com/klokku/daylayout/pkg/calendar"
	"github.com/klokku/daylayout/pkg/user"
	"github.com/redis/go-redis/v9"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	UserService user.Service
	UserHandler *user.Handler

	LayoutCache        calendar.LayoutCache
	CalendarRepository *calendar.RepositoryImpl
	CalendarService    *calendar.Service
	CalendarHandler    *calendar.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
// redisClient is only used when the redis layout cache is configured.
func BuildDependencies(db *pgxpool.Pool, redisClient *redis.Client, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	cache, err := newLayoutCache(cfg.Layout, redisClient, deps.Clock)
	if err != nil {
		return nil, err
	}
	deps.LayoutCache = cache
	calendar.SubscribeCacheInvalidation(deps.EventBus, deps.LayoutCache)

	deps.CalendarRepository = calendar.NewRepository(db)
	deps.CalendarService = calendar.NewService(deps.CalendarRepository, deps.LayoutCache, deps.EventBus, deps.Clock)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService, cfg.Layout.MaxDays)

	return deps, nil
}

func newLayoutCache(cfg config.Layout, redisClient *redis.Client, clock utils.Clock) (calendar.LayoutCache, error) {
	switch cfg.Cache {
	case config.MemoryCache:
		return calendar.NewMemoryLayoutCache(cfg.CacheTTL, clock), nil
	case config.RedisCache:
		if redisClient == nil {
			return nil, fmt.Errorf("redis layout cache configured without a redis client")
		}
		return calendar.NewRedisLayoutCache(redisClient, cfg.CacheTTL), nil
	case config.NoCache:
		return calendar.NoopLayoutCache{}, nil
	default:
		return nil, fmt.Errorf("unknown layout cache type %q", cfg.Cache)
	}
}
