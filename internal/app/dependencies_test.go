package app

import (
	"testing"
	"time"

	"github.com/klokku/daylayout/internal/config"
	"github.com/klokku/daylayout/internal/utils"
	"github.com/klokku/daylayout/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayoutCache(t *testing.T) {
	clock := &utils.SystemClock{}

	t.Run("should build memory cache", func(t *testing.T) {
		cache, err := newLayoutCache(config.Layout{Cache: config.MemoryCache, CacheTTL: time.Minute}, nil, clock)

		require.NoError(t, err)
		assert.IsType(t, &calendar.MemoryLayoutCache{}, cache)
	})

	t.Run("should build noop cache", func(t *testing.T) {
		cache, err := newLayoutCache(config.Layout{Cache: config.NoCache}, nil, clock)

		require.NoError(t, err)
		assert.IsType(t, calendar.NoopLayoutCache{}, cache)
	})

	t.Run("should require a redis client for redis cache", func(t *testing.T) {
		_, err := newLayoutCache(config.Layout{Cache: config.RedisCache}, nil, clock)

		assert.Error(t, err)
	})

	t.Run("should reject unknown cache type", func(t *testing.T) {
		_, err := newLayoutCache(config.Layout{Cache: "disk"}, nil, clock)

		assert.Error(t, err)
	})
}
