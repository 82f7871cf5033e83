package test_utils

import (
	"context"

	"github.com/google/uuid"
	"github.com/klokku/daylayout/pkg/user"
)

// TestUser returns a user living in the given timezone.
func TestUser(id int, timezone string) user.User {
	return user.User{
		Id:          id,
		Uid:         uuid.NewString(),
		Username:    "test_user",
		DisplayName: "Test User",
		Settings: user.Settings{
			Timezone: timezone,
		},
	}
}

// ContextWithUser returns a context carrying TestUser(id, timezone).
func ContextWithUser(id int, timezone string) context.Context {
	return user.WithUser(context.Background(), TestUser(id, timezone))
}
