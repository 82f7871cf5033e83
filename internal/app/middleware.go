package app

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klokku/daylayout/internal/config"
	"github.com/klokku/daylayout/internal/rest"
	"github.com/klokku/daylayout/pkg/user"
	log "github.com/sirupsen/logrus"
)

const userIdHeader = "X-User-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.Use(userContextMiddleware(deps.UserService))
}

// userContextMiddleware propagates the X-User-Id header into the request
// context for downstream services.
func userContextMiddleware(userService user.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			userUid := req.Header.Get(userIdHeader)
			ctx := req.Context()

			if userUid != "" {
				u, err := userService.GetUserByUid(ctx, userUid)
				if err != nil {
					if errors.Is(err, user.ErrUserNotFound) {
						log.Debugf("user not found: %s", userUid)
						rest.WriteError(w, http.StatusForbidden, "User not found", "")
						return
					}
					log.Errorf("failed to get user: %v", err)
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				log.Tracef("user found: %s", u.Uid)
				ctx = user.WithUser(ctx, u)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// requireUser rejects requests that did not identify a user.
func requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if _, err := user.CurrentId(req.Context()); err != nil {
			rest.WriteError(w, http.StatusUnauthorized, "Missing user", userIdHeader+" header is required")
			return
		}
		next(w, req)
	}
}
