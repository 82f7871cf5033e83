package app

import (
	"github.com/gorilla/mux"
	"github.com/klokku/daylayout/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")

	// Calendar events
	r.HandleFunc("/api/calendar/event", requireUser(deps.CalendarHandler.GetEvents)).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/calendar/event", requireUser(deps.CalendarHandler.CreateEvent)).Methods("POST")
	// uids of imported events may contain slashes, so the variable takes the rest of the path
	r.HandleFunc("/api/calendar/event/{eventUid:.+}", requireUser(deps.CalendarHandler.UpdateEvent)).Methods("PUT")
	r.HandleFunc("/api/calendar/event/{eventUid:.+}", requireUser(deps.CalendarHandler.DeleteEvent)).Methods("DELETE")
	r.HandleFunc("/api/calendar/import", requireUser(deps.CalendarHandler.ImportCalendar)).Methods("POST")

	// Day layouts
	r.HandleFunc("/api/calendar/layout", requireUser(deps.CalendarHandler.GetLayout)).Methods("GET")
}
