package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/daylayout/internal/rest"
	"github.com/klokku/daylayout/pkg/layout"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	calendar *Service
	maxDays  int
}

type EventDTO struct {
	UID       string    `json:"uid"`
	Summary   string    `json:"summary"`
	Location  string    `json:"location,omitempty"`
	Color     string    `json:"color,omitempty"`
	StartTime time.Time `json:"start"`
	EndTime   time.Time `json:"end"`
}

type PositionedEventDTO struct {
	EventDTO
	Layout layout.Info `json:"layout"`
}

type DayLayoutDTO struct {
	Date     string               `json:"date"`
	Clusters int                  `json:"clusters"`
	Events   []PositionedEventDTO `json:"events"`
}

type ImportResultDTO struct {
	Imported int `json:"imported"`
}

func NewHandler(s *Service, maxDays int) *Handler {
	return &Handler{calendar: s, maxDays: maxDays}
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be in RFC3339 format")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be in RFC3339 format")
		return
	}

	events, err := h.calendar.GetEvents(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var eventDTO EventDTO
	if err := json.NewDecoder(r.Body).Decode(&eventDTO); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	addedEvent, err := h.calendar.AddEvent(r.Context(), dtoToEvent(eventDTO))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	log.Tracef("Created event: %s", addedEvent.UID)

	rest.WriteJSON(w, http.StatusCreated, eventToDTO(*addedEvent))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var eventDTO EventDTO
	if err := json.NewDecoder(r.Body).Decode(&eventDTO); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	eventDTO.UID = mux.Vars(r)["eventUid"]

	modifiedEvent, err := h.calendar.ModifyEvent(r.Context(), dtoToEvent(eventDTO))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, eventToDTO(*modifiedEvent))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventUid := mux.Vars(r)["eventUid"]
	if err := h.calendar.DeleteEvent(r.Context(), eventUid); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetLayout(w http.ResponseWriter, r *http.Request) {
	days := 1
	if daysString := r.URL.Query().Get("days"); daysString != "" {
		parsed, err := strconv.Atoi(daysString)
		if err != nil || parsed < 1 || parsed > h.maxDays {
			rest.WriteError(w, http.StatusBadRequest, "Invalid days",
				fmt.Sprintf("'days' must be a number between 1 and %d", h.maxDays))
			return
		}
		days = parsed
	}
	log.Tracef("Getting layout of %d days from %q", days, r.URL.Query().Get("date"))

	dayLayouts, err := h.calendar.GetDayLayouts(r.Context(), r.URL.Query().Get("date"), days)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dtos := make([]DayLayoutDTO, 0, len(dayLayouts))
	for _, dayLayout := range dayLayouts {
		dtos = append(dtos, NewDayLayoutDTO(dayLayout))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ImportCalendar(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	var err error
	if fromString := r.URL.Query().Get("from"); fromString != "" {
		if from, err = time.Parse(time.RFC3339, fromString); err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be in RFC3339 format")
			return
		}
	}
	if toString := r.URL.Query().Get("to"); toString != "" {
		if to, err = time.Parse(time.RFC3339, toString); err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be in RFC3339 format")
			return
		}
	}

	imported, err := h.calendar.ImportCalendar(r.Context(), r.Body, from, to)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	log.Debugf("Imported %d events", imported)

	rest.WriteJSON(w, http.StatusOK, ImportResultDTO{Imported: imported})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, ErrInvalidRange):
		rest.WriteError(w, http.StatusBadRequest, "Invalid event time range", err.Error())
	case errors.Is(err, ErrInvalidDate):
		rest.WriteError(w, http.StatusBadRequest, "Invalid date", err.Error())
	case errors.Is(err, ErrInvalidDays):
		rest.WriteError(w, http.StatusBadRequest, "Invalid days", err.Error())
	case errors.Is(err, ErrInvalidCalendar):
		rest.WriteError(w, http.StatusBadRequest, "Invalid calendar", err.Error())
	case errors.Is(err, ErrEventAlreadyExists):
		rest.WriteError(w, http.StatusConflict, "Event already exists", err.Error())
	case errors.Is(err, layout.ErrDuplicateKey):
		rest.WriteError(w, http.StatusConflict, "Conflicting events", err.Error())
	default:
		log.Errorf("calendar request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func eventToDTO(e Event) EventDTO {
	return EventDTO{
		UID:       e.UID,
		Summary:   e.Summary,
		Location:  e.Location,
		Color:     e.Color,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
	}
}

func dtoToEvent(e EventDTO) Event {
	return Event{
		UID:       e.UID,
		Summary:   e.Summary,
		Location:  e.Location,
		Color:     e.Color,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
	}
}

// NewDayLayoutDTO converts a day layout into its JSON representation.
func NewDayLayoutDTO(d DayLayout) DayLayoutDTO {
	events := make([]PositionedEventDTO, 0, len(d.Events))
	for _, e := range d.Events {
		events = append(events, PositionedEventDTO{EventDTO: eventToDTO(e.Event), Layout: e.Layout})
	}
	return DayLayoutDTO{
		Date:     d.Date.Format(time.DateOnly),
		Clusters: d.Clusters,
		Events:   events,
	}
}
