package event_bus

import "time"

const CalendarEventChangedType EventType = "calendar.event.changed"

type ChangeKind string

const (
	EventCreated  ChangeKind = "created"
	EventUpdated  ChangeKind = "updated"
	EventDeleted  ChangeKind = "deleted"
	EventImported ChangeKind = "imported"
)

// CalendarEventChanged is published after a user's stored events change.
// For imports UID is empty and the times span the imported batch.
type CalendarEventChanged struct {
	UserId    int
	Kind      ChangeKind
	UID       string
	StartTime time.Time
	EndTime   time.Time
}
