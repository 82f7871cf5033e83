package calendar

import (
	"time"
)

type Event struct {
	UID       string
	Summary   string
	Location  string
	Color     string
	StartTime time.Time
	EndTime   time.Time
}

func (e Event) LayoutKey() string      { return e.UID }
func (e Event) LayoutStart() time.Time { return e.StartTime }
func (e Event) LayoutEnd() time.Time   { return e.EndTime }

func (e Event) valid() bool {
	return e.EndTime.After(e.StartTime)
}
