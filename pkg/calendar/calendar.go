package calendar

import (
	"time"

	"github.com/klokku/daylayout/pkg/layout"
)

// PositionedEvent is an event clipped to one day together with its place in
// that day's column.
type PositionedEvent struct {
	Event  Event
	Layout layout.Info
}

// DayLayout is the laid out content of a single day column.
type DayLayout struct {
	// Date is midnight of the day in the location the layout was built for.
	Date     time.Time
	Events   []PositionedEvent
	Clusters int
}
