package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/klokku/daylayout/internal/utils"
	"github.com/klokku/daylayout/pkg/calendar"
	"github.com/klokku/daylayout/pkg/ics"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type layoutOptions struct {
	timezone   string
	date       string
	days       int
	jsonOutput bool
	caldav     ics.CalDAVSource
}

func newLayoutCmd(clock utils.Clock) *cobra.Command {
	var opts layoutOptions

	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Show the layout of one or more days",
		Long: `Reads events from a YAML (.yaml, .yml) or iCalendar (.ics) file, or from a
CalDAV calendar when no file is given, and prints each day's side-by-side layout.

YAML files hold a list of events:

  - id: standup
    summary: Standup
    start: 2026-03-02 09:00
    end: 2026-03-02 09:15`,
		Example: `  daylayout layout week.yaml --date 2026-03-02 --days 5
  daylayout layout calendar.ics --tz Europe/Warsaw --json
  daylayout layout --caldav-url https://dav.example.com/ --caldav-calendar Work`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			loc, err := resolveLocation(opts.timezone)
			if err != nil {
				return err
			}
			firstDay, err := resolveFirstDay(opts.date, clock, loc)
			if err != nil {
				return err
			}
			year, month, day := firstDay.Date()
			windowEnd := time.Date(year, month, day+opts.days, 0, 0, 0, 0, loc)

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			dav := opts.caldav
			dav.Endpoint = envOr(dav.Endpoint, "CALDAV_URL")
			dav.Username = envOr(dav.Username, "CALDAV_USER")
			dav.Password = envOr(dav.Password, "CALDAV_PASSWORD")
			dav.Calendar = envOr(dav.Calendar, "CALDAV_CALENDAR")

			events, err := loadEvents(cmd.Context(), path, dav, firstDay, windowEnd, loc)
			if err != nil {
				return err
			}
			log.Debugf("loaded %d events", len(events))

			dayLayouts, err := calendar.BuildDayLayouts(events, loc, firstDay, opts.days)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				dtos := make([]calendar.DayLayoutDTO, 0, len(dayLayouts))
				for _, d := range dayLayouts {
					dtos = append(dtos, calendar.NewDayLayoutDTO(d))
				}
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(dtos)
			}
			renderDays(cmd.OutOrStdout(), dayLayouts, loc)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.timezone, "tz", "", "IANA timezone used to cut days (default: local)")
	flags.StringVar(&opts.date, "date", "", "first day as YYYY-MM-DD (default: today)")
	flags.IntVar(&opts.days, "days", 1, "number of days to lay out")
	flags.BoolVar(&opts.jsonOutput, "json", false, "output JSON instead of a table")
	flags.StringVar(&opts.caldav.Endpoint, "caldav-url", "", "CalDAV server URL (env CALDAV_URL)")
	flags.StringVar(&opts.caldav.Username, "caldav-user", "", "CalDAV username (env CALDAV_USER)")
	flags.StringVar(&opts.caldav.Password, "caldav-password", "", "CalDAV password (env CALDAV_PASSWORD)")
	flags.StringVar(&opts.caldav.Calendar, "caldav-calendar", "", "CalDAV calendar name or path (env CALDAV_CALENDAR)")

	return cmd
}
