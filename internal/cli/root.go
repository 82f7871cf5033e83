package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/klokku/daylayout/internal/utils"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// SetVersion sets the version shown by --version. Empty values keep the defaults.
func SetVersion(v, c string) {
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
}

// NewRootCommand builds the daylayout command tree. clock decides what "today" is.
func NewRootCommand(clock utils.Clock) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "daylayout",
		Short:         "Lay out calendar events side by side in day columns",
		Long:          `daylayout reads events from YAML, iCalendar files or a CalDAV server and shows how they share each day column.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(cmd.ErrOrStderr())
			log.SetLevel(log.InfoLevel)
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.Warnf("failed to load .env file: %v", err)
			}
			return nil
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("daylayout %s\ncommit: %s\n", version, commit))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newLayoutCmd(clock))

	return root
}

// Execute runs the CLI with the system clock.
func Execute(ctx context.Context) error {
	return NewRootCommand(utils.SystemClock{}).ExecuteContext(ctx)
}
