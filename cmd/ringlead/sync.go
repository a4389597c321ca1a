package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwhitford/ringlead/internal/config"
	"github.com/mwhitford/ringlead/internal/engine"
	"github.com/mwhitford/ringlead/internal/output"
	"github.com/mwhitford/ringlead/internal/runtime"
)

var (
	syncStartDate      string
	syncEndDate        string
	syncHoursBack      int
	syncDryRun         bool
	syncExtensionsFile string
	syncOwnersFile     string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile call logs with CRM leads",
}

var syncAcceptedCmd = &cobra.Command{
	Use:   "accepted",
	Short: "Sync accepted inbound calls, attaching recordings",
	Long: `Sync accepted inbound calls into CRM leads.

Each accepted call is matched to a lead by caller phone number. Existing
leads get a status update and a call note; unknown callers become new leads
assigned round robin across the configured owners. Call recordings are
downloaded and attached, skipping recordings already present on the lead.

Examples:
  ringlead sync accepted                                   # last 24 hours
  ringlead sync accepted --hours-back 6
  ringlead sync accepted --start-date "2025-01-01 09:00:00" --end-date "2025-01-01 17:00:00"
  ringlead sync accepted --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, engine.FlowAccepted)
	},
}

var syncMissedCmd = &cobra.Command{
	Use:   "missed",
	Short: "Sync missed inbound calls",
	Long: `Sync missed inbound calls into CRM leads.

Missed calls follow the same match-or-create path as accepted calls but
never touch recordings, and every qualified call is assigned round robin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, engine.FlowMissed)
	},
}

func runSync(cmd *cobra.Command, flow engine.FlowKind) error {
	logger := newLogger()

	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return err
	}
	cfg := cm.Get()

	extFile := syncExtensionsFile
	if extFile == "" {
		extFile = cfg.Sync.ExtensionsFile
	}
	ownersFile := syncOwnersFile
	if ownersFile == "" {
		ownersFile = cfg.Sync.LeadOwnersFile
	}

	extensions, err := config.LoadExtensions(extFile)
	if err != nil {
		return err
	}
	owners, err := config.LoadLeadOwners(ownersFile)
	if err != nil {
		return err
	}

	hoursBack := syncHoursBack
	if hoursBack == 0 {
		hoursBack = cfg.Sync.HoursBack
	}
	from, to, err := resolveDateRange(syncStartDate, syncEndDate, hoursBack, time.Now())
	if err != nil {
		return err
	}

	svc := runtime.Build(cm, logger)

	run, err := engine.NewSyncRun(engine.RunConfig{
		Flow:       flow,
		From:       from,
		To:         to,
		DryRun:     syncDryRun,
		Extensions: extensions,
		Owners:     owners,
	}, svc.Source, svc.Store, logger)
	if err != nil {
		return err
	}

	stats, runErr := run.Run(cmd.Context())
	if stats != nil {
		if err := output.Print(stats); err != nil {
			return err
		}
	}
	return runErr
}

// dateLayouts are the accepted --start-date / --end-date formats. A space
// between date and time is normalized to "T" first.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(value string) (time.Time, error) {
	normalized := strings.Replace(strings.TrimSpace(value), " ", "T", 1)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, normalized, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD[ HH:MM:SS]", value)
}

// resolveDateRange turns the optional flag values into a concrete window.
// A missing end defaults to now; a missing start defaults to the lookback
// window before the end.
func resolveDateRange(start, end string, hoursBack int, now time.Time) (time.Time, time.Time, error) {
	to := now
	if end != "" {
		parsed, err := parseDate(end)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	from := to.Add(-time.Duration(hoursBack) * time.Hour)
	if start != "" {
		parsed, err := parseDate(start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is not before end date %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return from, to, nil
}

func init() {
	for _, cmd := range []*cobra.Command{syncAcceptedCmd, syncMissedCmd} {
		cmd.Flags().StringVar(&syncStartDate, "start-date", "", "window start (YYYY-MM-DD or \"YYYY-MM-DD HH:MM:SS\")")
		cmd.Flags().StringVar(&syncEndDate, "end-date", "", "window end (defaults to now)")
		cmd.Flags().IntVar(&syncHoursBack, "hours-back", 0, "lookback hours when no start date is given (default from config)")
		cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "log CRM writes instead of performing them")
		cmd.Flags().StringVar(&syncExtensionsFile, "extensions-file", "", "extensions data file (default from config)")
		cmd.Flags().StringVar(&syncOwnersFile, "lead-owners-file", "", "lead owners data file (default from config)")
	}
	syncCmd.AddCommand(syncAcceptedCmd)
	syncCmd.AddCommand(syncMissedCmd)
}
