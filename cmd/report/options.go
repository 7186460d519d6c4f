package main

import (
	"fmt"
	"strings"
	"time"

	"branchstock/internal/domain/transfer"
)

const dateLayout = "2006-01-02"

// options are read from the environment so the command can run from cron.
type options struct {
	Output   string
	From     *time.Time
	To       *time.Time
	Branch   string
	Status   *transfer.Status
	PageSize int
}

func parseOptions(getenv func(string) string, args []string) (options, error) {
	opts := options{
		Output:   "transfers.xlsx",
		Branch:   strings.TrimSpace(getenv("REPORT_BRANCH")),
		PageSize: 500,
	}
	if len(args) > 0 && args[0] != "" {
		opts.Output = args[0]
	}

	var err error
	if opts.From, err = parseDate(getenv("REPORT_FROM"), false); err != nil {
		return opts, fmt.Errorf("REPORT_FROM: %w", err)
	}
	if opts.To, err = parseDate(getenv("REPORT_TO"), true); err != nil {
		return opts, fmt.Errorf("REPORT_TO: %w", err)
	}
	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return opts, fmt.Errorf("REPORT_TO is before REPORT_FROM")
	}

	if s := strings.TrimSpace(getenv("REPORT_STATUS")); s != "" {
		st, err := transfer.ParseStatus(s)
		if err != nil {
			return opts, fmt.Errorf("REPORT_STATUS: %w", err)
		}
		opts.Status = &st
	}
	return opts, nil
}

// parseDate reads YYYY-MM-DD in UTC. endOfDay moves the result to the last instant of that day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
