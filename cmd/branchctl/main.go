// Package main provides CLI for branch administration.
// Usage: branchctl migrate
//        branchctl create --code CEN --name "Sucursal Centro" [--city Lima] [--limit 8000] [--manager <user-uuid>]
//        branchctl list [--all]
//        branchctl assign-manager --branch CEN --user <user-uuid>
//        branchctl deactivate --branch CEN
//        branchctl exposure --branch CEN
//        branchctl history --transfer <transfer-uuid>
//        branchctl set-sequence --last SAL-2026-00120 | --year 2026 --value 120
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"branchstock/internal/app"
	"branchstock/internal/config"
	"branchstock/internal/core/id"
	"branchstock/internal/core/numerator"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/branch"
	"branchstock/internal/infrastructure/storage/postgres"
	"branchstock/pkg/logger"
	pgnum "branchstock/pkg/numerator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, flags := os.Args[1], parseFlags(os.Args[2:])

	switch cmd {
	case "migrate":
		withApp(true, func(ctx context.Context, a *app.App) error {
			fmt.Println("✓ Migrations applied")
			return nil
		})
	case "create":
		withApp(false, func(ctx context.Context, a *app.App) error { return createBranch(ctx, a, flags) })
	case "list":
		withApp(false, func(ctx context.Context, a *app.App) error { return listBranches(ctx, a, flags) })
	case "assign-manager":
		withApp(false, func(ctx context.Context, a *app.App) error { return assignManager(ctx, a, flags) })
	case "deactivate":
		withApp(false, func(ctx context.Context, a *app.App) error { return deactivateBranch(ctx, a, flags) })
	case "exposure":
		withApp(false, func(ctx context.Context, a *app.App) error { return showExposure(ctx, a, flags) })
	case "history":
		withApp(false, func(ctx context.Context, a *app.App) error { return showHistory(ctx, a, flags) })
	case "set-sequence":
		withApp(false, func(ctx context.Context, a *app.App) error { return setSequence(ctx, a, flags) })
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Branchstock Branch Administration CLI

Usage:
  branchctl <command> [options]

Commands:
  migrate         Apply pending database migrations
  create          Create a branch
  list            List active branches (--all includes inactive)
  assign-manager  Make a user the manager of a branch
  deactivate      Deactivate a branch
  exposure        Show committed transfer cost against the spend limit
  history         Show the audit trail of a transfer
  set-sequence    Set the last issued transfer number of a year (data migration)
  help            Show this help

Environment Variables:
  DATABASE_URL    Connection string (or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)

Examples:
  branchctl create --code CEN --name "Sucursal Centro" --limit 8000
  branchctl assign-manager --branch CEN --user 01920000-0000-7000-8000-000000000001
  branchctl exposure --branch CEN
  branchctl set-sequence --last SAL-2026-00120`)
}

// withApp opens the database, runs fn and exits non-zero on failure.
func withApp(migrate bool, fn func(ctx context.Context, a *app.App) error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.LoggerConfig())
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	ctx := logger.WithLogger(context.Background(), log)

	a, err := app.Open(ctx, cfg, app.Options{Migrate: migrate})
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		fmt.Printf("Error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}

func createBranch(ctx context.Context, a *app.App, flags map[string]string) error {
	code, name := flags["code"], flags["name"]
	if code == "" || name == "" {
		return fmt.Errorf("--code and --name are required")
	}

	b := branch.NewBranch(code, name, time.Now())
	b.City = flags["city"]
	b.Address = flags["address"]

	if s := flags["limit"]; s != "" {
		limit, err := types.NewMoneyFromString(s)
		if err != nil {
			return fmt.Errorf("--limit: %w", err)
		}
		b.SpendLimit = &limit
	}
	if s := flags["manager"]; s != "" {
		userID, err := id.Parse(s)
		if err != nil {
			return fmt.Errorf("--manager: %w", err)
		}
		b.ManagerID = &userID
	}

	if err := a.Branches.Create(ctx, b); err != nil {
		return err
	}

	fmt.Printf("✓ Branch '%s' created\n", b.Code)
	fmt.Printf("  Branch ID: %s\n", b.ID)
	fmt.Printf("  Spend limit: %s\n", b.EffectiveLimit(a.Config.Transfer.DefaultSpendLimit).String())
	return nil
}

func listBranches(ctx context.Context, a *app.App, flags map[string]string) error {
	_, all := flags["all"]
	branches, err := a.Branches.List(ctx, branch.ListFilter{ActiveOnly: !all})
	if err != nil {
		return err
	}

	if len(branches) == 0 {
		fmt.Println("No branches found")
		return nil
	}

	fmt.Printf("%-36s %-8s %-30s %-36s %-12s %-8s\n", "BRANCH_ID", "CODE", "NAME", "MANAGER", "LIMIT", "ACTIVE")
	fmt.Println(strings.Repeat("-", 135))

	for _, b := range branches {
		manager := "-"
		if b.ManagerID != nil {
			manager = b.ManagerID.String()
		}
		fmt.Printf("%-36s %-8s %-30s %-36s %-12s %-8t\n",
			b.ID,
			truncate(b.Code, 8),
			truncate(b.Name, 30),
			manager,
			b.EffectiveLimit(a.Config.Transfer.DefaultSpendLimit).StringFixed(2),
			b.Active,
		)
	}
	return nil
}

func assignManager(ctx context.Context, a *app.App, flags map[string]string) error {
	b, err := requireBranch(ctx, a, flags)
	if err != nil {
		return err
	}
	userID, err := id.Parse(flags["user"])
	if err != nil {
		return fmt.Errorf("--user: %w", err)
	}

	if err := a.Branches.AssignManager(ctx, b.ID, userID); err != nil {
		return err
	}
	fmt.Printf("✓ User %s now manages '%s'\n", userID, b.Code)
	return nil
}

func deactivateBranch(ctx context.Context, a *app.App, flags map[string]string) error {
	b, err := requireBranch(ctx, a, flags)
	if err != nil {
		return err
	}
	if err := a.Branches.Deactivate(ctx, b.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Branch '%s' deactivated\n", b.Code)
	return nil
}

func showExposure(ctx context.Context, a *app.App, flags map[string]string) error {
	b, err := requireBranch(ctx, a, flags)
	if err != nil {
		return err
	}
	exp, err := a.Transfers.Exposure(ctx, b.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Branch:     %s (%s)\n", b.Code, b.Name)
	fmt.Printf("Committed:  %s\n", exp.CommittedTotal.StringFixed(2))
	fmt.Printf("Limit:      %s\n", exp.Limit.StringFixed(2))
	fmt.Printf("Remaining:  %s\n", exp.Remaining.StringFixed(2))
	return nil
}

func showHistory(ctx context.Context, a *app.App, flags map[string]string) error {
	transferID, err := id.Parse(flags["transfer"])
	if err != nil {
		return fmt.Errorf("--transfer: %w", err)
	}

	entries, err := a.Audit.History(ctx, "transfer", transferID, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No audit entries found")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %-20s %-20s %s\n",
			e.OccurredAt.Format(time.RFC3339),
			e.Kind,
			truncate(e.Actor, 20),
			historyPayload(e),
		)
	}
	return nil
}

func historyPayload(e postgres.AuditEntry) string {
	if len(e.Payload) == 0 {
		return "-"
	}
	return string(e.Payload)
}

func setSequence(ctx context.Context, a *app.App, flags map[string]string) error {
	period, value, err := sequenceTarget(flags, a.Numbering)
	if err != nil {
		return err
	}
	if err := a.Numbers.SetNextNumber(ctx, a.Numbering, period, value); err != nil {
		return err
	}
	fmt.Printf("✓ Last issued number for %s is now %s\n", period.Format("2006"), a.Numbering.Format(period, value))
	fmt.Printf("  Next: %s\n", a.Numbering.Format(period, value+1))
	return nil
}

// sequenceTarget reads either --last <number> or --year and --value.
// The value is the last number already issued; the next transfer gets value+1.
func sequenceTarget(flags map[string]string, cfg numerator.Config) (time.Time, int64, error) {
	if last := strings.TrimSpace(flags["last"]); last != "" {
		rest, ok := strings.CutPrefix(last, cfg.Prefix+"-")
		if !ok {
			return time.Time{}, 0, fmt.Errorf("--last: %q does not start with %s-", last, cfg.Prefix)
		}
		yearPart, _, _ := strings.Cut(rest, "-")
		year, err := strconv.Atoi(yearPart)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("--last: bad year in %q", last)
		}
		value := pgnum.ParseNumber(last)
		if value < 0 {
			return time.Time{}, 0, fmt.Errorf("--last: bad sequence in %q", last)
		}
		period := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		if cfg.Format(period, value) != last {
			return time.Time{}, 0, fmt.Errorf("--last: %q is not in %s format", last, cfg.Format(period, 1))
		}
		return period, value, nil
	}

	year, err := strconv.Atoi(flags["year"])
	if err != nil || year < 1 {
		return time.Time{}, 0, fmt.Errorf("--year is required (or --last)")
	}
	value, err := strconv.ParseInt(flags["value"], 10, 64)
	if err != nil || value < 0 {
		return time.Time{}, 0, fmt.Errorf("--value must be a non-negative integer")
	}
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), value, nil
}

func requireBranch(ctx context.Context, a *app.App, flags map[string]string) (*branch.Branch, error) {
	code := flags["branch"]
	if code == "" {
		return nil, fmt.Errorf("--branch is required")
	}
	branches, err := a.Branches.List(ctx, branch.ListFilter{})
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		if b.Code == code {
			return b, nil
		}
	}
	return nil, fmt.Errorf("branch '%s' not found", code)
}

// parseFlags reads "--key value" pairs. A flag followed by another flag, or by nothing, is boolean.
func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "--") {
			continue
		}
		key := strings.TrimPrefix(args[i], "--")
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			flags[key] = args[i+1]
			i++
			continue
		}
		flags[key] = ""
	}
	return flags
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
