package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/xraph/grain"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
)

type command struct {
	summary string
	run     func(ctx context.Context, engine *grain.Engine, args []string, stdout io.Writer) error
}

var commands = map[string]command{
	"migrate":      {"create or update the store schema", runMigrate},
	"profiles":     {"list owner profiles", runProfiles},
	"ingredients":  {"list a profile's ingredients", runIngredients},
	"events":       {"show a profile's ledger event log", runEvents},
	"summary":      {"meal costs per day and meal type", runSummary},
	"reconcile":    {"check stored totals against their tickets", runReconcile},
	"purge-events": {"delete event log entries older than a cutoff", runPurgeEvents},
}

var commandOrder = []string{"migrate", "profiles", "ingredients", "events", "summary", "reconcile", "purge-events"}

const dateLayout = time.DateOnly

func newFlagSet(name string, stdout io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("grain "+name, pflag.ContinueOnError)
	fs.SetOutput(stdout)
	return fs
}

// parseFlags returns pflag.ErrHelp unchanged after --help has printed the
// flag set's usage; any other parse failure is a usage error.
func parseFlags(fs *pflag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return err
	}
	return usageError(fmt.Errorf("%s: %w", fs.Name(), err))
}

func profileFlag(fs *pflag.FlagSet) *string {
	return fs.String("profile", "", "owner profile id (prof_...)")
}

func parseProfile(raw string) (id.ProfileID, error) {
	if raw == "" {
		return id.ProfileID{}, usageError(errors.New("--profile is required"))
	}
	profileID, err := id.ParseProfileID(raw)
	if err != nil {
		return id.ProfileID{}, usageError(fmt.Errorf("--profile: %w", err))
	}
	return profileID, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
}

func runMigrate(ctx context.Context, engine *grain.Engine, args []string, stdout io.Writer) error {
	fs := newFlagSet("migrate", stdout)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := engine.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "migrated")
	return nil
}

func runProfiles(ctx context.Context, engine *grain.Engine, args []string, stdout io.Writer) error {
	fs := newFlagSet("profiles", stdout)
	user := fs.String("user", "", "only profiles of this user reference")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	profiles, err := engine.Store().ListProfiles(ctx, *user)
	if err != nil {
		return err
	}
	w := table(stdout)
	fmt.Fprintln(w, "ID\tUSER\tCURRENCY\tNOTE")
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.UserRef, p.Currency, p.Note)
	}
	return w.Flush()
}

func runIngredients(ctx context.Context, engine *grain.Engine, args []string, stdout io.Writer) error {
	fs := newFlagSet("ingredients", stdout)
	profile := profileFlag(fs)
	available := fs.Bool("available", false, "only ingredients not yet exhausted, most used first")
	limit := fs.Int("limit", 0, "maximum rows (0 = all)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ownerID, err := parseProfile(*profile)
	if err != nil {
		return err
	}

	list, err := engine.ListIngredients(ctx, ownerID, ingredient.ListOpts{OnlyAvailable: *available, Limit: *limit})
	if err != nil {
		return err
	}
	now := time.Now()
	w := table(stdout)
	fmt.Fprintln(w, "ID\tPRODUCT\tUSED\tTOTAL\tPRICE\tPER UNIT\tSTATE")
	for _, ing := range list {
		state := "open"
		switch {
		case ing.Exhausted:
			state = "exhausted"
		case ing.Expired(now):
			state = "expired"
		}
		if ing.Overdrawn() {
			state += " (overdrawn)"
		}
		fmt.Fprintf(w, "%s\t%s\t%g %s\t%g %s\t%s\t%s\t%s\n",
			ing.ID, ing.ProductName, ing.UsedAmount, ing.Units, ing.TotalAmount, ing.Units,
			ing.Price, ing.CostPerUnit().FormatMajor(), state)
	}
	return w.Flush()
}

func runEvents(ctx context.Context, engine *grain.Engine, args []string, stdout io.Writer) error {
	fs := newFlagSet("events", stdout)
	profile := profileFlag(fs)
	action := fs.String("action", "", "only events with this action, e.g. ticket.created")
	limit := fs.Int("limit", 50, "maximum rows (0 = all)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ownerID, err := parseProfile(*profile)
	if err != nil {
		return err
	}

	events, err := engine.ListEvents(ctx, ownerID, event.QueryOpts{Action: event.Action(*action), Limit: *limit})
	if err != nil {
		return err
	}
	w := table(stdout)
	fmt.Fprintln(w, "TIME\tACTION\tQUANTITY\tAMOUNT\tINGREDIENT\tTICKET")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.Action, e.Quantity, e.Amount, e.IngredientID, e.TicketID)
	}
	return w.Flush()
}

func runSummary(ctx context.Context, engine *grain.Engine, args []string, stdout io.Writer) error {
	fs := newFlagSet("summary", stdout)
	profile := profileFlag(fs)
	fromRaw := fs.String("from", "", "first day, YYYY-MM-DD (default: 7 days ago)")
	toRaw := fs.String("to", "", "last day inclusive, YYYY-MM-DD (default: today)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ownerID, err := parseProfile(*profile)
	if err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	from, err := parseDay(*fromRaw, today.AddDate(0, 0, -7))
	if err != nil {
		return usageError(fmt.Errorf("--from: %w", err))
	}
	to, err := parseDay(*toRaw, today)
	if err != nil {
		return usageError(fmt.Errorf("--to: %w", err))
	}

	days, err := engine.SummarizeMeals(ctx, ownerID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	w := table(stdout)
	fmt.Fprintln(w, "DATE\tMEAL\tCOUNT\tOPEN\tCLOSED\tTOTAL")
	for _, day := range days {
		for _, slot := range day.Slots {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
				day.Date.Format(dateLayout), slot.Type, len(slot.Meals), slot.Open, slot.Closed, slot.Total())
		}
		fmt.Fprintf(w, "%s\tday\t\t%s\t%s\t%s\n", day.Date.Format(dateLayout), day.Open, day.Closed, day.Total())
	}
	return w.Flush()
}

func parseDay(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}

func runReconcile(ctx context.Context, engine *grain.Engine, args []string, stdout io.Writer) error {
	fs := newFlagSet("reconcile", stdout)
	profile := profileFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ownerID, err := parseProfile(*profile)
	if err != nil {
		return err
	}

	report, err := engine.Reconcile(ctx, ownerID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "checked %d meals, %d dishes, %d tickets\n", report.Meals, report.Dishes, report.Tickets)
	if report.OK() {
		fmt.Fprintln(stdout, "no drift")
		return nil
	}

	w := table(stdout)
	fmt.Fprintln(w, "KIND\tRECORD\tEXPECTED\tSTORED")
	for _, d := range report.Drifts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Kind, d.RecordID, d.Expected, d.Actual)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return &exitError{Code: 1}
}

func runPurgeEvents(ctx context.Context, engine *grain.Engine, args []string, stdout io.Writer) error {
	fs := newFlagSet("purge-events", stdout)
	olderThan := fs.Duration("older-than", 0, "delete events older than this age, e.g. 2160h")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *olderThan <= 0 {
		return usageError(errors.New("--older-than must be positive"))
	}

	n, err := engine.PurgeEvents(ctx, time.Now().UTC().Add(-*olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "purged %d events\n", n)
	return nil
}
