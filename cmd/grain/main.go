// grain is the operator command for a grain ledger: it migrates the
// store, checks stored totals against their inputs and prints pantry,
// event and meal-cost reports.
//
// Usage:
//
//	grain [--config FILE] <command> [flags]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/xraph/grain"
	"github.com/xraph/grain/internal/backend"
	"github.com/xraph/grain/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		code := 1
		var exit *exitError
		if errors.As(err, &exit) {
			code = exit.Code
		}
		if exit == nil || exit.Err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(code)
	}
}

// exitError ends the process with Code. Without Err the command has
// already written its own output.
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *exitError) Unwrap() error { return e.Err }

// usageError marks err as a command-line mistake (exit code 2).
func usageError(err error) error {
	return &exitError{Code: 2, Err: err}
}

// ExitCode returns the process exit code.
func (e *exitError) ExitCode() int { return e.Code }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var configPath string

	flagSet := pflag.NewFlagSet("grain", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "path to grain.yaml (default: $GRAIN_CONFIG)")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return usageError(err)
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return &exitError{Code: 2}
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(stderr, flagSet)
		return usageError(fmt.Errorf("unknown command %q", rest[0]))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger(stderr)

	s, err := backend.Open(cfg.Backend())
	if err != nil {
		return err
	}
	engine := grain.New(s, grain.WithLogger(logger), grain.WithHookTimeout(cfg.HookTimeout))
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	logger.Debug("running command", "command", rest[0], "driver", cfg.Store.Driver)
	if err := cmd.run(ctx, engine, rest[1:], stdout); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return err
	}
	return nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: grain [--config FILE] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}
