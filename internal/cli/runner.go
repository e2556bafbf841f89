package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/todomvc/internal/ui"
)

// usageError marks mistakes in how the command was invoked (exit code 2).
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error { return usageError{fmt.Sprintf(format, a...)} }

// Run executes the command line and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}
	ui.Fail(stderr, err.Error())

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stderr, ui.Dim("Run `todo --help` for usage."))
		return 2
	}
	return 1
}

// NewRootCmd builds the command tree. Without a subcommand it opens the TUI.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "todo",
		Short: "todo is a TodoMVC list in your terminal",
		Long: `todo keeps an ordered todo list. Run it without arguments for the
interactive view, or use the subcommands below from scripts.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown subcommand: %s", args[0])
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: a.runTUI,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err.Error()}
	})

	// Persistent flags (available to all commands)
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default $TODO_CONFIG or <user config dir>/todo/config.toml)")
	pf.String("store", "", "store backend: json, yaml, file, sqlite or redis")
	pf.String("path", "", "store file or database path")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("metrics-addr", "", "serve /metrics on this address while the TUI runs")

	root.AddCommand(
		a.tuiCmd(),
		a.lsCmd(),
		a.addCmd(),
		a.doneCmd(),
		a.editCmd(),
		a.rmCmd(),
		a.clearCmd(),
		a.markAllCmd(),
	)
	return root
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: todo %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: todo %s", usage)
		}
		return nil
	}
}

func parseIndex(cmd, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usagef("%s: not a number: %s", cmd, s)
	}
	return n, nil
}
