package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/todomvc/internal/actor"
	"github.com/idilsaglam/todomvc/internal/logging"
	"github.com/idilsaglam/todomvc/internal/metrics"
	"github.com/idilsaglam/todomvc/internal/model"
	"github.com/idilsaglam/todomvc/internal/todos"
	"github.com/idilsaglam/todomvc/internal/tui"
	"github.com/idilsaglam/todomvc/internal/ui"
)

// -------------- subcommands ----------------

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive list (default)",
		Args:  exactArgs(0, "tui"),
		RunE:  a.runTUI,
	}
}

func (a *app) runTUI(cmd *cobra.Command, _ []string) error {
	// the terminal belongs to bubbletea, so logs go to a file or nowhere
	a.logger = logging.NewNop()
	if path := a.cfg.Log.File; path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return err
		}
		defer f.Close()
		a.logger = logging.New(a.level, f)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	if addr := a.cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, reg, a.logger); err != nil {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	s, err := a.open(ctx, mt)
	if err != nil {
		return err
	}
	defer s.close()

	changed, err := tui.Run(s.machine, tui.Options{
		Logger:    a.logger,
		AltScreen: true,
		Input:     cmd.InOrStdin(),
		Output:    a.stdout,
	})
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	// toggles sent just before quitting may still be in flight
	if err := s.settle(ctx); err != nil {
		return err
	}
	if !changed && slices.Equal(s.loaded, s.machine.Snapshot().Items()) {
		return nil
	}
	return s.save(ctx)
}

func (a *app) lsCmd() *cobra.Command {
	var (
		filter string
		group  bool
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List items",
		Args:  exactArgs(0, "ls [--filter all|active|completed] [--group]"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("filter") {
				filter = a.cfg.UI.Filter
			}
			f, err := model.ParseFilter(filter)
			if err != nil {
				return usageError{err.Error()}
			}

			s, err := a.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer s.close()
			s.machine.Send(todos.SetFilter{Filter: f})

			ui.Panel(a.stdout, listing(s.machine.Snapshot(), group))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "show all, active or completed items")
	cmd.Flags().BoolVar(&group, "group", false, "group output by active/completed")
	return cmd
}

// listing renders the panel body for ls.
func listing(st todos.State, group bool) []string {
	t := ui.Current()
	active, completed := st.Counts()

	var rows []ui.Row
	for i, td := range st.Todos {
		if st.Filter.Matches(td.Item) {
			rows = append(rows, ui.Row{Index: i + 1, Item: td.Item})
		}
	}

	lines := []string{
		ui.Header(active, completed, st.Filter),
		ui.C(t.Muted, ui.ProgressBar(completed, active+completed, 28)),
		"",
	}
	if group {
		lines = append(lines, ui.GroupedLines(rows)...)
	} else {
		lines = append(lines, ui.Lines(rows)...)
	}
	lines = append(lines, "", ui.C(t.Muted, ui.ItemsLeft(active)))
	if len(st.Todos) == 0 {
		lines = append(lines, ui.C(t.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	}
	return lines
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a new item (title can be multiple words)",
		Args:  minArgs(1, "add <title...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			err := a.mutate(cmd, func(s *session) error {
				s.machine.Send(todos.InputChange{Value: title})
				if !s.machine.Send(todos.InputCommit{Value: title}) {
					return usagef("add: empty title")
				}
				return nil
			})
			if err != nil {
				return err
			}
			ui.OK(a.stdout, "added")
			return nil
		},
	}
}

func (a *app) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle completion of the item at a 1-based index",
		Args:  exactArgs(1, "done <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sendToItem(cmd, "done", args[0], actor.Toggle{}, "toggled")
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index> <title...>",
		Short: "Rename the item at a 1-based index (a blank title deletes it)",
		Args:  minArgs(2, "edit <index> <title...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args[1:], " ")
			return a.sendToItem(cmd, "edit", args[0], actor.Rename{Title: title}, "renamed")
		},
	}
}

// sendToItem delivers msg to the actor owning the item at rawIndex.
func (a *app) sendToItem(cmd *cobra.Command, name, rawIndex string, msg actor.Message, okMsg string) error {
	n, err := parseIndex(name, rawIndex)
	if err != nil {
		return err
	}
	err = a.mutate(cmd, func(s *session) error {
		td, err := s.at(n)
		if err != nil {
			return err
		}
		td.Ref.Send(msg)
		return nil
	})
	if err != nil {
		return err
	}
	ui.OK(a.stdout, okMsg)
	return nil
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the item at a 1-based index",
		Args:  exactArgs(1, "rm <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseIndex("rm", args[0])
			if err != nil {
				return err
			}
			err = a.mutate(cmd, func(s *session) error {
				td, err := s.at(n)
				if err != nil {
					return err
				}
				s.machine.Send(todos.ItemDelete{ID: td.ID})
				return nil
			})
			if err != nil {
				return err
			}
			ui.OK(a.stdout, "removed")
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed items",
		Args:  exactArgs(0, "clear"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var removed int
			err := a.mutate(cmd, func(s *session) error {
				before := len(s.machine.Snapshot().Todos)
				s.machine.Send(todos.ClearCompleted{})
				removed = before - len(s.machine.Snapshot().Todos)
				return nil
			})
			if err != nil {
				return err
			}
			ui.OK(a.stdout, fmt.Sprintf("cleared %d completed", removed))
			return nil
		},
	}
}

func (a *app) markAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "mark-all completed|active",
		Short:     "Mark every item completed or active",
		ValidArgs: []string{"completed", "active"},
		Args:      exactArgs(1, "mark-all completed|active"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ev todos.Event
			switch strings.ToLower(args[0]) {
			case "completed":
				ev = todos.MarkAllCompleted{}
			case "active":
				ev = todos.MarkAllActive{}
			default:
				return usagef("mark-all: want completed or active, got %q", args[0])
			}
			err := a.mutate(cmd, func(s *session) error {
				s.machine.Send(ev)
				return nil
			})
			if err != nil {
				return err
			}
			ui.OK(a.stdout, "marked all "+strings.ToLower(args[0]))
			return nil
		},
	}
}
