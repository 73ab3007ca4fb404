package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/specs"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// render draws a bordered table.
func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func priorityStyle(p specs.Priority) lipgloss.Style {
	switch p {
	case specs.PriorityCritical:
		return errStyle
	case specs.PriorityHigh:
		return warnStyle
	default:
		return okStyle
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// report opens the engine, runs fn, and closes it again.
func report(opts *options, cmd *cobra.Command, fn func(*engine.Engine) error) error {
	e, closeAll, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeAll()
	return fn(e)
}

func newProjectsCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List every project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(opts, cmd, func(e *engine.Engine) error {
				list, err := e.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No projects yet.")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, p := range list {
					rows = append(rows, []string{p.ID, p.Name, string(p.CurrentPhase), p.UpdatedAt})
				}
				fmt.Fprintln(out, render([]string{"ID", "Name", "Phase", "Updated"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show phase, maturity and blockers of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(opts, cmd, func(e *engine.Engine) error {
				st, err := e.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, st)
				}

				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Project %s (%s)", st.Project.ID, st.Project.CurrentPhase)))
				fmt.Fprintf(out, "Overall maturity: %.1f / 100   Readiness: %.1f%%\n", st.Maturity.OverallScore, st.Maturity.Readiness)
				if st.NextPhase != "" {
					fmt.Fprintf(out, "Next phase: %s\n", st.NextPhase)
				}

				rows := make([][]string, 0, len(st.Maturity.Categories))
				for _, c := range st.Maturity.Categories {
					rows = append(rows, []string{string(c.Category), fmt.Sprintf("%.1f", c.Score), fmt.Sprintf("%d", c.Specifications)})
				}
				fmt.Fprintln(out, render([]string{"Category", "Score", "Specs"}, rows))

				if n := len(st.PendingConflicts); n > 0 {
					fmt.Fprintln(out, errStyle.Render(fmt.Sprintf("%d pending conflict(s):", n)))
					for _, c := range st.PendingConflicts {
						fmt.Fprintf(out, "  %s  %s  %s\n", c.ID, c.Category, c.ConflictType)
					}
				}
				if n := len(st.OpenIssues); n > 0 {
					fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("%d open architecture issue(s):", n)))
					for _, i := range st.OpenIssues {
						fmt.Fprintf(out, "  %s  %s\n", i.ID, i.Summary)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newGapsCmd(opts *options) *cobra.Command {
	var (
		asJSON bool
		target float64
	)
	cmd := &cobra.Command{
		Use:   "gaps <project-id>",
		Short: "List categories below target, most urgent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(opts, cmd, func(e *engine.Engine) error {
				gaps, err := e.GapReport(cmd.Context(), args[0], target)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, gaps)
				}
				if len(gaps) == 0 {
					fmt.Fprintln(out, okStyle.Render("No gaps: every category meets its target."))
					return nil
				}
				rows := make([][]string, 0, len(gaps))
				for _, g := range gaps {
					rows = append(rows, []string{
						string(g.Category),
						priorityStyle(g.Priority).Render(string(g.Priority)),
						fmt.Sprintf("%.1f / %.1f", g.Completeness, g.Target),
						strings.Join(g.MissingItems, ", "),
					})
				}
				fmt.Fprintln(out, render([]string{"Category", "Priority", "Completeness", "Missing"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().Float64Var(&target, "target", 0, "Target score (0-100], default from config")
	return cmd
}

func newDecisionsCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "decisions <project-id>",
		Short: "Show the gate audit log of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(opts, cmd, func(e *engine.Engine) error {
				list, err := e.ListGateDecisions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No gate decisions recorded.")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, d := range list {
					verdict := okStyle.Render("proceed")
					if d.Blocking {
						verdict = errStyle.Render("blocked")
					} else if d.Overridden {
						verdict = warnStyle.Render("overridden")
					}
					rows = append(rows, []string{
						d.DecidedAt, string(d.OperationType), verdict, string(d.Severity),
						fmt.Sprintf("%d", d.CriticalGapCount), d.ID,
					})
				}
				fmt.Fprintln(out, render([]string{"When", "Operation", "Verdict", "Severity", "Critical", "ID"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		asJSON   bool
		category string
	)
	cmd := &cobra.Command{
		Use:   "history <project-id>",
		Short: "Show phase transitions and recorded maturity snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(opts, cmd, func(e *engine.Engine) error {
				ctx := cmd.Context()
				transitions, err := e.ListTransitions(ctx, args[0])
				if err != nil {
					return err
				}
				snapshots, err := e.MaturityHistory(ctx, args[0], specs.Category(category))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, map[string]any{
						"transitions": transitions,
						"snapshots":   snapshots,
					})
				}

				fmt.Fprintln(out, titleStyle.Render("Transitions"))
				if len(transitions) == 0 {
					fmt.Fprintln(out, "None yet.")
				} else {
					rows := make([][]string, 0, len(transitions))
					for _, tr := range transitions {
						rows = append(rows, []string{
							tr.TransitionedAt, string(tr.FromPhase) + " → " + string(tr.ToPhase),
							fmt.Sprintf("%.1f", tr.OverallScore), fmt.Sprintf("%.1f%%", tr.Readiness),
						})
					}
					fmt.Fprintln(out, render([]string{"When", "Phase", "Overall", "Readiness"}, rows))
				}

				fmt.Fprintln(out, titleStyle.Render("Maturity snapshots"))
				if len(snapshots) == 0 {
					fmt.Fprintln(out, "None yet.")
					return nil
				}
				rows := make([][]string, 0, len(snapshots))
				for _, s := range snapshots {
					rows = append(rows, []string{s.ComputedAt, string(s.Category), fmt.Sprintf("%.1f", s.Score), s.Reason})
				}
				fmt.Fprintln(out, render([]string{"When", "Category", "Score", "Reason"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().StringVar(&category, "category", "", "Only snapshots of this category")
	return cmd
}
