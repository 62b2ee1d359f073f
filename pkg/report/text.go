package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/dotup/pkg/executor"
	"github.com/arthur-debert/dotup/pkg/style"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/pterm/pterm"
)

// linkResultOrder fixes the order of per-result counts in the detail column
var linkResultOrder = []types.LinkResult{
	types.LinkCreated,
	types.LinkReplaced,
	types.LinkAlreadyCorrect,
	types.LinkConflictSkipped,
	types.LinkFailed,
}

func renderReport(report *types.RunReport) (string, error) {
	var b strings.Builder

	if len(report.Tasks) > 0 {
		data := pterm.TableData{{"TASK", "KIND", "STATUS", "DETAIL", "TIME"}}
		for _, t := range report.Tasks {
			data = append(data, []string{
				t.ID,
				style.KindStyle(t.Kind).Render(string(t.Kind)),
				style.StatusStyle(t.Status).Sprint(string(t.Status)),
				detail(t),
				formatDuration(t.Duration),
			})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return "", err
		}
		b.WriteString(table)
		b.WriteString("\n")
	}

	for _, t := range report.Tasks {
		if notes := taskNotes(t); len(notes) > 0 {
			b.WriteString("\n" + style.Bold(t.ID) + "\n")
			for _, n := range notes {
				b.WriteString(style.Indent(n, 1) + "\n")
			}
		}
	}

	b.WriteString("\n" + summary(report))
	return b.String(), nil
}

func detail(t types.TaskResult) string {
	var d string
	switch {
	case t.Repo != nil:
		d = repoDetail(*t.Repo)
	case t.Links != nil:
		d = linkCounts(t.Links)
	case t.Command != nil:
		d = fmt.Sprintf("exit %d", t.Command.ExitCode)
	}

	switch {
	case d == "":
		return t.Reason
	case t.Reason == "":
		return d
	default:
		return d + ": " + t.Reason
	}
}

func repoDetail(o types.RepoOutcome) string {
	switch o.Result {
	case types.RepoCloned:
		return fmt.Sprintf("cloned %s", shortSHA(o.After))
	case types.RepoUpdated:
		return fmt.Sprintf("updated %s..%s", shortSHA(o.Before), shortSHA(o.After))
	default:
		return string(o.Result)
	}
}

func linkCounts(outcomes []types.LinkOutcome) string {
	if len(outcomes) == 0 {
		return "no links"
	}
	counts := make(map[types.LinkResult]int)
	for _, o := range outcomes {
		counts[o.Result]++
	}
	var parts []string
	for _, r := range linkResultOrder {
		if counts[r] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[r], r))
		}
	}
	return strings.Join(parts, ", ")
}

// taskNotes lists the lines worth a second look: links that did not simply
// land, and the output of failed commands
func taskNotes(t types.TaskResult) []string {
	var notes []string
	for _, o := range t.Links {
		switch o.Result {
		case types.LinkReplaced:
			notes = append(notes, fmt.Sprintf("%s %s (backup %s)", style.LinkIndicator(o.Result), o.Target, o.Backup))
		case types.LinkConflictSkipped, types.LinkFailed:
			notes = append(notes, fmt.Sprintf("%s %s: %s", style.LinkIndicator(o.Result), o.Target, o.Reason))
		}
	}
	if t.Command != nil && t.Command.Failed && t.Command.Output != "" {
		for _, line := range strings.Split(strings.TrimRight(t.Command.Output, "\n"), "\n") {
			notes = append(notes, style.MutedStyle.Render("| "+line))
		}
	}
	return notes
}

func summary(report *types.RunReport) string {
	counts := report.Counts()
	line := fmt.Sprintf("%d tasks: %d succeeded, %d failed, %d skipped",
		len(report.Tasks),
		counts[types.StatusSucceeded],
		counts[types.StatusFailed],
		counts[types.StatusSkipped])
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		line += " in " + formatDuration(report.FinishedAt.Sub(report.StartedAt))
	}

	switch {
	case report.Aborted:
		return style.ErrorStyle.Render(line + " (aborted)")
	case counts[types.StatusFailed] > 0:
		return style.ErrorStyle.Render(line)
	default:
		return style.SuccessStyle.Render(line)
	}
}

func renderPlan(plans []executor.GroupPlan) string {
	if len(plans) == 0 {
		return style.MutedStyle.Render("No link groups to plan")
	}

	var b strings.Builder
	for i, p := range plans {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(style.Bold(p.TaskID) + "\n")
		if p.Error != "" {
			b.WriteString(style.Indent(style.ErrorIndicator+" "+p.Error, 1) + "\n")
		}
		for _, a := range p.Actions {
			b.WriteString(style.Indent(planLine(a), 1) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func planLine(a types.PlannedAction) string {
	line := fmt.Sprintf("%s %-8s %s", style.ActionIndicator(a.Action), a.Action, a.Target)
	switch a.Action {
	case types.ActionCreate, types.ActionNoOp:
		line += " -> " + a.Source
	case types.ActionReplace:
		line += fmt.Sprintf(" -> %s (was %s)", a.Source, a.Existing)
	case types.ActionConflict:
		blocker := a.Existing
		if a.Blocker != "" {
			blocker = fmt.Sprintf("%s at %s", a.Existing, a.Blocker)
		}
		line += fmt.Sprintf(" (%s, policy %s)", blocker, a.Policy)
	case types.ActionInvalid:
		line += ": " + a.Reason
	}
	return line
}

func renderError(err error) string {
	return style.ErrorStyle.Render("Error:") + " " + err.Error()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
