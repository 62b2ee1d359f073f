package style

import (
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
)

// StatusStyle returns the pterm style for a task status badge
func StatusStyle(status types.TaskStatus) *pterm.Style {
	switch status {
	case types.StatusSucceeded:
		return pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	case types.StatusFailed:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite, pterm.Bold)
	case types.StatusSkipped:
		return pterm.NewStyle(pterm.FgYellow)
	case types.StatusRunning:
		return pterm.NewStyle(pterm.FgCyan)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// KindStyle returns the lipgloss style for a task kind
func KindStyle(kind types.TaskKind) lipgloss.Style {
	switch kind {
	case types.KindGitRepo:
		return RepoStyle
	case types.KindLinkGroup:
		return LinkStyle
	case types.KindCommand:
		return CommandStyle
	default:
		return MutedStyle
	}
}

// LinkIndicator returns the marker printed before a link outcome line
func LinkIndicator(result types.LinkResult) string {
	switch result {
	case types.LinkCreated, types.LinkReplaced:
		return SuccessIndicator
	case types.LinkAlreadyCorrect:
		return InfoIndicator
	case types.LinkConflictSkipped:
		return WarningIndicator
	case types.LinkFailed:
		return ErrorIndicator
	default:
		return PendingIndicator
	}
}

// ActionIndicator returns the marker printed before a planned link action
func ActionIndicator(action types.LinkAction) string {
	switch action {
	case types.ActionCreate, types.ActionReplace:
		return PendingIndicator
	case types.ActionNoOp:
		return InfoIndicator
	case types.ActionConflict:
		return WarningIndicator
	case types.ActionInvalid:
		return ErrorIndicator
	default:
		return PendingIndicator
	}
}
