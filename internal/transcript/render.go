package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sszhu/biomni/pkg/models"
)

var (
	taskStyle     = lipgloss.NewStyle().Bold(true)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	asstStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	obsStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	abortedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	answerStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	obsBodyIndent = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).MarginLeft(2)
)

func roleHeader(role models.Role) string {
	switch role {
	case models.RoleUser:
		return userStyle.Render("task")
	case models.RoleAssistant:
		return asstStyle.Render("assistant")
	case models.RoleObservation:
		return obsStyle.Render("observation")
	default:
		return string(role)
	}
}

// Render formats a full transcript for the terminal: every turn with a
// colored role header, then the terminal status and the answer.
func Render(tr *models.Transcript) string {
	var b strings.Builder

	b.WriteString(taskStyle.Render("Run "+tr.RunID) + "\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("started %s, %d turns, %d in / %d out tokens",
		tr.StartedAt.Format("2006-01-02 15:04:05"), len(tr.Turns), tr.TokensIn, tr.TokensOut)) + "\n\n")

	for _, turn := range tr.Turns {
		fmt.Fprintf(&b, "[%d] %s\n", turn.Seq, roleHeader(turn.Role))
		if turn.Role == models.RoleObservation {
			b.WriteString(obsBodyIndent.Render(turn.Content) + "\n\n")
		} else {
			b.WriteString(turn.Content + "\n\n")
		}
	}

	b.WriteString(RenderOutcome(tr))
	return b.String()
}

// RenderOutcome formats just the terminal status and answer, used after
// a live run.
func RenderOutcome(tr *models.Transcript) string {
	var b strings.Builder

	if tr.Status == models.StatusDone {
		b.WriteString(doneStyle.Render("✓ done") + "\n")
	} else {
		b.WriteString(abortedStyle.Render("✗ aborted: "+string(tr.Reason)) + "\n")
	}

	if tr.FinalAnswer != "" {
		label := "Answer"
		if tr.Incomplete {
			label = "Partial answer"
		}
		b.WriteString(metaStyle.Render(label) + "\n")
		b.WriteString(answerStyle.Render(tr.FinalAnswer) + "\n")
	}
	return b.String()
}

// SummaryLine formats one run for the history listing.
func SummaryLine(rs RunSummary) string {
	status := doneStyle.Render(string(rs.Status))
	if rs.Status == models.StatusAborted {
		status = abortedStyle.Render(fmt.Sprintf("%s (%s)", rs.Status, rs.Reason))
	}

	task := rs.Task
	if len(task) > 60 {
		task = task[:57] + "..."
	}

	return fmt.Sprintf("%s  %s  %s  %s",
		metaStyle.Render(rs.StartedAt.Format("2006-01-02 15:04")),
		rs.RunID[:8], status, task)
}
