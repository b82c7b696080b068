package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/swapx/dutchx/client"
	"github.com/betbot/swapx/dutchx/types"
	"github.com/betbot/swapx/internal/services"
	"github.com/betbot/swapx/pkg/orderjournal"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderResult(r *services.SwapResult, trade *types.Trade, swapper string, dryRun bool) string {
	status := okStyle.Render("submitted")
	if dryRun {
		status = warnStyle.Render("signed (dry-run)")
	}
	deadline := time.Unix(int64(r.Deadline), 0).Local().Format("2006-01-02 15:04:05")
	lines := []string{
		titleStyle.Render("UniswapX order"),
		row("status", status),
		row("chain", trade.Order.ChainID.String()),
		row("swapper", swapper),
		row("order hash", r.OrderHash),
		row("deadline", fmt.Sprintf("%d (%s)", r.Deadline, deadline)),
		row("attempts", fmt.Sprintf("%d", r.Attempts)),
	}
	if trade.QuoteID != "" {
		lines = append(lines, row("quote", trade.QuoteID))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderFailure(err error) string {
	kind := services.KindOf(err)
	style := errStyle
	if kind == services.KindUserRejected {
		style = warnStyle
	}
	lines := []string{
		titleStyle.Render("UniswapX order"),
		row("status", style.Render(kind.String())),
		row("reason", err.Error()),
	}
	var subErr *client.SubmissionError
	if errors.As(err, &subErr) && subErr.StatusCode != 0 {
		lines = append(lines, row("http", fmt.Sprintf("%d", subErr.StatusCode)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderJournal(entries []orderjournal.Entry) string {
	if len(entries) == 0 {
		return warnStyle.Render("no orders recorded")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d order(s)", len(entries))))
	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s  %s  chain=%d deadline=%d attempts=%d quote=%s",
			e.SubmittedAt.Local().Format("01-02 15:04:05"), e.OrderHash, e.ChainID, e.Deadline, e.Attempts, e.QuoteID))
	}
	return b.String()
}
