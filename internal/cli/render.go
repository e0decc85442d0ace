package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/seed"
	"github.com/set-night/invoicedesk/internal/service"
)

var (
	accent  = lipgloss.Color("#2563EB") // blue
	fg      = lipgloss.Color("#E5E7EB")
	dim     = lipgloss.Color("#6B7280")
	faint   = lipgloss.Color("#3F3F46")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	headStyle     = lipgloss.NewStyle().Bold(true).Foreground(fg)
	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	valueStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	overdueStyle  = lipgloss.NewStyle().Foreground(danger)
	skipStyle     = lipgloss.NewStyle().Foreground(warning)
	separatorLine = lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("─", 56))

	statusStyles = map[domain.InvoiceStatus]lipgloss.Style{
		domain.InvoiceStatusDraft:   lipgloss.NewStyle().Foreground(dim),
		domain.InvoiceStatusPending: lipgloss.NewStyle().Foreground(warning),
		domain.InvoiceStatusPaid:    lipgloss.NewStyle().Foreground(success),
		domain.InvoiceStatusVoid:    lipgloss.NewStyle().Foreground(faint),
	}
)

// RenderSeedResult formats the per-table insert counts of a seed run.
func RenderSeedResult(path string, res *seed.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("seed") + " " + dimStyle.Render(path) + "\n")
	b.WriteString(separatorLine + "\n")

	rows := []struct {
		name string
		c    seed.Counts
	}{
		{"customers", res.Customers},
		{"invoices", res.Invoices},
		{"payments", res.Payments},
	}
	for _, r := range rows {
		line := fmt.Sprintf("  %-10s %s inserted", r.name, valueStyle.Render(fmt.Sprintf("%4d", r.c.Inserted)))
		if r.c.Skipped > 0 {
			line += "  " + skipStyle.Render(fmt.Sprintf("%d skipped", r.c.Skipped))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderReport formats a summary as one block per currency.
func RenderReport(s *service.Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("invoice report"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  as of %s, %d invoices", s.AsOf.Format("2006-01-02 15:04 MST"), s.Invoices)))
	b.WriteString("\n")

	if len(s.Currencies) == 0 {
		b.WriteString(separatorLine + "\n")
		b.WriteString(dimStyle.Render("  no invoices") + "\n")
		return b.String()
	}

	for _, c := range s.Currencies {
		b.WriteString(separatorLine + "\n")
		b.WriteString(headStyle.Render(c.Currency) + "\n")
		for _, st := range c.ByStatus {
			style, ok := statusStyles[st.Status]
			if !ok {
				style = dimStyle
			}
			b.WriteString("  " + style.Render(fmt.Sprintf("%-11s", st.Status)) + fmt.Sprintf(" %5d %15s\n", st.Count, st.Amount.StringFixed(2)))
		}
		b.WriteString(fmt.Sprintf("  %-11s %5s %15s\n", "collected", "", c.Collected.StringFixed(2)))
		b.WriteString(fmt.Sprintf("  %-11s %5s %15s\n", "outstanding", "", c.Outstanding.StringFixed(2)))
		if c.OverdueCount > 0 {
			b.WriteString(overdueStyle.Render(fmt.Sprintf("  %-11s %5d %15s", "overdue", c.OverdueCount, c.Overdue.StringFixed(2))) + "\n")
		}
	}
	return b.String()
}
