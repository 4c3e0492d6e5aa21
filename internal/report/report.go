// Package report renders runs for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/engine"
	"github.com/talgya/finsim/internal/money"
	"github.com/talgya/finsim/internal/persistence"
	"github.com/talgya/finsim/internal/runs"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	mutedStyle = lipgloss.NewStyle().Foreground(ColorTextMuted)
	goodStyle  = lipgloss.NewStyle().Foreground(ColorGreen)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorOrange)
	badStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

// Title renders a centered title bar in a bordered box.
func Title(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

// Table renders a bordered table. Columns after the first are right
// aligned.
func Table(title string, headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cellStyle
			if row == table.HeaderRow {
				s = s.Inherit(headerStyle)
			}
			if col > 0 {
				s = s.Align(lipgloss.Right)
			}
			return s
		})

	var b strings.Builder
	if title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(title))
		b.WriteString("\n")
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// State writes a run's current month: both ledgers side by side, the open
// offers and the guru's preview.
func State(w io.Writer, st *runs.State) {
	fmt.Fprintln(w, Title(fmt.Sprintf("RUN %s  ·  %s", st.Run.ID, engine.Calendar(st.Month.Month))))
	fmt.Fprintf(w, "  mode %s  ·  %s  ·  %s\n\n", st.Run.Mode, status(st.Run), horizon(st.Run))

	fmt.Fprint(w, Comparison(st.Month.Player, st.Month.Guru))
	if len(st.Month.Offers) > 0 {
		fmt.Fprint(w, Offers(st.Month.Offers))
	}
	if len(st.GuruPreview) > 0 {
		fmt.Fprintf(w, "  %s\n", headerStyle.Render("Guru is thinking"))
		for _, line := range st.GuruPreview {
			fmt.Fprintf(w, "    %s %s\n", mutedStyle.Render("•"), line)
		}
		fmt.Fprintln(w)
	}
}

func status(r persistence.Run) string {
	if r.Status == persistence.RunFinished {
		return warnStyle.Render("finished")
	}
	if r.Autopilot {
		return goodStyle.Render("active (autopilot)")
	}
	return goodStyle.Render("active")
}

func horizon(r persistence.Run) string {
	if r.Horizon == 0 {
		return "open-ended"
	}
	return fmt.Sprintf("month %d of %d", r.Month, r.Horizon)
}

// Comparison renders the player and guru ledgers side by side.
func Comparison(player, guru *agents.Snapshot) string {
	loan := func(s *agents.Snapshot) string {
		if s.VehicleLoan == nil {
			return "-"
		}
		return fmt.Sprintf("%s (%dmo)", s.VehicleLoan.RemainingBalance, s.VehicleLoan.RemainingMonths)
	}
	revolving := func(s *agents.Snapshot) string {
		return fmt.Sprintf("%s / %s", s.Revolving.Balance, s.Revolving.Limit)
	}

	rows := [][]string{
		{"Cash", player.Cash.String(), guru.Cash.String()},
		{"Net worth", signed(player.NetWorth()), signed(guru.NetWorth())},
		{"Income", player.MonthlyIncome.String(), guru.MonthlyIncome.String()},
		{"Living expenses", player.LivingExpenses.String(), guru.LivingExpenses.String()},
		{"Subscriptions", recurring(player), recurring(guru)},
		{"Revolving", revolving(player), revolving(guru)},
		{"Vehicle loan", loan(player), loan(guru)},
		{"Lifetime interest", player.LifetimeInterest.String(), guru.LifetimeInterest.String()},
		{"Credit score", score(player.CreditScore), score(guru.CreditScore)},
		{"Stress", percent(player.Stress), percent(guru.Stress)},
		{"Happiness", percent(player.Happiness), percent(guru.Happiness)},
		{"Health", percent(player.Health), percent(guru.Health)},
		{"Purchases", humanize.Comma(int64(len(player.Purchases))), humanize.Comma(int64(len(guru.Purchases)))},
	}
	return Table("Ledger", []string{"", "You", "Guru"}, rows)
}

func recurring(s *agents.Snapshot) string {
	if len(s.Subscriptions) == 0 {
		return "-"
	}
	return fmt.Sprintf("%d · %s/mo", len(s.Subscriptions), s.RecurringTotal())
}

func signed(c money.Cents) string {
	if c < 0 {
		return badStyle.Render(c.String())
	}
	return c.String()
}

func score(v int) string {
	switch {
	case v >= 740:
		return goodStyle.Render(fmt.Sprint(v))
	case v < 580:
		return badStyle.Render(fmt.Sprint(v))
	}
	return fmt.Sprint(v)
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

// Offers renders a month's offers.
func Offers(offers []economy.Offer) string {
	rows := make([][]string, 0, len(offers))
	for _, o := range offers {
		cost := o.Cost.String()
		if o.Recurring() {
			cost += "/mo"
		}
		name := o.Name
		if o.Icon != "" {
			name = o.Icon + " " + name
		}
		rows = append(rows, []string{o.ID, name, string(o.Kind), o.Category, cost})
	}
	return Table("Offers", []string{"ID", "Offer", "Kind", "Category", "Cost"}, rows)
}

// History writes one row per recorded month.
func History(w io.Writer, months []persistence.MonthRecord) {
	rows := make([][]string, 0, len(months))
	for _, m := range months {
		rows = append(rows, []string{
			fmt.Sprint(m.Month),
			m.Player.Cash.String(),
			signed(m.Player.NetWorth()),
			fmt.Sprint(m.Player.CreditScore),
			m.Guru.Cash.String(),
			signed(m.Guru.NetWorth()),
			fmt.Sprint(m.Guru.CreditScore),
		})
	}
	fmt.Fprint(w, Table("History", []string{"Month", "Cash", "Net worth", "Score", "Guru cash", "Guru net", "Guru score"}, rows))
	if len(months) > 1 {
		fmt.Fprintln(w, Verdict(months[len(months)-1]))
	}
}

// Verdict compares the player's and guru's net worth at a month.
func Verdict(m persistence.MonthRecord) string {
	p, g := m.Player.NetWorth(), m.Guru.NetWorth()
	gap := p - g
	switch {
	case gap > 0:
		return "  " + goodStyle.Render(fmt.Sprintf("You are ahead of the guru by %s after %d months.", gap, m.Month))
	case gap < 0:
		return "  " + warnStyle.Render(fmt.Sprintf("The guru is ahead of you by %s after %d months.", -gap, m.Month))
	}
	return "  " + mutedStyle.Render(fmt.Sprintf("You and the guru are level after %d months.", m.Month))
}

// Events writes a month's events.
func Events(w io.Writer, events []engine.Event) {
	for _, ev := range events {
		style := mutedStyle
		if ev.Category == "skipped" || ev.Category == "credit" {
			style = warnStyle
		}
		fmt.Fprintf(w, "  %-6s %-12s %s\n", ev.Actor, style.Render(ev.Category), ev.Description)
	}
}

// Runs writes the run list. Ages are relative to now.
func Runs(w io.Writer, list []persistence.Run, now time.Time) {
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		rows = append(rows, []string{
			r.ID,
			r.Mode,
			string(r.Status),
			horizon(r),
			humanize.RelTime(r.UpdatedAt, now, "ago", "from now"),
		})
	}
	fmt.Fprint(w, Table("Runs", []string{"ID", "Mode", "Status", "Progress", "Updated"}, rows))
}

// Replay writes a replay report.
func Replay(w io.Writer, r *runs.ReplayReport) {
	if r.Consistent() {
		fmt.Fprintf(w, "  %s %s months of run %s reproduce exactly\n",
			goodStyle.Render("✓"), humanize.Comma(int64(r.Months)), r.RunID)
		return
	}
	fmt.Fprintf(w, "  %s run %s diverged in %s places\n",
		badStyle.Render("✗"), r.RunID, humanize.Comma(int64(len(r.Divergences))))
	for _, d := range r.Divergences {
		fmt.Fprintf(w, "    month %d: %s\n", d.Month, d.Field)
	}
}
