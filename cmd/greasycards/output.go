package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/greasycards/internal/simulator"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	cardStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

func printResults(w io.Writer, result *simulator.Result, logPath string) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Greasy cards: %d players, seed %d", result.Players, result.Seed)))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUND\tDEALER\tGREASY\tWINNER\tTURNS\tBAG")
	for _, r := range result.Rounds {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%d\n",
			r.Round+1,
			r.Dealer+1,
			cardStyle.Render(r.Target.String()),
			winStyle.Render(fmt.Sprintf("player %d", r.Winner+1)),
			len(r.Turns),
			r.BagLevel)
	}
	tw.Flush()

	fmt.Fprintln(w)
	for id, wins := range result.Wins() {
		fmt.Fprintf(w, "player %d: %d win(s)\n", id+1, wins)
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("chips left in bag: %d, game log: %s, took %s", result.FinalBag, logPath, result.Duration)))
}
