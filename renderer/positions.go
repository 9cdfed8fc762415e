package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/costbasis"
)

// PositionsMarkdown renders the open lots with their mark-to-market, and the
// unrealized totals of the same scope.
func PositionsMarkdown(p costbasis.Positions, u costbasis.Unrealized) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Active Positions\n\n")
	if len(p.Items) == 0 {
		fmt.Fprintln(&b, "No open position.")
	} else {
		fmt.Fprintln(&b, "| Opened | Account | Asset | Quantity | Cost Basis | Unrealized |")
		fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|")
		for _, pos := range p.Items {
			gain := "n/a"
			if pos.Priced {
				gain = pos.UnrealizedGain.SignedString()
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				timestamp(pos.OpenedAt),
				pos.AccountID,
				pos.Asset,
				pos.Quantity,
				pos.EffectiveCostBasis,
				gain,
			)
		}
	}

	fmt.Fprint(&b, "\n## Unrealized\n\n")
	fmt.Fprintln(&b, "| Cost | Market Value | Gain |")
	fmt.Fprintln(&b, "|---:|---:|---:|")
	fmt.Fprintf(&b, "| %s | %s | %s |\n", u.Cost, u.Value, u.Gain.SignedString())
	missingBlock(&b, u.Missing)
	return b.String()
}

// ClosedPositionsMarkdown renders fully realized sells.
func ClosedPositionsMarkdown(gains []costbasis.Gain) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Closed Positions\n\n")
	if len(gains) == 0 {
		fmt.Fprintln(&b, "No closed position.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Matched | Asset | Quantity | Profit |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|")
	for _, g := range gains {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", timestamp(g.MatchedAt), g.Asset, g.Quantity, g.Profit.SignedString())
	}
	return b.String()
}

// AverageEntryMarkdown renders the weighted average entry of an account.
func AverageEntryMarkdown(accountID, asset string, a costbasis.AverageEntry) string {
	var b strings.Builder
	title := accountID
	if asset != "" {
		title += " " + asset
	}
	fmt.Fprintf(&b, "# Average Entry for %s\n\n", title)
	if a.NoPosition {
		fmt.Fprintln(&b, "No position.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Quantity | Cost | Average Price |")
	fmt.Fprintln(&b, "|---:|---:|---:|")
	fmt.Fprintf(&b, "| %s | %s | %s |\n", a.Quantity, a.Cost, a.Price)
	return b.String()
}
