package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
)

// GainsMarkdown renders the realized gains of a window, one row per sell,
// followed by a per-asset summary.
func GainsMarkdown(gains []costbasis.Gain, window date.Range) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Realized Gains (%s)\n\n", windowTitle(window))
	if len(gains) == 0 {
		fmt.Fprintln(&b, "No sell in this period.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Date | Account | Asset | Quantity | Proceeds | Cost Basis | Profit |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|---:|")

	var assets []string
	perAsset := make(map[string]costbasis.Money)
	total := costbasis.USD(0)
	for _, g := range gains {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			timestamp(g.MatchedAt),
			g.AccountID,
			g.Asset,
			g.Quantity,
			g.Proceeds,
			g.CostBasisConsumed,
			g.Profit.SignedString(),
		)
		if _, ok := perAsset[g.Asset]; !ok {
			assets = append(assets, g.Asset)
			perAsset[g.Asset] = costbasis.USD(0)
		}
		perAsset[g.Asset] = perAsset[g.Asset].Add(g.Profit)
		total = total.Add(g.Profit)
	}

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Gains per Asset\n\n")
		fmt.Fprintln(w, "| Asset | Realized |")
		fmt.Fprintln(w, "|:---|---:|")
		for _, asset := range assets {
			fmt.Fprintf(w, "| %s | %s |\n", asset, perAsset[asset].SignedString())
		}
		// a single asset would repeat the total
		return len(assets) > 1
	})

	fmt.Fprintf(&b, "\n**Total realized: %s**\n", total.SignedString())
	return b.String()
}
