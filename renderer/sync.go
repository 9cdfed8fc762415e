package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/costbasis"
)

// SyncMarkdown renders the outcome of a sync run, one row per account.
func SyncMarkdown(reports []costbasis.SyncReport) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Sync\n\n")
	if len(reports) == 0 {
		fmt.Fprintln(&b, "No account to sync.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Account | Broker | Ingested | Duplicates | Dropped | Rejected | Cursor |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|:---|")
	var ingested int
	for _, r := range reports {
		cursor := timestamp(r.Cursor)
		if r.Advanced {
			cursor += " (new)"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d | %s |\n",
			r.AccountID, r.Broker.Label(), r.Ingested, r.Duplicates, r.Dropped, r.Rejected, cursor)
		ingested += r.Ingested
	}
	fmt.Fprintf(&b, "\n%d new transaction(s) across %d account(s).\n", ingested, len(reports))
	return b.String()
}
