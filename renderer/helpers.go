package renderer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etnz/costbasis/date"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// windowTitle names a reporting window for titles.
func windowTitle(r date.Range) string {
	if r.IsZero() {
		return "All Time"
	}
	if _, ok := r.Period(); ok {
		return r.Identifier()
	}
	return fmt.Sprintf("%s to %s", r.From, r.To)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// missingBlock writes the assets that could not be priced, if any.
func missingBlock(w io.Writer, missing []string) {
	ConditionalBlock(w, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n> Partial: no price for %s.\n", strings.Join(missing, ", "))
		return len(missing) > 0
	})
}
