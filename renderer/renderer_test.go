package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// tables parses md as GitHub flavored markdown and returns the text of every
// table cell, table by table, row by row. Header rows are included.
func tables(t *testing.T, md string) [][][]string {
	t.Helper()
	source := []byte(md)
	parser := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()
	root := parser.Parse(text.NewReader(source))

	var all [][][]string
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *east.Table:
			all = append(all, nil)
		case *east.TableHeader, *east.TableRow:
			var row []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				row = append(row, cellText(c, source))
			}
			all[len(all)-1] = append(all[len(all)-1], row)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return all
}

func cellText(n ast.Node, source []byte) string {
	var b strings.Builder
	ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGainsMarkdown(t *testing.T) {
	gains := []costbasis.Gain{
		{TxID: "s1", AccountID: "acct", Asset: "BTC", Quantity: costbasis.Q("1.5"), Proceeds: costbasis.USD(450), CostBasisConsumed: costbasis.USD(200), Profit: costbasis.USD(250), MatchedAt: at("2025-06-03T10:00:00Z")},
		{TxID: "s2", AccountID: "acct", Asset: "ETH", Quantity: costbasis.Q(2), Proceeds: costbasis.USD(100), CostBasisConsumed: costbasis.USD(120), Profit: costbasis.USD(-20), MatchedAt: at("2025-06-04T09:30:00Z")},
	}
	md := GainsMarkdown(gains, date.NewRange(date.New(2025, 6, 1), date.Monthly))

	if !strings.HasPrefix(md, "# Realized Gains (2025-06)\n") {
		t.Errorf("unexpected title in:\n%s", md)
	}
	got := tables(t, md)
	if len(got) != 2 {
		t.Fatalf("got %d tables, want 2 (detail and per asset):\n%s", len(got), md)
	}
	detail := got[0]
	if len(detail) != 3 {
		t.Fatalf("detail has %d rows, want header + 2", len(detail))
	}
	want := []string{"2025-06-03 10:00", "acct", "BTC", "1.5", "$450.00", "$200.00", "+$250.00"}
	for i, cell := range want {
		if detail[1][i] != cell {
			t.Errorf("detail[1][%d] = %q, want %q", i, detail[1][i], cell)
		}
	}
	if detail[2][6] != "-$20.00" {
		t.Errorf("loss cell = %q, want -$20.00", detail[2][6])
	}
	if !strings.Contains(md, "Total realized: +$230.00") {
		t.Errorf("missing total in:\n%s", md)
	}
}

func TestGainsMarkdown_SingleAsset(t *testing.T) {
	gains := []costbasis.Gain{
		{TxID: "s1", AccountID: "acct", Asset: "BTC", Quantity: costbasis.Q(1), Proceeds: costbasis.USD(10), CostBasisConsumed: costbasis.USD(10), Profit: costbasis.USD(0), MatchedAt: at("2025-06-03T10:00:00Z")},
	}
	md := GainsMarkdown(gains, date.Range{})
	if got := tables(t, md); len(got) != 1 {
		t.Errorf("got %d tables, want only the detail table", len(got))
	}
	if !strings.Contains(md, "(All Time)") {
		t.Errorf("unexpected title in:\n%s", md)
	}
}

func TestGainsMarkdown_Empty(t *testing.T) {
	md := GainsMarkdown(nil, date.Range{})
	if len(tables(t, md)) != 0 {
		t.Errorf("empty report should not render a table:\n%s", md)
	}
}

func TestPositionsMarkdown(t *testing.T) {
	p := costbasis.Positions{
		Items: []costbasis.Position{
			{AccountID: "acct", Asset: "BTC", Quantity: costbasis.Q("0.5"), EffectiveCostBasis: costbasis.USD(100), UnrealizedGain: costbasis.USD(50), Priced: true, OpenedAt: at("2025-01-02T00:00:00Z")},
			{AccountID: "acct", Asset: "DOGE", Quantity: costbasis.Q(10), EffectiveCostBasis: costbasis.USD(1), OpenedAt: at("2025-01-03T00:00:00Z")},
		},
		Partial: true,
		Missing: []string{"DOGE"},
	}
	u := costbasis.Unrealized{Cost: costbasis.USD(100), Value: costbasis.USD(150), Gain: costbasis.USD(50), Partial: true, Missing: []string{"DOGE"}}

	md := PositionsMarkdown(p, u)
	got := tables(t, md)
	if len(got) != 2 {
		t.Fatalf("got %d tables, want 2:\n%s", len(got), md)
	}
	if cell := got[0][2][5]; cell != "n/a" {
		t.Errorf("unpriced position shows %q, want n/a", cell)
	}
	if row := got[1][1]; strings.Join(row, "|") != "$100.00|$150.00|+$50.00" {
		t.Errorf("unrealized row = %v", row)
	}
	if !strings.Contains(md, "Partial: no price for DOGE") {
		t.Errorf("missing partial note in:\n%s", md)
	}
}

func TestAverageEntryMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		entry costbasis.AverageEntry
		want  string
	}{
		{"position", costbasis.AverageEntry{Price: costbasis.USD(150), Quantity: costbasis.Q(2), Cost: costbasis.USD(300)}, "| 2 | $300.00 | $150.00 |"},
		{"none", costbasis.AverageEntry{NoPosition: true}, "No position."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := AverageEntryMarkdown("acct", "", tt.entry)
			if !strings.Contains(md, tt.want) {
				t.Errorf("AverageEntryMarkdown() =\n%s\nwant it to contain %q", md, tt.want)
			}
		})
	}
}

func TestSyncMarkdown(t *testing.T) {
	reports := []costbasis.SyncReport{
		{AccountID: "a1", Broker: costbasis.Coinbase, Ingested: 3, Dropped: 1, Cursor: at("2025-06-03T10:00:00Z"), Advanced: true},
		{AccountID: "a2", Broker: costbasis.Coinbase, Duplicates: 2},
	}
	md := SyncMarkdown(reports)
	got := tables(t, md)
	if len(got) != 1 || len(got[0]) != 3 {
		t.Fatalf("want one table with 2 accounts:\n%s", md)
	}
	if cell := got[0][1][6]; cell != "2025-06-03 10:00 (new)" {
		t.Errorf("cursor cell = %q", cell)
	}
	if got[0][2][6] != "-" {
		t.Errorf("never synced cursor = %q, want -", got[0][2][6])
	}
	if !strings.Contains(md, "3 new transaction(s) across 2 account(s).") {
		t.Errorf("missing summary in:\n%s", md)
	}
}
