package costbasis

import (
	"strings"

	"github.com/etnz/costbasis/date"
)

// Scope restricts an aggregation. Every zero field means "any", so the zero
// Scope is global.
type Scope struct {
	AccountID string
	Broker    Broker
	Asset     string
	// Window restricts realized gains to those matched within the range.
	// Open lots are never windowed: they are held now.
	Window date.Range
}

// MatchLot reports whether l is in scope.
func (s Scope) MatchLot(l Lot) bool {
	return s.match(l.AccountID, l.Broker, l.Asset)
}

// MatchGain reports whether g is in scope.
func (s Scope) MatchGain(g Gain) bool {
	return s.match(g.AccountID, g.Broker, g.Asset) && s.Window.ContainsTime(g.MatchedAt)
}

func (s Scope) match(account string, broker Broker, asset string) bool {
	if s.AccountID != "" && s.AccountID != account {
		return false
	}
	if s.Broker != NoBroker && s.Broker != broker {
		return false
	}
	if s.Asset != "" && !strings.EqualFold(s.Asset, asset) {
		return false
	}
	return true
}

func (s Scope) lotQuery() LotQuery {
	return LotQuery{AccountID: s.AccountID, Asset: strings.ToUpper(s.Asset), OpenOnly: true}
}

func (s Scope) gainQuery() GainQuery {
	return GainQuery{AccountID: s.AccountID, Asset: strings.ToUpper(s.Asset)}
}
