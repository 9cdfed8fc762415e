package cmd

import (
	"flag"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
)

// scopeFlags are the flags shared by the reporting commands.
type scopeFlags struct {
	account string
	broker  string
	asset   string
}

func (s *scopeFlags) register(f *flag.FlagSet) {
	f.StringVar(&s.account, "account", "", "Restrict to one account")
	f.StringVar(&s.broker, "broker", "", "Restrict to one broker (coinbase, schwab)")
	f.StringVar(&s.asset, "asset", "", "Restrict to one asset, like BTC")
}

func (s *scopeFlags) scope(window string) (costbasis.Scope, error) {
	sc := costbasis.Scope{AccountID: s.account, Asset: s.asset}
	if s.broker != "" {
		b, err := costbasis.ParseBroker(s.broker)
		if err != nil {
			return sc, err
		}
		sc.Broker = b
	}
	w, err := date.ParseRange(window)
	if err != nil {
		return sc, err
	}
	sc.Window = w
	return sc, nil
}
