package backtester

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// WriteOutputs writes every table of a run in dir, each file prefixed by name without spaces:
// prices, signal, action, shares, holdings, evolution (pnl) and trade history.
func WriteOutputs(dir, name string, prices *PriceTable, res *Result, ledger *Ledger) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create output directory %q: %w", dir, err)
	}
	prefix := strings.ReplaceAll(name, " ", "")

	write := func(suffix string, encode func(io.Writer) error) error {
		p := filepath.Join(dir, prefix+suffix)
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("error opening %q for writing: %w", p, err)
		}
		if err := encode(f); err != nil {
			f.Close()
			return fmt.Errorf("error writing %q: %w", p, err)
		}
		log.WithField("file", p).Debug("output written")
		return f.Close()
	}

	intents := res.Intents
	steps := []struct {
		suffix string
		encode func(io.Writer) error
	}{
		{"_prices.csv", func(w io.Writer) error { return EncodePriceTable(w, prices) }},
		{"_tsignal.csv", func(w io.Writer) error {
			return writeMatrix(w, intents.Frame, func(i, j int) string { return intents.Signal[i][j].String() })
		}},
		{"_taction.csv", func(w io.Writer) error {
			return writeMatrix(w, intents.Frame, func(i, j int) string { return intents.Action[i][j].String() })
		}},
		{"_shares.csv", func(w io.Writer) error {
			return writeMatrix(w, intents.Frame, func(i, j int) string { return decimalCell(intents.Shares[i][j]) })
		}},
		{"_holding.csv", func(w io.Writer) error { return EncodeHoldings(w, res) }},
		{"_pnl.csv", func(w io.Writer) error { return EncodeEvolution(w, res.Evolution) }},
		{"_trade_history.csv", func(w io.Writer) error { return EncodeTradeHistory(w, ledger) }},
	}
	for _, s := range steps {
		if err := write(s.suffix, s.encode); err != nil {
			return err
		}
	}
	return nil
}
