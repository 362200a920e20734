package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/swingops/backtest"
	"github.com/rustyeddy/swingops/config"
	"github.com/rustyeddy/swingops/market"
	"github.com/rustyeddy/swingops/profile"
)

// loadDataset reads candle history for every configured asset, the context
// tickers the profiles reference, and the optional event calendar.
func loadDataset(cfg *config.Config, resolver *profile.Resolver) (backtest.Dataset, error) {
	data := backtest.Dataset{
		Assets:  make(map[string][]market.Candle),
		Context: make(map[string][]market.Candle),
	}

	for _, asset := range resolver.Assets() {
		candles, err := backtest.LoadCandlesCSV(filepath.Join(cfg.Data.CandleDir, asset+".csv"))
		if err != nil {
			return backtest.Dataset{}, fmt.Errorf("load candles for %s: %w", asset, err)
		}
		data.Assets[asset] = candles
	}

	for _, ticker := range contextTickers(resolver) {
		candles, err := backtest.LoadCandlesCSV(filepath.Join(cfg.Data.ContextDir, ticker+".csv"))
		if err != nil {
			return backtest.Dataset{}, fmt.Errorf("load context series %s: %w", ticker, err)
		}
		data.Context[ticker] = candles
	}

	if cfg.Data.EventsFile != "" {
		events, err := loadEvents(cfg.Data.EventsFile)
		if err != nil {
			return backtest.Dataset{}, err
		}
		data.Events = events
	}

	return data, nil
}

// contextTickers collects every market-level series the profiles need: the
// VIX when any profile arms the panic guard, plus regime indices and
// benchmarks.
func contextTickers(resolver *profile.Resolver) []string {
	seen := map[string]bool{}
	var out []string
	add := func(ticker string) {
		if ticker != "" && !seen[ticker] {
			seen[ticker] = true
			out = append(out, ticker)
		}
	}
	for _, asset := range resolver.Assets() {
		p, err := resolver.Resolve(asset)
		if err != nil {
			continue
		}
		if p.VIXGuard {
			add("VIX")
		}
		add(p.RegimeIndex)
		add(p.Benchmark)
	}
	return out
}

// loadEvents reads the event calendar: a YAML map of asset to day
// ("2006-01-02") to days-until-event.
func loadEvents(path string) (map[string]map[string]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	events := make(map[string]map[string]int)
	if err := yaml.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("parse events file: %w", err)
	}
	return events, nil
}
