package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/swingops/alert"
	"github.com/rustyeddy/swingops/arbiter"
	"github.com/rustyeddy/swingops/backtest"
	"github.com/rustyeddy/swingops/config"
	"github.com/rustyeddy/swingops/internal/metrics"
	"github.com/rustyeddy/swingops/profile"
	"github.com/rustyeddy/swingops/score"
)

func newBacktestCmd(rc *RootConfig) *cobra.Command {
	var startingBalance float64

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the configured dataset through the decision engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(rc.ConfigPath)
			if err != nil {
				return err
			}
			if startingBalance > 0 {
				cfg.Account.Balance = startingBalance
			}

			resolver := profile.NewResolver(cfg.Profiles)
			for _, asset := range resolver.Invalid() {
				log.Warn().Str("asset", asset).Msg("profile invalid, asset disabled")
			}

			timeout, err := cfg.ScoringTimeout()
			if err != nil {
				return err
			}
			scorer := score.NewAdapter(score.NewHTTPScorer(cfg.Scoring.URL, timeout)).WithTimeout(timeout)

			var veto arbiter.Veto
			if cfg.Veto.URL != "" {
				vetoTimeout, err := cfg.VetoTimeout()
				if err != nil {
					return err
				}
				veto = score.NewHTTPVeto(cfg.Veto.URL, vetoTimeout)
			}

			ledger, err := cfg.BuildJournal()
			if err != nil {
				return err
			}
			defer ledger.Close()

			if rc.MetricsAddr != "" {
				srv := metrics.Serve(rc.MetricsAddr)
				defer srv.Close()
			}

			data, err := loadDataset(cfg, resolver)
			if err != nil {
				return err
			}

			sink := metrics.CountingSink{Next: alert.NewLogSink(log.Logger)}
			runner := backtest.NewRunner(resolver, scorer, veto, ledger, sink,
				cfg.Account.Balance, data, log.Logger)

			res, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			printResult(res, cfg.Account.Balance)
			return nil
		},
	}

	cmd.Flags().Float64Var(&startingBalance, "balance", 0, "Override the configured starting balance")
	return cmd
}

func printResult(res backtest.Result, startingBalance float64) {
	fmt.Printf("run: %s to %s (%d trading days)\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"), res.Days)
	fmt.Printf("equity: %.2f -> %.2f (balance %.2f)\n",
		startingBalance, res.FinalEquity, res.FinalBalance)
	fmt.Printf("trades: %d (%d wins / %d losses)\n", res.Trades, res.Wins, res.Losses)

	for _, s := range res.ByClass {
		fmt.Printf("  %-20s trades=%-4d win=%.0f%% avg-hold=%.1fd pl=%.2f expectancy=%.2f\n",
			s.Class, s.Trades, s.WinRate*100, s.AvgHoldDays, s.TotalPL, s.Expectancy)
	}

	fmt.Println("calibration:")
	for _, b := range res.Calibration {
		if b.Trades == 0 {
			continue
		}
		fmt.Printf("  p %.2f-%.2f: %d trades, avg p=%.2f, realized win=%.0f%%\n",
			b.Lo, b.Hi, b.Trades, b.AvgProb, b.WinRate*100)
	}
}

func newInitConfigCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file to the --config path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(rc.ConfigPath); err == nil {
				return fmt.Errorf("%s already exists", rc.ConfigPath)
			}
			if err := config.Default().SaveToFile(rc.ConfigPath); err != nil {
				return err
			}
			fmt.Println("wrote", rc.ConfigPath)
			return nil
		},
	}
}
