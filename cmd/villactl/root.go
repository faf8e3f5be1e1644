package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"villa_dnft/internal/adapters/observability"
	"villa_dnft/internal/adapters/sui"
	"villa_dnft/internal/adapters/wallet"
	"villa_dnft/internal/app"
	"villa_dnft/internal/domain"
	"villa_dnft/internal/shared"
)

var (
	flagSender string
	flagSubmit bool
)

var rootCmd = &cobra.Command{
	Use:           "villactl",
	Short:         "Build and inspect villa NFT transactions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = shared.Load()
		log.Logger = observability.NewLogger("dev", cfg.LogFile)
	},
}

var cfg shared.Config

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSender, "sender", "", "acting account (defaults to the wallet bridge account)")
	rootCmd.AddCommand(buildCmd, listCmd)
}

// services wires the same collaborators as the API. The wallet bridge is
// only required to submit.
func services() (*app.CommandService, *app.RefreshService, error) {
	var (
		accounts domain.AccountProvider
		opts     = []sui.Option{sui.WithGasBudget(cfg.GasBudget)}
	)
	if cfg.WalletURL != "" {
		br, err := wallet.New(cfg.WalletURL)
		if err != nil {
			return nil, nil, err
		}
		accounts = br
		opts = append(opts, sui.WithSigner(br))
	}
	chain, err := sui.New(cfg.SuiRPCURL, cfg.SuiRPS, opts...)
	if err != nil {
		return nil, nil, err
	}
	contract := cfg.Contract
	refresh := app.NewRefreshService(chain, nil, &contract, cfg.CacheTTL)
	return app.NewCommandService(app.NewBuilder(&contract), chain, accounts, nil, refresh), refresh, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runOp prints the built call, or the receipt with --submit.
func runOp(ctx context.Context, op app.Operation) error {
	cmds, _, err := services()
	if err != nil {
		return err
	}
	if !flagSubmit {
		call, err := cmds.Preview(ctx, op, flagSender)
		if err != nil {
			return err
		}
		return printJSON(call)
	}
	rec, err := cmds.Submit(ctx, op, flagSender)
	if err != nil {
		if rec.EventID != "" {
			_ = printJSON(rec)
		}
		return fmt.Errorf("%s: %w", app.OpName(op), err)
	}
	return printJSON(rec)
}
