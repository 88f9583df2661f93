package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/data/postgres"
	"github.com/pix-settlement-ledger/internal/domain/settings"
	"github.com/pix-settlement-ledger/internal/gateway"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
	"github.com/pix-settlement-ledger/internal/settlement/components"
	"github.com/pix-settlement-ledger/internal/settlement/service"
	"github.com/spf13/cobra"
)

var Version = "dev"

// app holds what the operator commands act on.
type app struct {
	approvals service.ApprovalService
	fees      service.FeeResolver
	settings  settings.Repository
	close     func()
}

// appFactory builds the app once per invocation, after flags are parsed.
type appFactory func(ctx context.Context) (*app, error)

func main() {
	rootCmd := newRootCmd(buildApp, os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(build appFactory, out io.Writer) *cobra.Command {
	var current *app

	rootCmd := &cobra.Command{
		Use:           "settlement_admin",
		Short:         "Operator tooling for the PIX settlement ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Runnable() && cmd.HasParent() {
				a, err := build(cmd.Context())
				if err != nil {
					return err
				}
				current = a
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if current != nil && current.close != nil {
				current.close()
			}
		},
	}
	rootCmd.SetOut(out)

	get := func() *app { return current }
	rootCmd.AddCommand(withdrawalsCmd(get))
	rootCmd.AddCommand(depositsCmd(get))
	rootCmd.AddCommand(feesCmd(get))

	return rootCmd
}

// buildApp connects to Postgres and the providers the same way the API gateway does.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig("settlement_admin")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	repos := components.Repositories{
		Users:       postgres.NewUserRepository(log, postgresDB),
		Merchants:   postgres.NewMerchantRepository(log, postgresDB),
		Deposits:    postgres.NewDepositRepository(log, postgresDB),
		Withdrawals: postgres.NewWithdrawalRepository(log, postgresDB),
		Ledger:      postgres.NewTransactionRepository(log, postgresDB),
		Outbox:      postgres.NewOutboxRepository(log, postgresDB),
		Settings:    postgres.NewSettingsRepository(log, postgresDB),
		Catalog:     postgres.NewCatalogRepository(log, postgresDB),
	}

	gateways, err := gateway.NewRegistry(log, &cfg.Gateways)
	if err != nil {
		postgresDB.Close()
		return nil, fmt.Errorf("failed to initialize payment gateways: %w", err)
	}

	services, err := components.CreateSettlementServices(postgresDB, repos, gateways, log, cfg)
	if err != nil {
		postgresDB.Close()
		return nil, err
	}
	fees, err := components.NewFeeResolver(repos.Settings, &cfg.Fees, log.With("component", "fee_resolver"))
	if err != nil {
		postgresDB.Close()
		return nil, err
	}

	return &app{
		approvals: services.Approvals,
		fees:      fees,
		settings:  repos.Settings,
		close:     postgresDB.Close,
	}, nil
}

func adminIDFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("admin-id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--admin-id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --admin-id %q: %w", raw, err)
	}
	return id, nil
}

func idArg(args []string, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", what, args[0], err)
	}
	return id, nil
}
