package components

import (
	"log/slog"

	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/domain/catalog"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/outbox"
	"github.com/pix-settlement-ledger/internal/domain/settings"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
	"github.com/pix-settlement-ledger/internal/settlement/service"
)

// Repositories groups the stores the settlement services depend on.
type Repositories struct {
	Users       user.Repository
	Merchants   user.MerchantRepository
	Deposits    deposit.Repository
	Withdrawals withdrawal.Repository
	Ledger      ledger.Repository
	Outbox      outbox.Repository
	Settings    settings.Repository
	Catalog     catalog.Repository
}

// Services is the settlement engine as consumed by the HTTP gateway and the admin CLI.
type Services struct {
	Deposits    service.DepositService
	Withdrawals service.WithdrawalService
	Webhooks    service.WebhookService
	Approvals   service.ApprovalService
}

// CreateSettlementServices wires every settlement service with its components.
func CreateSettlementServices(
	txRunner persistence.TxRunner,
	repos Repositories,
	gateways service.Gateways,
	logger *slog.Logger,
	cfg *config.Config,
) (*Services, error) {
	fees, err := NewFeeResolver(repos.Settings, &cfg.Fees, logger.With("component", "fee_resolver"))
	if err != nil {
		return nil, err
	}
	balances := NewBalanceManager(repos.Users, logger.With("component", "balance_manager"))
	events := NewEventRecorder(repos.Outbox, logger.With("component", "event_recorder"))
	verifier := NewHMACVerifier(&cfg.Gateways)

	services := &Services{
		Deposits: service.NewDepositService(
			logger.With("component", "deposit_service"),
			txRunner,
			gateways,
			repos.Merchants,
			repos.Deposits,
			repos.Ledger,
			repos.Catalog,
		),
		Withdrawals: service.NewWithdrawalService(
			logger.With("component", "withdrawal_service"),
			txRunner,
			gateways,
			repos.Users,
			repos.Withdrawals,
			repos.Ledger,
			fees,
			balances,
			events,
			cfg.Fees.MinWithdrawNetCents,
		),
		Webhooks: service.NewWebhookService(
			logger.With("component", "webhook_service"),
			txRunner,
			verifier,
			repos.Deposits,
			repos.Withdrawals,
			repos.Ledger,
			balances,
			events,
		),
		Approvals: service.NewApprovalService(
			logger.With("component", "approval_service"),
			txRunner,
			gateways,
			repos.Users,
			repos.Deposits,
			repos.Withdrawals,
			repos.Ledger,
			balances,
			events,
		),
	}

	logger.Info("Created settlement services",
		"deposit_gateway", cfg.Gateways.DepositGateway,
		"withdrawal_gateway", cfg.Gateways.WithdrawalGateway,
	)
	return services, nil
}
