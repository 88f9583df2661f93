package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/catalog"
	"github.com/pix-settlement-ledger/internal/domain/commission"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/gateway"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
)

var externalIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// DepositServiceImpl implements the DepositService interface
type DepositServiceImpl struct {
	txRunner    persistence.TxRunner
	gateways    Gateways
	merchants   user.MerchantRepository
	depositRepo deposit.Repository
	ledgerRepo  ledger.Repository
	catalogRepo catalog.Repository
	logger      *slog.Logger
}

// NewDepositService creates a new deposit service
func NewDepositService(
	logger *slog.Logger,
	txRunner persistence.TxRunner,
	gateways Gateways,
	merchants user.MerchantRepository,
	depositRepo deposit.Repository,
	ledgerRepo ledger.Repository,
	catalogRepo catalog.Repository,
) DepositService {
	return &DepositServiceImpl{
		txRunner:    txRunner,
		gateways:    gateways,
		merchants:   merchants,
		depositRepo: depositRepo,
		ledgerRepo:  ledgerRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// CreateDeposit issues a merchant PIX charge. The provider is called first; no row is
// written when it fails.
func (s *DepositServiceImpl) CreateDeposit(ctx context.Context, in CreateDepositInput) (*deposit.Deposit, error) {
	log := logger.FromContext(ctx, s.logger)

	if in.Amount <= 0 {
		return nil, shared.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	merchant, err := s.merchants.GetByUserID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := merchant.Validate(); err != nil {
		log.Info("Merchant profile incomplete", "user_id", in.UserID.String())
		return nil, err
	}

	externalID, err := s.depositExternalID(ctx, in.ExternalID)
	if err != nil {
		return nil, err
	}

	payer := deposit.Payer{
		Name:     merchant.StoreName,
		Document: user.OnlyDigits(merchant.Document),
		Email:    merchant.Email,
	}

	adapter := s.gateways.ForDeposits()
	res, err := adapter.CreateDeposit(ctx, gateway.DepositRequest{
		Amount:      in.Amount,
		ExternalID:  externalID,
		Payer:       payer,
		CallbackURL: in.CallbackURL,
	})
	if err != nil {
		log.Error("Gateway rejected deposit",
			"user_id", in.UserID.String(),
			"external_id", externalID,
			"provider", string(adapter.Name()),
			"error", err,
		)
		return nil, err
	}

	merchantID := in.UserID
	d := newDeposit(in.UserID, externalID, in.Amount, in.Amount, payer, adapter.Name(), res)
	d.MerchantID = &merchantID

	if err := s.depositRepo.Create(ctx, d); err != nil {
		log.Error("Failed to persist deposit after gateway success",
			"external_id", externalID,
			"provider_transaction_id", res.ProviderTransactionID,
			"error", err,
		)
		return nil, err
	}

	log.Info("Deposit created",
		"deposit_id", d.ID.String(),
		"user_id", in.UserID.String(),
		"external_id", externalID,
		"amount", in.Amount,
	)
	return d, nil
}

// Checkout issues a charge for a product on behalf of a customer. The commission split
// is fixed now and recorded as PENDING SALE and COMMISSION entries.
func (s *DepositServiceImpl) Checkout(ctx context.Context, in CheckoutInput) (*deposit.Deposit, error) {
	log := logger.FromContext(ctx, s.logger)

	payer, err := validatePayer(in.Payer)
	if err != nil {
		return nil, err
	}

	product, err := s.catalogRepo.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, shared.ValidationError{Field: "product_id", Reason: "product is not available"}
	}

	split, affiliateID, err := s.resolveSplit(ctx, product, in.RefCode)
	if err != nil {
		return nil, err
	}

	externalID, err := s.depositExternalID(ctx, in.ExternalID)
	if err != nil {
		return nil, err
	}

	adapter := s.gateways.ForDeposits()
	res, err := adapter.CreateDeposit(ctx, gateway.DepositRequest{
		Amount:      split.Gross,
		ExternalID:  externalID,
		Payer:       payer,
		CallbackURL: in.CallbackURL,
	})
	if err != nil {
		log.Error("Gateway rejected checkout",
			"product_id", product.ID.String(),
			"external_id", externalID,
			"error", err,
		)
		return nil, err
	}

	productID := product.ID
	d := newDeposit(product.SellerID, externalID, split.Gross, split.Seller, payer, adapter.Name(), res)
	d.ProductID = &productID

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.depositRepo.WithTx(tx).Create(ctx, d); err != nil {
			return err
		}

		ledgerTx := s.ledgerRepo.WithTx(tx)
		sale := ledger.NewEntry(product.SellerID, shared.TransactionTypeSale, split.Seller, shared.TransactionStatusPending, externalID,
			map[string]any{
				"deposit_id":   d.ID.String(),
				"product_id":   product.ID.String(),
				"gross_amount": split.Gross,
			})
		if err := ledgerTx.Create(ctx, sale); err != nil {
			return err
		}

		if affiliateID != uuid.Nil && split.Affiliate > 0 {
			leg := ledger.NewEntry(affiliateID, shared.TransactionTypeCommission, split.Affiliate, shared.TransactionStatusPending, externalID,
				map[string]any{
					"deposit_id":   d.ID.String(),
					"product_id":   product.ID.String(),
					"ref_code":     in.RefCode,
					"gross_amount": split.Gross,
				})
			if err := ledgerTx.Create(ctx, leg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to persist checkout after gateway success",
			"external_id", externalID,
			"provider_transaction_id", res.ProviderTransactionID,
			"error", err,
		)
		return nil, err
	}

	log.Info("Checkout deposit created",
		"deposit_id", d.ID.String(),
		"product_id", product.ID.String(),
		"gross", split.Gross,
		"seller_amount", split.Seller,
		"affiliate_amount", split.Affiliate,
	)
	return d, nil
}

// GetDeposit retrieves a deposit by its ID
func (s *DepositServiceImpl) GetDeposit(ctx context.Context, id uuid.UUID) (*deposit.Deposit, error) {
	return s.depositRepo.GetByID(ctx, id)
}

// resolveSplit returns the split of the product price and the affiliate credited for it.
func (s *DepositServiceImpl) resolveSplit(ctx context.Context, product *catalog.Product, refCode string) (commission.Split, uuid.UUID, error) {
	refCode = strings.TrimSpace(refCode)
	if refCode == "" {
		return commission.SellerOnly(product.Price), uuid.Nil, nil
	}

	listing, err := s.catalogRepo.GetListing(ctx, product.ID)
	if err != nil {
		return commission.Split{}, uuid.Nil, err
	}
	aff, err := s.catalogRepo.GetAffiliationByRef(ctx, product.ID, refCode)
	if err != nil {
		return commission.Split{}, uuid.Nil, err
	}

	if !commission.Eligible(listing, aff) || aff.AffiliateUserID == product.SellerID {
		logger.FromContext(ctx, s.logger).Info("Affiliate not eligible for commission",
			"product_id", product.ID.String(),
			"ref_code", refCode,
		)
		return commission.SellerOnly(product.Price), uuid.Nil, nil
	}

	split, err := commission.Calculate(product.Price, listing.CommissionRate)
	if err != nil {
		return commission.Split{}, uuid.Nil, err
	}
	return split, aff.AffiliateUserID, nil
}

func validatePayer(p deposit.Payer) (deposit.Payer, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, shared.ValidationError{Field: "payer.name", Reason: "is required"}
	}
	p.Document = user.OnlyDigits(p.Document)
	if len(p.Document) != 11 && len(p.Document) != 14 {
		return p, shared.ValidationError{Field: "payer.document", Reason: "must be a CPF or CNPJ"}
	}
	p.Email = strings.TrimSpace(p.Email)
	return p, nil
}

func newDeposit(userID uuid.UUID, externalID string, amount, net int64, payer deposit.Payer, provider shared.Provider, res *gateway.DepositResult) *deposit.Deposit {
	now := time.Now().UTC()
	return &deposit.Deposit{
		ID:                    uuid.New(),
		ExternalID:            externalID,
		UserID:                userID,
		Provider:              provider,
		ProviderTransactionID: res.ProviderTransactionID,
		Amount:                amount,
		NetAmount:             net,
		Status:                deposit.StatusPending,
		PayerName:             payer.Name,
		PayerDocument:         payer.Document,
		PayerEmail:            payer.Email,
		QRCode:                res.QRCode,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// depositExternalID returns the caller's id when it is safe to correlate webhooks on, or a
// generated one. Webhooks resolve deposits by external id or provider transaction id
// before withdrawals, so a caller id must not shadow either.
func (s *DepositServiceImpl) depositExternalID(ctx context.Context, requested string) (string, error) {
	externalID := strings.TrimSpace(requested)
	if externalID == "" {
		return newDepositExternalID(), nil
	}
	if !externalIDPattern.MatchString(externalID) {
		return "", shared.ValidationError{Field: "external_id", Reason: "must be 1-64 letters, digits, '.', '_' or '-'"}
	}
	if strings.HasPrefix(strings.ToLower(externalID), withdrawal.ExternalIDPrefix) {
		return "", shared.ValidationError{Field: "external_id", Reason: "prefix " + withdrawal.ExternalIDPrefix + " is reserved for withdrawals"}
	}
	taken, err := s.depositRepo.CorrelationTaken(ctx, externalID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", shared.ValidationError{Field: "external_id", Reason: "already in use"}
	}
	return externalID, nil
}

func newDepositExternalID() string {
	return "dep_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// isNotFound reports whether err is a NotFoundError for entity.
func isNotFound(err error, entity string) bool {
	return errors.Is(err, shared.NotFoundError{Entity: entity})
}
