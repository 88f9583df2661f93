package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/catalog"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const (
	getProductQuery = `SELECT id, seller_id, name, price, active FROM products WHERE id = $1`

	getListingQuery = `SELECT product_id, commission_rate::text, policy FROM marketplace_listings WHERE product_id = $1`

	getAffiliationByRefQuery = `
		SELECT id, product_id, affiliate_user_id, ref_code, status
		FROM affiliations
		WHERE product_id = $1 AND ref_code = $2
	`
)

// CatalogRepository reads the product data needed at checkout.
type CatalogRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCatalogRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.Repository {
	return &CatalogRepository{querier: db.Pool(), logger: logger}
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	err := r.querier.QueryRow(ctx, getProductQuery, id).Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "product", Key: id.String()}
		}
		r.logger.Error("Failed to get product", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// GetListing returns nil when the product is not offered to affiliates.
func (r *CatalogRepository) GetListing(ctx context.Context, productID uuid.UUID) (*catalog.Listing, error) {
	var (
		l    catalog.Listing
		rate string
	)
	err := r.querier.QueryRow(ctx, getListingQuery, productID).Scan(&l.ProductID, &rate, &l.Policy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get marketplace listing", "product_id", productID.String(), "error", err)
		return nil, fmt.Errorf("failed to get marketplace listing: %w", err)
	}
	if l.CommissionRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("invalid commission rate %q: %w", rate, err)
	}
	return &l, nil
}

// GetAffiliationByRef returns nil when no affiliation uses refCode for the product.
func (r *CatalogRepository) GetAffiliationByRef(ctx context.Context, productID uuid.UUID, refCode string) (*catalog.Affiliation, error) {
	var a catalog.Affiliation
	err := r.querier.QueryRow(ctx, getAffiliationByRefQuery, productID, refCode).
		Scan(&a.ID, &a.ProductID, &a.AffiliateUserID, &a.RefCode, &a.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get affiliation", "product_id", productID.String(), "ref", refCode, "error", err)
		return nil, fmt.Errorf("failed to get affiliation: %w", err)
	}
	return &a, nil
}
