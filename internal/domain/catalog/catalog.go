// Package catalog holds the read-only product data the ledger needs at checkout.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AffiliationPolicy controls whether affiliates need approval to earn commission.
type AffiliationPolicy string

const (
	PolicyOpen     AffiliationPolicy = "OPEN"
	PolicyApproval AffiliationPolicy = "APPROVAL"
)

// AffiliationStatus is the review state of an affiliate for a product.
type AffiliationStatus string

const (
	AffiliationPending  AffiliationStatus = "PENDING"
	AffiliationApproved AffiliationStatus = "APPROVED"
	AffiliationRejected AffiliationStatus = "REJECTED"
	AffiliationBlocked  AffiliationStatus = "BLOCKED"
)

type Product struct {
	ID       uuid.UUID `json:"id"`
	SellerID uuid.UUID `json:"seller_id"`
	Name     string    `json:"name"`
	Price    int64     `json:"price"` // cents
	Active   bool      `json:"active"`
}

// Listing is the marketplace offer of a product to affiliates.
type Listing struct {
	ProductID      uuid.UUID         `json:"product_id"`
	CommissionRate decimal.Decimal   `json:"commission_rate"` // percent, 0..100
	Policy         AffiliationPolicy `json:"policy"`
}

type Affiliation struct {
	ID              uuid.UUID         `json:"id"`
	ProductID       uuid.UUID         `json:"product_id"`
	AffiliateUserID uuid.UUID         `json:"affiliate_user_id"`
	RefCode         string            `json:"ref_code"`
	Status          AffiliationStatus `json:"status"`
}

// Repository reads products, listings and affiliations. Missing listings or
// affiliations are returned as nil without error.
type Repository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetListing(ctx context.Context, productID uuid.UUID) (*Listing, error)
	GetAffiliationByRef(ctx context.Context, productID uuid.UUID, refCode string) (*Affiliation, error)
}
