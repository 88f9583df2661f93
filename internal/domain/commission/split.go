// Package commission partitions checkout amounts between seller and affiliate.
package commission

import (
	"github.com/pix-settlement-ledger/internal/domain/catalog"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Split is the seller and affiliate share of a gross sale, in cents.
type Split struct {
	Gross     int64 `json:"gross"`
	Seller    int64 `json:"seller"`
	Affiliate int64 `json:"affiliate"`
}

var maxRate = decimal.NewFromInt(100)

// Calculate returns affiliate = round(gross*rate/100) and seller = gross - affiliate.
func Calculate(gross int64, rate decimal.Decimal) (Split, error) {
	if gross <= 0 {
		return Split{}, shared.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if rate.IsNegative() || rate.GreaterThan(maxRate) {
		return Split{}, shared.ErrInvalidSplit
	}

	affiliate := shared.PercentOf(gross, rate)
	seller := gross - affiliate
	if seller < 0 {
		return Split{}, shared.ErrInvalidSplit
	}
	return Split{Gross: gross, Seller: seller, Affiliate: affiliate}, nil
}

// SellerOnly is the split of a sale without an eligible affiliate.
func SellerOnly(gross int64) Split {
	return Split{Gross: gross, Seller: gross}
}

// Eligible reports whether an affiliation earns commission: it must be APPROVED, or the
// listing must be OPEN and the affiliation neither REJECTED nor BLOCKED.
func Eligible(listing *catalog.Listing, aff *catalog.Affiliation) bool {
	if listing == nil || aff == nil || aff.ProductID != listing.ProductID {
		return false
	}
	switch aff.Status {
	case catalog.AffiliationApproved:
		return true
	case catalog.AffiliationRejected, catalog.AffiliationBlocked:
		return false
	}
	return listing.Policy == catalog.PolicyOpen
}
