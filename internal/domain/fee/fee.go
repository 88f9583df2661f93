// Package fee computes withdrawal fees.
package fee

import (
	"fmt"

	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Settings keys read by the fee resolver.
const (
	SettingWithdrawPercent = "withdraw_fee_percent"
	SettingWithdrawFixed   = "withdraw_fee_fixed"
)

// Policy is a percentage plus a fixed amount in major currency units.
type Policy struct {
	Percent decimal.Decimal `json:"percent"`
	Fixed   decimal.Decimal `json:"fixed"`
}

// ParsePolicy builds a Policy from decimal strings such as "8" and "2.00".
func ParsePolicy(percent, fixed string) (Policy, error) {
	p, err := decimal.NewFromString(percent)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid fee percent %q: %w", percent, err)
	}
	f, err := decimal.NewFromString(fixed)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid fixed fee %q: %w", fixed, err)
	}
	return Policy{Percent: p, Fixed: f}, nil
}

func (p Policy) String() string {
	return fmt.Sprintf("%s%% + %s", p.Percent.String(), p.Fixed.StringFixed(2))
}

// Breakdown is the result of applying a Policy to a gross amount.
type Breakdown struct {
	Amount    int64 `json:"amount"`
	FeeAmount int64 `json:"fee_amount"`
	NetAmount int64 `json:"net_amount"`
}

// Compute returns fee = round(amount*percent/100) + round(fixed*100) and net = amount - fee.
// It fails with a ValidationError when the net is not positive or below minNet.
func Compute(amount int64, p Policy, minNet int64) (Breakdown, error) {
	if amount <= 0 {
		return Breakdown{}, shared.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	fee := shared.PercentOf(amount, p.Percent) + shared.ToMinorUnits(p.Fixed)
	net := amount - fee

	if net <= 0 {
		return Breakdown{}, shared.ValidationError{Field: "amount", Reason: "net amount after fees must be positive"}
	}
	if net < minNet {
		return Breakdown{}, shared.ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("net amount %d is below the minimum of %d cents", net, minNet),
		}
	}

	return Breakdown{Amount: amount, FeeAmount: fee, NetAmount: net}, nil
}
