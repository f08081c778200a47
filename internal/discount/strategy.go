package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Strategy priorities. Lower values apply earlier. Brand and category rules
// share a rank; ties keep registration order.
const (
	PriorityBrandCategory = 1
	PriorityVoucher       = 2
	PriorityBankCard      = 3
)

var hundred = decimal.NewFromInt(100)

// Strategy is one discount rule. Implementations are stateless with respect
// to cart data: a strategy is built once and reused across calculations.
//
// Validate reports whether the rule's preconditions hold against the current,
// possibly already-discounted cart state. CalculateDiscount returns the
// amount to subtract from the running total; it returns zero when Validate
// fails or the cart is empty.
type Strategy interface {
	Validate(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (bool, error)
	CalculateDiscount(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (decimal.Decimal, error)
	Name() string
	Priority() int
}

// ValidatorFunc is an externally supplied precondition hook, checked in
// addition to a strategy's built-in rules. Used for custom business checks
// such as a database-backed voucher lookup.
type ValidatorFunc func(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (bool, error)

// AppliedFunc is an audit callback invoked by a strategy after it computes a
// positive discount. It must not affect control flow.
type AppliedFunc func(amount decimal.Decimal, name string)

// validatePercentage rejects percentages outside [0, 100].
func validatePercentage(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return errors.Errorf("discount percentage must be between 0 and 100, got %s", p)
	}
	return nil
}

// validateAmount rejects negative optional amounts (minimum cart amount,
// discount cap). Zero means "not configured".
func validateAmount(field string, a decimal.Decimal) error {
	if a.IsNegative() {
		return errors.Errorf("%s must not be negative, got %s", field, a)
	}
	return nil
}

// percentageOf returns p percent of amount, rounded half-up to 2 decimal
// places.
func percentageOf(amount, p decimal.Decimal) decimal.Decimal {
	return amount.Mul(p).Div(hundred).Round(2)
}

// tierAllowed checks a customer tier allow-list. An empty list allows all.
func tierAllowed(tiers []string, customer *Customer) bool {
	if len(tiers) == 0 {
		return true
	}
	return customer != nil && containsFold(tiers, customer.Tier)
}

// stillValid checks an optional expiry instant.
func stillValid(validUntil *time.Time, now time.Time) bool {
	return validUntil == nil || now.Before(*validUntil)
}
