package discount

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// BankCardConfig configures a bank card discount rule.
type BankCardConfig struct {
	// Bank is matched against the payment's bank name, ignoring case. Required.
	Bank string
	// Percentage is the discount applied to the eligible amount, in [0, 100].
	Percentage decimal.Decimal
	// MinCartAmount gates the rule on the eligible amount. Zero disables the check.
	MinCartAmount decimal.Decimal
	// EligibleCategories restricts the eligible amount to these categories
	// when non-empty.
	EligibleCategories []string

	Validator ValidatorFunc
	OnApplied AppliedFunc
}

// BankCardStrategy discounts carts paid by card through a specific bank.
type BankCardStrategy struct {
	cfg BankCardConfig
}

var _ Strategy = (*BankCardStrategy)(nil)

// NewBankCardStrategy validates the configuration and builds the strategy.
func NewBankCardStrategy(cfg BankCardConfig) (*BankCardStrategy, error) {
	if cfg.Bank == "" {
		return nil, errors.New("bank card strategy: bank is required")
	}
	if err := validatePercentage(cfg.Percentage); err != nil {
		return nil, errors.Wrap(err, "bank card strategy")
	}
	if err := validateAmount("minimum cart amount", cfg.MinCartAmount); err != nil {
		return nil, errors.Wrap(err, "bank card strategy")
	}
	return &BankCardStrategy{cfg: cfg}, nil
}

func (s *BankCardStrategy) matches(item CartItem) bool {
	if len(s.cfg.EligibleCategories) == 0 {
		return true
	}
	return containsFold(s.cfg.EligibleCategories, item.Product.Category)
}

// Validate requires a card payment through the configured bank.
func (s *BankCardStrategy) Validate(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (bool, error) {
	if payment == nil || payment.Method != PaymentMethodCard {
		return false, nil
	}
	if !strings.EqualFold(payment.BankName, s.cfg.Bank) {
		return false, nil
	}

	eligible := eligibleAmount(items, s.matches)
	if eligible.IsZero() {
		return false, nil
	}
	if s.cfg.MinCartAmount.IsPositive() && eligible.LessThan(s.cfg.MinCartAmount) {
		return false, nil
	}

	if s.cfg.Validator != nil {
		return s.cfg.Validator(ctx, items, customer, payment)
	}
	return true, nil
}

// CalculateDiscount returns the percentage of the eligible live total, or
// zero when the rule does not apply.
func (s *BankCardStrategy) CalculateDiscount(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, nil
	}
	ok, err := s.Validate(ctx, items, customer, payment)
	if err != nil || !ok {
		return decimal.Zero, err
	}

	amount := percentageOf(eligibleAmount(items, s.matches), s.cfg.Percentage)
	if amount.IsPositive() && s.cfg.OnApplied != nil {
		s.cfg.OnApplied(amount, s.Name())
	}
	return amount, nil
}

// Name returns the deterministic display name, e.g.
// "Bank Card Discount - ICICI (10%)".
func (s *BankCardStrategy) Name() string {
	return fmt.Sprintf("Bank Card Discount - %s (%s%%)", s.cfg.Bank, s.cfg.Percentage)
}

// Priority ranks bank card rules last.
func (s *BankCardStrategy) Priority() int { return PriorityBankCard }
