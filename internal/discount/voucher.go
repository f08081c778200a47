package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// VoucherConfig configures a voucher code discount rule.
type VoucherConfig struct {
	// Code is the voucher code. Required.
	Code string
	// Percentage is the discount applied to the eligible amount, in [0, 100].
	Percentage decimal.Decimal
	// MinCartAmount gates the rule on the eligible amount (computed after
	// exclusions). Zero disables the check.
	MinCartAmount decimal.Decimal
	// MaxDiscountCap clamps the computed discount when positive.
	MaxDiscountCap decimal.Decimal
	// ExcludedBrands removes these brands from the eligible set.
	ExcludedBrands []string
	// ExcludedCategories removes these categories from the eligible set.
	ExcludedCategories []string
	// CustomerTiers restricts the rule to these customer tiers when non-empty.
	CustomerTiers []string
	// ValidUntil expires the voucher at the given instant when set.
	ValidUntil *time.Time

	Validator ValidatorFunc
	OnApplied AppliedFunc
}

// VoucherStrategy applies a voucher code discount over the whole cart minus
// configured brand and category exclusions.
type VoucherStrategy struct {
	cfg VoucherConfig
	now func() time.Time
}

var _ Strategy = (*VoucherStrategy)(nil)

// NewVoucherStrategy validates the configuration and builds the strategy.
func NewVoucherStrategy(cfg VoucherConfig) (*VoucherStrategy, error) {
	if cfg.Code == "" {
		return nil, errors.New("voucher strategy: code is required")
	}
	if err := validatePercentage(cfg.Percentage); err != nil {
		return nil, errors.Wrap(err, "voucher strategy")
	}
	if err := validateAmount("minimum cart amount", cfg.MinCartAmount); err != nil {
		return nil, errors.Wrap(err, "voucher strategy")
	}
	if err := validateAmount("maximum discount cap", cfg.MaxDiscountCap); err != nil {
		return nil, errors.Wrap(err, "voucher strategy")
	}
	return &VoucherStrategy{cfg: cfg, now: time.Now}, nil
}

// Code returns the configured voucher code.
func (s *VoucherStrategy) Code() string { return s.cfg.Code }

func (s *VoucherStrategy) matches(item CartItem) bool {
	p := item.Product
	if containsFold(s.cfg.ExcludedBrands, p.Brand) {
		return false
	}
	if containsFold(s.cfg.ExcludedCategories, p.Category) {
		return false
	}
	return true
}

// Validate checks the voucher's preconditions against the current cart state.
func (s *VoucherStrategy) Validate(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (bool, error) {
	if len(items) == 0 {
		return false, nil
	}
	if !tierAllowed(s.cfg.CustomerTiers, customer) || !stillValid(s.cfg.ValidUntil, s.now()) {
		return false, nil
	}

	eligible := eligibleAmount(items, s.matches)
	if s.cfg.MinCartAmount.IsPositive() && eligible.LessThan(s.cfg.MinCartAmount) {
		return false, nil
	}

	if s.cfg.Validator != nil {
		return s.cfg.Validator(ctx, items, customer, payment)
	}
	return true, nil
}

// CalculateDiscount returns the percentage of the eligible live total,
// clamped to the configured cap, or zero when the voucher does not apply.
func (s *VoucherStrategy) CalculateDiscount(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, nil
	}
	ok, err := s.Validate(ctx, items, customer, payment)
	if err != nil || !ok {
		return decimal.Zero, err
	}

	amount := percentageOf(eligibleAmount(items, s.matches), s.cfg.Percentage)
	if s.cfg.MaxDiscountCap.IsPositive() && amount.GreaterThan(s.cfg.MaxDiscountCap) {
		amount = s.cfg.MaxDiscountCap
	}
	if amount.IsPositive() && s.cfg.OnApplied != nil {
		s.cfg.OnApplied(amount, s.Name())
	}
	return amount, nil
}

// Name returns the deterministic display name, e.g.
// "Voucher Discount - SUPER69 (69%)".
func (s *VoucherStrategy) Name() string {
	return fmt.Sprintf("Voucher Discount - %s (%s%%)", s.cfg.Code, s.cfg.Percentage)
}

// Priority ranks vouchers after brand and category rules.
func (s *VoucherStrategy) Priority() int { return PriorityVoucher }
