package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// BrandConfig configures a brand discount rule.
type BrandConfig struct {
	// Brand is the product brand the rule applies to. Required.
	Brand string
	// Percentage is the discount applied to the eligible amount, in [0, 100].
	Percentage decimal.Decimal
	// MinCartAmount gates the rule on the eligible amount. Zero disables the check.
	MinCartAmount decimal.Decimal
	// EligibleCategories restricts matching items to these categories when non-empty.
	EligibleCategories []string
	// PremiumOnly limits the rule to PREMIUM-tier brand items.
	PremiumOnly bool
	// CustomerTiers restricts the rule to these customer tiers when non-empty.
	CustomerTiers []string
	// ValidUntil expires the rule at the given instant when set.
	ValidUntil *time.Time

	Validator ValidatorFunc
	OnApplied AppliedFunc
}

// BrandStrategy discounts items of a single brand.
type BrandStrategy struct {
	cfg BrandConfig
	now func() time.Time
}

var _ Strategy = (*BrandStrategy)(nil)

// NewBrandStrategy validates the configuration and builds the strategy.
func NewBrandStrategy(cfg BrandConfig) (*BrandStrategy, error) {
	if cfg.Brand == "" {
		return nil, errors.New("brand strategy: brand is required")
	}
	if err := validatePercentage(cfg.Percentage); err != nil {
		return nil, errors.Wrap(err, "brand strategy")
	}
	if err := validateAmount("minimum cart amount", cfg.MinCartAmount); err != nil {
		return nil, errors.Wrap(err, "brand strategy")
	}
	return &BrandStrategy{cfg: cfg, now: time.Now}, nil
}

func (s *BrandStrategy) matches(item CartItem) bool {
	p := item.Product
	if p.Brand != s.cfg.Brand {
		return false
	}
	if s.cfg.PremiumOnly && p.BrandTier != TierPremium {
		return false
	}
	if len(s.cfg.EligibleCategories) > 0 && !containsFold(s.cfg.EligibleCategories, p.Category) {
		return false
	}
	return true
}

// Validate checks the rule's preconditions against the current cart state.
func (s *BrandStrategy) Validate(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (bool, error) {
	if !tierAllowed(s.cfg.CustomerTiers, customer) || !stillValid(s.cfg.ValidUntil, s.now()) {
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

// CalculateDiscount returns the percentage of the matching items' live total,
// or zero when the rule does not apply.
func (s *BrandStrategy) CalculateDiscount(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (decimal.Decimal, error) {
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
// "Brand Discount - PUMA (40%)".
func (s *BrandStrategy) Name() string {
	return fmt.Sprintf("Brand Discount - %s (%s%%)", s.cfg.Brand, s.cfg.Percentage)
}

// Priority ranks brand rules first, tied with category rules.
func (s *BrandStrategy) Priority() int { return PriorityBrandCategory }
