package discount

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CategoryConfig configures a category discount rule.
type CategoryConfig struct {
	// Category is matched against product categories, ignoring case. Required.
	Category string
	// Percentage is the discount applied to the eligible amount, in [0, 100].
	Percentage decimal.Decimal
	// MinCartAmount gates the rule on the eligible amount. Zero disables the check.
	MinCartAmount decimal.Decimal
	// EligibleBrands restricts matching items to these brands when non-empty.
	EligibleBrands []string
	// ExcludedBrands removes these brands from the eligible set.
	ExcludedBrands []string
	// CustomerTiers restricts the rule to these customer tiers when non-empty.
	CustomerTiers []string
	// ValidUntil expires the rule at the given instant when set.
	ValidUntil *time.Time

	Validator ValidatorFunc
	OnApplied AppliedFunc
}

// CategoryStrategy discounts items of a single product category.
type CategoryStrategy struct {
	cfg CategoryConfig
	now func() time.Time
}

var _ Strategy = (*CategoryStrategy)(nil)

// NewCategoryStrategy validates the configuration and builds the strategy.
func NewCategoryStrategy(cfg CategoryConfig) (*CategoryStrategy, error) {
	if cfg.Category == "" {
		return nil, errors.New("category strategy: category is required")
	}
	if err := validatePercentage(cfg.Percentage); err != nil {
		return nil, errors.Wrap(err, "category strategy")
	}
	if err := validateAmount("minimum cart amount", cfg.MinCartAmount); err != nil {
		return nil, errors.Wrap(err, "category strategy")
	}
	return &CategoryStrategy{cfg: cfg, now: time.Now}, nil
}

func (s *CategoryStrategy) matches(item CartItem) bool {
	p := item.Product
	if !strings.EqualFold(p.Category, s.cfg.Category) {
		return false
	}
	if len(s.cfg.EligibleBrands) > 0 && !containsFold(s.cfg.EligibleBrands, p.Brand) {
		return false
	}
	if containsFold(s.cfg.ExcludedBrands, p.Brand) {
		return false
	}
	return true
}

// Validate checks the rule's preconditions against the current cart state.
func (s *CategoryStrategy) Validate(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (bool, error) {
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
func (s *CategoryStrategy) CalculateDiscount(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (decimal.Decimal, error) {
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
// "Category Discount - T-shirts (10%)".
func (s *CategoryStrategy) Name() string {
	return fmt.Sprintf("Category Discount - %s (%s%%)", s.cfg.Category, s.cfg.Percentage)
}

// Priority ranks category rules first, tied with brand rules.
func (s *CategoryStrategy) Priority() int { return PriorityBrandCategory }
