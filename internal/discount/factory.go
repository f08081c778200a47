package discount

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Strategy type discriminators for Config descriptors.
const (
	TypeBrand    = "brand"
	TypeCategory = "category"
	TypeVoucher  = "voucher"
	TypeBankCard = "bank"
)

// ErrNilStrategy is returned when a nil strategy is registered.
var ErrNilStrategy = errors.New("strategy required")

// UnknownTypeError is returned by the factory for unrecognized descriptor types.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return "unknown strategy type " + e.Type
}

// Config is a flat strategy descriptor, typically decoded from a rules file.
// Type selects the variant; the identifying field (Brand, Category, Code, or
// Bank) and the optional fields relevant to that variant are consumed, the
// rest ignored.
type Config struct {
	Type string

	Brand    string
	Category string
	Code     string
	Bank     string

	Percentage     decimal.Decimal
	MinCartAmount  decimal.Decimal
	MaxDiscountCap decimal.Decimal

	EligibleCategories []string
	EligibleBrands     []string
	ExcludedBrands     []string
	ExcludedCategories []string
	CustomerTiers      []string

	PremiumOnly bool
	ValidUntil  *time.Time

	// Hooks are not part of the serialized descriptor; wiring code attaches
	// them before handing the config to the factory.
	Validator ValidatorFunc `json:"-"`
	OnApplied AppliedFunc   `json:"-"`
}

// Registry holds the strategies for one calculation scope, in registration
// order. It is an explicitly constructed object, not a process-wide
// singleton: independent sessions and tests build their own.
//
// Registration is not synchronized; callers must not register strategies
// while a calculation is in flight.
type Registry struct {
	strategies []Strategy
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers an externally constructed strategy.
func (r *Registry) Add(s Strategy) error {
	if s == nil {
		return ErrNilStrategy
	}
	r.strategies = append(r.strategies, s)
	return nil
}

// Strategies returns the registered strategies in registration order.
// Priority ordering is the Applier's concern, not the registry's.
func (r *Registry) Strategies() []Strategy {
	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// Factory builds strategies from Config descriptors and registers them.
type Factory struct {
	registry *Registry
}

// NewFactory builds a Factory that registers into the given registry.
func NewFactory(registry *Registry) *Factory {
	return &Factory{registry: registry}
}

// Create dispatches on the descriptor type, builds the strategy (failing
// fast on invalid configuration), registers it, and returns it.
func (f *Factory) Create(cfg Config) (Strategy, error) {
	var (
		s   Strategy
		err error
	)
	switch cfg.Type {
	case TypeBrand:
		s, err = NewBrandStrategy(BrandConfig{
			Brand:              cfg.Brand,
			Percentage:         cfg.Percentage,
			MinCartAmount:      cfg.MinCartAmount,
			EligibleCategories: cfg.EligibleCategories,
			PremiumOnly:        cfg.PremiumOnly,
			CustomerTiers:      cfg.CustomerTiers,
			ValidUntil:         cfg.ValidUntil,
			Validator:          cfg.Validator,
			OnApplied:          cfg.OnApplied,
		})
	case TypeCategory:
		s, err = NewCategoryStrategy(CategoryConfig{
			Category:       cfg.Category,
			Percentage:     cfg.Percentage,
			MinCartAmount:  cfg.MinCartAmount,
			EligibleBrands: cfg.EligibleBrands,
			ExcludedBrands: cfg.ExcludedBrands,
			CustomerTiers:  cfg.CustomerTiers,
			ValidUntil:     cfg.ValidUntil,
			Validator:      cfg.Validator,
			OnApplied:      cfg.OnApplied,
		})
	case TypeVoucher:
		s, err = NewVoucherStrategy(VoucherConfig{
			Code:               cfg.Code,
			Percentage:         cfg.Percentage,
			MinCartAmount:      cfg.MinCartAmount,
			MaxDiscountCap:     cfg.MaxDiscountCap,
			ExcludedBrands:     cfg.ExcludedBrands,
			ExcludedCategories: cfg.ExcludedCategories,
			CustomerTiers:      cfg.CustomerTiers,
			ValidUntil:         cfg.ValidUntil,
			Validator:          cfg.Validator,
			OnApplied:          cfg.OnApplied,
		})
	case TypeBankCard:
		s, err = NewBankCardStrategy(BankCardConfig{
			Bank:               cfg.Bank,
			Percentage:         cfg.Percentage,
			MinCartAmount:      cfg.MinCartAmount,
			EligibleCategories: cfg.EligibleCategories,
			Validator:          cfg.Validator,
			OnApplied:          cfg.OnApplied,
		})
	default:
		return nil, &UnknownTypeError{Type: cfg.Type}
	}
	if err != nil {
		return nil, err
	}
	if err := f.registry.Add(s); err != nil {
		return nil, err
	}
	return s, nil
}
