package discount

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Input validation errors surfaced by the Service. Everything past these two
// precondition checks degrades to "rule did not fire" rather than failing.
var (
	ErrEmptyCart   = errors.New("cart items required")
	ErrNilCustomer = errors.New("customer required")
)

// Result is the outcome of one cart discount calculation.
type Result struct {
	OriginalPrice decimal.Decimal
	FinalPrice    decimal.Decimal
	// AppliedDiscounts lists the discounts that fired, in application order.
	AppliedDiscounts []AppliedDiscount
	Message          string
}

// NoDiscountsMessage is returned when no strategy fired.
const NoDiscountsMessage = "No discounts applied"

// Service is the public entry point for cart discount calculations.
type Service struct {
	registry *Registry
	applier  *Applier
}

// NewService builds a Service over an explicitly scoped registry. A nil
// applier gets a default one.
func NewService(registry *Registry, applier *Applier) *Service {
	if applier == nil {
		applier = NewApplier()
	}
	return &Service{registry: registry, applier: applier}
}

// AddStrategy registers an externally constructed strategy.
func (s *Service) AddStrategy(strategy Strategy) error {
	return s.registry.Add(strategy)
}

// CalculateCartDiscounts clones the cart, applies every registered strategy
// in priority order, and returns the final price together with the applied
// discounts. The caller's cart is never mutated.
//
// It fails only on an empty cart or a nil customer.
func (s *Service) CalculateCartDiscounts(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if customer == nil {
		return nil, ErrNilCustomer
	}

	cloned := CloneItems(items)
	out := s.applier.Apply(ctx, s.registry.Strategies(), cloned, customer, payment)

	if len(out.Applied) == 0 {
		return &Result{
			OriginalPrice:    out.OriginalPrice,
			FinalPrice:       out.OriginalPrice,
			AppliedDiscounts: []AppliedDiscount{},
			Message:          NoDiscountsMessage,
		}, nil
	}

	return &Result{
		OriginalPrice:    out.OriginalPrice,
		FinalPrice:       out.FinalPrice,
		AppliedDiscounts: out.Applied,
		Message:          strings.Join(out.Messages, ", "),
	}, nil
}

// ValidateDiscountCode reports whether the given voucher code is registered
// and currently valid for the cart. It fails closed: empty codes, unknown
// codes, and validator errors all return false. Payment info plays no role
// in voucher validation.
func (s *Service) ValidateDiscountCode(ctx context.Context, code string, items []CartItem, customer *Customer) bool {
	if code == "" {
		return false
	}
	upper := strings.ToUpper(code)

	for _, st := range s.registry.Strategies() {
		v, ok := st.(*VoucherStrategy)
		if !ok || !strings.Contains(strings.ToUpper(v.Name()), upper) {
			continue
		}
		valid, err := v.Validate(ctx, items, customer, nil)
		if err != nil {
			zctx.From(ctx).Warn("Voucher validation failed",
				zap.String("code", code), zap.Error(err))
			return false
		}
		return valid
	}
	return false
}
