package discount

import (
	"context"
	"sort"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AppliedDiscount is one pipeline step that fired: the strategy's display
// name and the amount actually subtracted from the running total.
type AppliedDiscount struct {
	Name   string
	Amount decimal.Decimal
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	OriginalPrice decimal.Decimal
	FinalPrice    decimal.Decimal
	// Applied lists the discounts that fired, in application order.
	Applied []AppliedDiscount
	// Messages holds one human-readable line per applied discount.
	Messages []string
}

// AppliedCallback observes each applied discount together with the cart state
// after redistribution. Auditing only; it must not mutate the items.
type AppliedCallback func(name string, amount decimal.Decimal, items []CartItem)

// ApplierOption configures an Applier.
type ApplierOption func(*Applier)

// WithAppliedCallback registers an audit callback invoked after every applied
// discount.
func WithAppliedCallback(cb AppliedCallback) ApplierOption {
	return func(a *Applier) { a.onApplied = cb }
}

// Applier runs a set of strategies against a cart in priority order, mutating
// the items' live prices between steps.
//
// The applier owns the items for the duration of one call: callers pass a
// clone (see CloneItems) and must not alias it with the original cart.
type Applier struct {
	onApplied AppliedCallback
}

// NewApplier builds an Applier.
func NewApplier(opts ...ApplierOption) *Applier {
	a := &Applier{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply runs the pipeline:
//
//  1. Snapshot the original price.
//  2. For each strategy in ascending priority (stable on ties), re-validate
//     and compute the discount against the current, already-reduced prices.
//  3. Subtract applied amounts from the running total; when a discount would
//     push the total negative, record only the remaining balance, floor the
//     total at zero, and stop.
//  4. After each non-capped application, reduce every item's live price
//     proportionally so later per-item filters see realistic prices.
//
// A strategy that returns an error is logged and skipped; one bad rule never
// aborts the run.
func (a *Applier) Apply(ctx context.Context, strategies []Strategy, items []CartItem, customer *Customer, payment *PaymentInfo) Outcome {
	lg := zctx.From(ctx)

	ordered := make([]Strategy, len(strategies))
	copy(ordered, strategies)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	original := Subtotal(items)
	out := Outcome{
		OriginalPrice: original,
		FinalPrice:    original,
	}

	for _, s := range ordered {
		name := s.Name()

		ok, err := s.Validate(ctx, items, customer, payment)
		if err != nil {
			lg.Warn("Discount validation failed, skipping strategy",
				zap.String("strategy", name), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		amount, err := s.CalculateDiscount(ctx, items, customer, payment)
		if err != nil {
			lg.Warn("Discount calculation failed, skipping strategy",
				zap.String("strategy", name), zap.Error(err))
			continue
		}
		if !amount.IsPositive() {
			continue
		}
		amount = amount.Round(2)

		candidate := out.FinalPrice.Sub(amount)
		if candidate.IsNegative() {
			// The remaining balance is all this strategy can take. A zero
			// floor ends the pipeline.
			applied := out.FinalPrice
			out.Applied = append(out.Applied, AppliedDiscount{Name: name, Amount: applied})
			out.Messages = append(out.Messages, name+" (capped)")
			out.FinalPrice = decimal.Zero
			if a.onApplied != nil {
				a.onApplied(name, applied, items)
			}
			break
		}

		redistribute(items, amount, out.FinalPrice)
		out.FinalPrice = candidate
		out.Applied = append(out.Applied, AppliedDiscount{Name: name, Amount: amount})
		out.Messages = append(out.Messages, name)
		if a.onApplied != nil {
			a.onApplied(name, amount, items)
		}
	}

	return out
}

// redistribute spreads a discount proportionally across all items, reducing
// each live price by its share of the cart total before this step. Prices
// are floored at zero.
func redistribute(items []CartItem, amount, totalBefore decimal.Decimal) {
	if !totalBefore.IsPositive() {
		return
	}
	ratio := amount.Div(totalBefore)
	for i := range items {
		p := items[i].Product
		qty := decimal.NewFromInt(int64(items[i].Quantity))
		reduction := p.CurrentPrice.Mul(qty).Mul(ratio).Div(qty)
		next := p.CurrentPrice.Sub(reduction)
		if next.IsNegative() {
			next = decimal.Zero
		}
		p.CurrentPrice = next
	}
}
