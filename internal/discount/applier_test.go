package discount

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStrategy lets tests inject fixed amounts and failures into the pipeline.
type stubStrategy struct {
	name        string
	priority    int
	valid       bool
	amount      decimal.Decimal
	validateErr error
	calcErr     error
}

func (s *stubStrategy) Validate(context.Context, []CartItem, *Customer, *PaymentInfo) (bool, error) {
	return s.valid, s.validateErr
}

func (s *stubStrategy) CalculateDiscount(context.Context, []CartItem, *Customer, *PaymentInfo) (decimal.Decimal, error) {
	return s.amount, s.calcErr
}

func (s *stubStrategy) Name() string  { return s.name }
func (s *stubStrategy) Priority() int { return s.priority }

// fullChain builds the four-rule chain from the reference scenario, on
// purpose in reverse priority order to exercise the stable sort.
func fullChain(t *testing.T) []Strategy {
	t.Helper()

	bank, err := NewBankCardStrategy(BankCardConfig{Bank: "ICICI", Percentage: decimal.NewFromInt(10)})
	require.NoError(t, err)
	voucher, err := NewVoucherStrategy(VoucherConfig{
		Code:          "SUPER69",
		Percentage:    decimal.NewFromInt(69),
		MinCartAmount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	category, err := NewCategoryStrategy(CategoryConfig{Category: "T-shirts", Percentage: decimal.NewFromInt(10)})
	require.NoError(t, err)
	brand, err := NewBrandStrategy(BrandConfig{Brand: "PUMA", Percentage: decimal.NewFromInt(40), PremiumOnly: true})
	require.NoError(t, err)

	return []Strategy{bank, voucher, category, brand}
}

func TestApplier_SingleItemChain(t *testing.T) {
	items := []CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)}
	payment := &PaymentInfo{Method: PaymentMethodCard, BankName: "ICICI", CardType: "CREDIT"}

	out := NewApplier().Apply(context.Background(), fullChain(t), items, testCustomer(), payment)

	assert.Equal(t, "2000.00", out.OriginalPrice.StringFixed(2))
	assert.Equal(t, "301.32", out.FinalPrice.StringFixed(2))

	require.Len(t, out.Applied, 4)
	assert.Equal(t, "Brand Discount - PUMA (40%)", out.Applied[0].Name)
	assert.Equal(t, "800.00", out.Applied[0].Amount.StringFixed(2))
	assert.Equal(t, "Category Discount - T-shirts (10%)", out.Applied[1].Name)
	assert.Equal(t, "120.00", out.Applied[1].Amount.StringFixed(2))
	assert.Equal(t, "Voucher Discount - SUPER69 (69%)", out.Applied[2].Name)
	assert.Equal(t, "745.20", out.Applied[2].Amount.StringFixed(2))
	assert.Equal(t, "Bank Card Discount - ICICI (10%)", out.Applied[3].Name)
	assert.Equal(t, "33.48", out.Applied[3].Amount.StringFixed(2))

	// The live item price tracks the running total.
	assert.Equal(t, "301.32", items[0].Product.CurrentPrice.StringFixed(2))
}

func TestApplier_NoPaymentInfoDisablesBankCard(t *testing.T) {
	items := []CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)}

	out := NewApplier().Apply(context.Background(), fullChain(t), items, testCustomer(), nil)

	assert.Equal(t, "334.80", out.FinalPrice.StringFixed(2))
	require.Len(t, out.Applied, 3)
	for _, d := range out.Applied {
		assert.NotContains(t, d.Name, "Bank Card")
	}
}

func TestApplier_MultiItemMixedBrands(t *testing.T) {
	items := []CartItem{
		testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1),
		testItem("p2", "NIKE", TierRegular, "T-shirts", 1000, 2),
	}
	payment := &PaymentInfo{Method: PaymentMethodCard, BankName: "ICICI", CardType: "CREDIT"}

	out := NewApplier().Apply(context.Background(), fullChain(t), items, testCustomer(), payment)

	assert.Equal(t, "4000.00", out.OriginalPrice.StringFixed(2))
	require.Len(t, out.Applied, 4)
	assert.Equal(t, "800.00", out.Applied[0].Amount.StringFixed(2), "brand applies to the PUMA portion only")
	assert.Equal(t, "320.00", out.Applied[1].Amount.StringFixed(2), "category computed on post-brand prices")
	assert.Equal(t, "1987.20", out.Applied[2].Amount.StringFixed(2))
	assert.Equal(t, "89.28", out.Applied[3].Amount.StringFixed(2))
	assert.Equal(t, "803.52", out.FinalPrice.StringFixed(2))

	// Invariant: original - final == sum of applied amounts.
	sum := decimal.Zero
	for _, d := range out.Applied {
		sum = sum.Add(d.Amount)
	}
	assert.True(t, out.OriginalPrice.Sub(out.FinalPrice).Equal(sum))

	// Invariant: item prices redistribute to match the running total.
	assert.Equal(t, out.FinalPrice.StringFixed(2), Subtotal(items).StringFixed(2))
}

func TestApplier_CappingHaltsPipeline(t *testing.T) {
	items := []CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 100, 1)}
	payment := &PaymentInfo{Method: PaymentMethodCard, BankName: "ICICI", CardType: "CREDIT"}

	flat := &stubStrategy{
		name:     "Flat 500",
		priority: PriorityVoucher,
		valid:    true,
		amount:   decimal.NewFromInt(500),
	}
	bank, err := NewBankCardStrategy(BankCardConfig{Bank: "ICICI", Percentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	out := NewApplier().Apply(context.Background(), []Strategy{bank, flat}, items, testCustomer(), payment)

	require.Len(t, out.Applied, 1, "a zero floor ends the pipeline")
	assert.Equal(t, "Flat 500", out.Applied[0].Name)
	assert.Equal(t, "100.00", out.Applied[0].Amount.StringFixed(2),
		"the recorded amount is the remaining balance, not the computed one")
	assert.True(t, out.FinalPrice.IsZero())
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "Flat 500 (capped)", out.Messages[0])
}

func TestApplier_FailureIsolation(t *testing.T) {
	items := []CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)}

	bad := &stubStrategy{
		name:        "Broken Rule",
		priority:    PriorityBrandCategory,
		validateErr: errors.New("backing store down"),
	}
	badCalc := &stubStrategy{
		name:     "Broken Calc",
		priority: PriorityBrandCategory,
		valid:    true,
		calcErr:  errors.New("overflow"),
	}
	voucher, err := NewVoucherStrategy(VoucherConfig{Code: "SAVE10", Percentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	out := NewApplier().Apply(context.Background(), []Strategy{bad, badCalc, voucher}, items, testCustomer(), nil)

	require.Len(t, out.Applied, 1, "failing strategies are skipped, not fatal")
	assert.Equal(t, "Voucher Discount - SAVE10 (10%)", out.Applied[0].Name)
	assert.Equal(t, "1800.00", out.FinalPrice.StringFixed(2))
}

func TestApplier_ZeroStrategies(t *testing.T) {
	items := []CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)}

	out := NewApplier().Apply(context.Background(), nil, items, testCustomer(), nil)

	assert.True(t, out.FinalPrice.Equal(out.OriginalPrice))
	assert.Empty(t, out.Applied)
}

func TestApplier_ZeroAmountSkipped(t *testing.T) {
	items := []CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)}

	noop := &stubStrategy{name: "Noop", priority: PriorityVoucher, valid: true, amount: decimal.Zero}
	out := NewApplier().Apply(context.Background(), []Strategy{noop}, items, testCustomer(), nil)

	assert.Empty(t, out.Applied, "zero amounts are a no-op, not an error")
	assert.True(t, out.FinalPrice.Equal(out.OriginalPrice))
}

func TestApplier_AppliedCallback(t *testing.T) {
	items := []CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)}

	type call struct {
		name   string
		amount string
		total  string
	}
	var calls []call
	applier := NewApplier(WithAppliedCallback(func(name string, amount decimal.Decimal, items []CartItem) {
		calls = append(calls, call{name: name, amount: amount.StringFixed(2), total: Subtotal(items).StringFixed(2)})
	}))

	voucher, err := NewVoucherStrategy(VoucherConfig{Code: "SAVE10", Percentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	applier.Apply(context.Background(), []Strategy{voucher}, items, testCustomer(), nil)

	require.Len(t, calls, 1)
	assert.Equal(t, call{name: "Voucher Discount - SAVE10 (10%)", amount: "200.00", total: "1800.00"}, calls[0])
}
