package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoucherStrategy_Validate(t *testing.T) {
	ctx := context.Background()
	puma := testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)
	shoes := testItem("p2", "ASICS", TierRegular, "Shoes", 500, 1)

	tests := []struct {
		name  string
		cfg   VoucherConfig
		items []CartItem
		want  bool
	}{
		{
			name:  "empty cart fails",
			cfg:   VoucherConfig{Code: "SUPER69", Percentage: decimal.NewFromInt(69)},
			items: nil,
			want:  false,
		},
		{
			name: "minimum met over non-excluded items",
			cfg: VoucherConfig{
				Code:          "SUPER69",
				Percentage:    decimal.NewFromInt(69),
				MinCartAmount: decimal.NewFromInt(1000),
			},
			items: []CartItem{puma, shoes},
			want:  true,
		},
		{
			name: "excluded category removed before minimum check",
			cfg: VoucherConfig{
				Code:               "SUPER69",
				Percentage:         decimal.NewFromInt(69),
				MinCartAmount:      decimal.NewFromInt(2200),
				ExcludedCategories: []string{"Shoes"},
			},
			items: []CartItem{puma, shoes},
			want:  false,
		},
		{
			name: "excluded brand removed before minimum check",
			cfg: VoucherConfig{
				Code:           "SUPER69",
				Percentage:     decimal.NewFromInt(69),
				MinCartAmount:  decimal.NewFromInt(600),
				ExcludedBrands: []string{"PUMA"},
			},
			items: []CartItem{puma, shoes},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewVoucherStrategy(tt.cfg)
			require.NoError(t, err)

			ok, err := s.Validate(ctx, tt.items, testCustomer(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVoucherStrategy_Cap(t *testing.T) {
	ctx := context.Background()
	items := []CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)}

	s, err := NewVoucherStrategy(VoucherConfig{
		Code:           "SUPER69",
		Percentage:     decimal.NewFromInt(69),
		MaxDiscountCap: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	amount, err := s.CalculateDiscount(ctx, items, testCustomer(), nil)
	require.NoError(t, err)
	assert.Equal(t, "500.00", amount.StringFixed(2), "clamped to the configured cap")
}

func TestVoucherStrategy_ExpiredWindow(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	s, err := NewVoucherStrategy(VoucherConfig{
		Code:       "OLD10",
		Percentage: decimal.NewFromInt(10),
		ValidUntil: &past,
	})
	require.NoError(t, err)

	ok, err := s.Validate(context.Background(),
		[]CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)},
		testCustomer(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVoucherStrategy_ValidatorError(t *testing.T) {
	s, err := NewVoucherStrategy(VoucherConfig{
		Code:       "DB10",
		Percentage: decimal.NewFromInt(10),
		Validator: func(ctx context.Context, items []CartItem, customer *Customer, payment *PaymentInfo) (bool, error) {
			return false, errors.New("voucher store unavailable")
		},
	})
	require.NoError(t, err)

	ok, err := s.Validate(context.Background(),
		[]CartItem{testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1)},
		testCustomer(), nil)
	require.Error(t, err)
	assert.False(t, ok)
}
