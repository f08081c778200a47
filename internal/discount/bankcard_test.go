package discount

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankCardStrategy_Validate(t *testing.T) {
	ctx := context.Background()
	items := []CartItem{
		testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1),
		testItem("p2", "ASICS", TierRegular, "Shoes", 500, 1),
	}

	tests := []struct {
		name    string
		cfg     BankCardConfig
		payment *PaymentInfo
		want    bool
	}{
		{
			name:    "nil payment disables rule",
			cfg:     BankCardConfig{Bank: "ICICI", Percentage: decimal.NewFromInt(10)},
			payment: nil,
			want:    false,
		},
		{
			name:    "non-card method disables rule",
			cfg:     BankCardConfig{Bank: "ICICI", Percentage: decimal.NewFromInt(10)},
			payment: &PaymentInfo{Method: "UPI", BankName: "ICICI"},
			want:    false,
		},
		{
			name:    "bank mismatch disables rule",
			cfg:     BankCardConfig{Bank: "ICICI", Percentage: decimal.NewFromInt(10)},
			payment: &PaymentInfo{Method: PaymentMethodCard, BankName: "HDFC"},
			want:    false,
		},
		{
			name:    "bank match is case-insensitive",
			cfg:     BankCardConfig{Bank: "ICICI", Percentage: decimal.NewFromInt(10)},
			payment: &PaymentInfo{Method: PaymentMethodCard, BankName: "icici", CardType: "CREDIT"},
			want:    true,
		},
		{
			name: "minimum over eligible categories not met",
			cfg: BankCardConfig{
				Bank:               "ICICI",
				Percentage:         decimal.NewFromInt(10),
				EligibleCategories: []string{"Shoes"},
				MinCartAmount:      decimal.NewFromInt(600),
			},
			payment: &PaymentInfo{Method: PaymentMethodCard, BankName: "ICICI"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewBankCardStrategy(tt.cfg)
			require.NoError(t, err)

			ok, err := s.Validate(ctx, items, testCustomer(), tt.payment)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestBankCardStrategy_CalculateDiscount(t *testing.T) {
	ctx := context.Background()
	payment := &PaymentInfo{Method: PaymentMethodCard, BankName: "ICICI", CardType: "CREDIT"}
	items := []CartItem{
		testItem("p1", "PUMA", TierPremium, "T-shirts", 2000, 1),
		testItem("p2", "ASICS", TierRegular, "Shoes", 500, 1),
	}

	s, err := NewBankCardStrategy(BankCardConfig{
		Bank:               "ICICI",
		Percentage:         decimal.NewFromInt(10),
		EligibleCategories: []string{"Shoes"},
	})
	require.NoError(t, err)

	amount, err := s.CalculateDiscount(ctx, items, testCustomer(), payment)
	require.NoError(t, err)
	assert.Equal(t, "50.00", amount.StringFixed(2), "10% of the eligible category only")

	amount, err = s.CalculateDiscount(ctx, items, testCustomer(), nil)
	require.NoError(t, err)
	assert.True(t, amount.IsZero(), "no payment info computes zero")
}
