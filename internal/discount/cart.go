// Package discount implements a single-pass cart discount calculator.
//
// A calculation applies an ordered chain of pluggable discount strategies
// (brand, category, voucher, bank card) to a cloned cart, mutating the live
// item prices between steps so every strategy sees the reductions applied by
// the ones before it.
package discount

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BrandTier classifies a product's brand positioning.
type BrandTier string

const (
	TierPremium BrandTier = "PREMIUM"
	TierRegular BrandTier = "REGULAR"
	TierBudget  BrandTier = "BUDGET"
)

// PaymentMethodCard is the payment method required by bank card strategies.
const PaymentMethodCard = "CARD"

// Product is a catalog item referenced by a cart line.
//
// BasePrice is the original list price and is never modified. CurrentPrice is
// the live price for the in-flight calculation: it starts equal to the
// caller-provided price and is reduced in place as strategies apply.
type Product struct {
	ID           string
	Brand        string
	BrandTier    BrandTier
	Category     string
	BasePrice    decimal.Decimal
	CurrentPrice decimal.Decimal
}

// CartItem is one line of a shopping cart.
type CartItem struct {
	Product  *Product
	Quantity int
	Size     string
}

// LineTotal returns CurrentPrice multiplied by the line quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.CurrentPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Customer is the read-only buyer profile used by strategy validators.
type Customer struct {
	ID    string
	Name  string
	Tier  string
	Email string
}

// PaymentInfo describes how the cart will be paid. A nil PaymentInfo
// disables all bank card strategies.
type PaymentInfo struct {
	Method   string
	BankName string
	CardType string
}

// CloneItems deep-copies cart items so a calculation can mutate live prices
// without touching the caller's cart.
func CloneItems(items []CartItem) []CartItem {
	cloned := make([]CartItem, len(items))
	for i, item := range items {
		p := *item.Product
		cloned[i] = CartItem{
			Product:  &p,
			Quantity: item.Quantity,
			Size:     item.Size,
		}
	}
	return cloned
}

// Subtotal returns the sum of CurrentPrice * quantity across all items.
func Subtotal(items []CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// eligibleAmount returns the sum of CurrentPrice * quantity over items
// accepted by the filter.
func eligibleAmount(items []CartItem, filter func(CartItem) bool) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		if filter(item) {
			sum = sum.Add(item.LineTotal())
		}
	}
	return sum
}

// containsFold reports whether list contains s, ignoring case. An empty list
// matches nothing; callers treat empty allow-lists as "not configured" before
// calling.
func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
