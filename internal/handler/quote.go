package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peakcart/discount-service/internal/discount"
)

type quoteItem struct {
	ProductID string          `json:"productId"`
	Brand     string          `json:"brand"`
	BrandTier string          `json:"brandTier"`
	Category  string          `json:"category"`
	Size      string          `json:"size,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type customerPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Tier  string `json:"tier"`
	Email string `json:"email"`
}

type paymentPayload struct {
	Method   string `json:"method"`
	BankName string `json:"bankName"`
	CardType string `json:"cardType"`
}

type quoteRequest struct {
	Items    []quoteItem      `json:"items"`
	Customer *customerPayload `json:"customer"`
	Payment  *paymentPayload  `json:"payment,omitempty"`
}

type appliedDiscountPayload struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type quoteResponse struct {
	QuoteID          string                   `json:"quoteId"`
	OriginalPrice    decimal.Decimal          `json:"originalPrice"`
	FinalPrice       decimal.Decimal          `json:"finalPrice"`
	AppliedDiscounts []appliedDiscountPayload `json:"appliedDiscounts"`
	Message          string                   `json:"message"`
}

func (req *quoteRequest) toDomain() ([]discount.CartItem, *discount.Customer, *discount.PaymentInfo, error) {
	items := make([]discount.CartItem, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, nil, nil, errors.Errorf("quantity must be greater than 0 for product %s", it.ProductID)
		}
		items[i] = discount.CartItem{
			Product: &discount.Product{
				ID:           it.ProductID,
				Brand:        it.Brand,
				BrandTier:    discount.BrandTier(it.BrandTier),
				Category:     it.Category,
				BasePrice:    it.Price,
				CurrentPrice: it.Price,
			},
			Quantity: it.Quantity,
			Size:     it.Size,
		}
	}

	var customer *discount.Customer
	if req.Customer != nil {
		customer = &discount.Customer{
			ID:    req.Customer.ID,
			Name:  req.Customer.Name,
			Tier:  req.Customer.Tier,
			Email: req.Customer.Email,
		}
	}

	var payment *discount.PaymentInfo
	if req.Payment != nil {
		payment = &discount.PaymentInfo{
			Method:   req.Payment.Method,
			BankName: req.Payment.BankName,
			CardType: req.Payment.CardType,
		}
	}
	return items, customer, payment, nil
}

// Quote computes the discounted price for a cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items, customer, payment, err := req.toDomain()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.CalculateCartDiscounts(r.Context(), items, customer, payment)
	if err != nil {
		switch {
		case errors.Is(err, discount.ErrEmptyCart), errors.Is(err, discount.ErrNilCustomer):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	applied := make([]appliedDiscountPayload, len(res.AppliedDiscounts))
	for i, d := range res.AppliedDiscounts {
		applied[i] = appliedDiscountPayload{Name: d.Name, Amount: d.Amount}
	}

	writeJSON(w, r, http.StatusOK, quoteResponse{
		QuoteID:          uuid.New().String(),
		OriginalPrice:    res.OriginalPrice,
		FinalPrice:       res.FinalPrice,
		AppliedDiscounts: applied,
		Message:          res.Message,
	})
}

type validateVoucherRequest struct {
	Code     string           `json:"code"`
	Items    []quoteItem      `json:"items"`
	Customer *customerPayload `json:"customer"`
}

type validateVoucherResponse struct {
	Code  string `json:"code"`
	Valid bool   `json:"valid"`
}

// ValidateVoucher reports whether a voucher code is valid for the cart.
// It fails closed on any malformed input.
func (h *Handler) ValidateVoucher(w http.ResponseWriter, r *http.Request) {
	var req validateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	quote := quoteRequest{Items: req.Items, Customer: req.Customer}
	items, customer, _, err := quote.toDomain()
	if err != nil {
		writeJSON(w, r, http.StatusOK, validateVoucherResponse{Code: req.Code, Valid: false})
		return
	}

	valid := h.service.ValidateDiscountCode(r.Context(), req.Code, items, customer)
	writeJSON(w, r, http.StatusOK, validateVoucherResponse{Code: req.Code, Valid: valid})
}
