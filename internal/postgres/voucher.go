package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/peakcart/discount-service/internal/discount"
)

const (
	getVoucherByCodeSQL = `SELECT code, percentage, min_cart_amount, max_discount_cap,
		description, valid_until, max_redemptions, redemptions
		FROM vouchers WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	listVouchersSQL = `SELECT code, percentage, min_cart_amount, max_discount_cap,
		description, valid_until, max_redemptions, redemptions
		FROM vouchers WHERE active = TRUE ORDER BY code`

	incrementRedemptionsSQL = `UPDATE vouchers SET redemptions = redemptions + 1 WHERE code = $1`
)

// ErrVoucherNotFound is returned when no active voucher matches a code.
var ErrVoucherNotFound = errors.New("voucher not found")

// VoucherRule is a stored voucher discount rule.
type VoucherRule struct {
	Code           string
	Percentage     decimal.Decimal
	MinCartAmount  decimal.Decimal
	MaxDiscountCap decimal.Decimal
	Description    string
	ValidUntil     *time.Time
	MaxRedemptions int
	Redemptions    int
}

// Exhausted reports whether the rule has used up its redemption budget.
// A zero MaxRedemptions means unlimited.
func (r *VoucherRule) Exhausted() bool {
	return r.MaxRedemptions > 0 && r.Redemptions >= r.MaxRedemptions
}

// VoucherRepository provides lookup and mutation of stored voucher rules.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// FindByCode looks up an active voucher by its code (case-insensitive).
// Returns ErrVoucherNotFound when no matching active voucher exists.
func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*VoucherRule, error) {
	rows, err := r.pool.Query(ctx, getVoucherByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanVoucherRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}
	return &rule, nil
}

// List returns all active voucher rules.
func (r *VoucherRepository) List(ctx context.Context) ([]VoucherRule, error) {
	rows, err := r.pool.Query(ctx, listVouchersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing vouchers: %w", err)
	}

	rules, err := pgx.CollectRows(rows, scanVoucherRule)
	if err != nil {
		return nil, fmt.Errorf("listing vouchers: %w", err)
	}
	return rules, nil
}

// IncrementRedemptions atomically increments the redemption counter.
func (r *VoucherRepository) IncrementRedemptions(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementRedemptionsSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing redemptions for voucher %q: %w", code, err)
	}
	return nil
}

// ValidatorFor returns a strategy validator hook that re-checks the stored
// rule at calculation time: the voucher must still exist, be active, and
// have redemptions left. Lookup failures propagate so the pipeline can log
// and skip the rule.
func (r *VoucherRepository) ValidatorFor(code string) discount.ValidatorFunc {
	return func(ctx context.Context, items []discount.CartItem, customer *discount.Customer, payment *discount.PaymentInfo) (bool, error) {
		rule, err := r.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrVoucherNotFound) {
				return false, nil
			}
			return false, errors.Wrap(err, "lookup voucher")
		}
		return !rule.Exhausted(), nil
	}
}

func scanVoucherRule(row pgx.CollectableRow) (VoucherRule, error) {
	var r VoucherRule
	err := row.Scan(
		&r.Code,
		&r.Percentage,
		&r.MinCartAmount,
		&r.MaxDiscountCap,
		&r.Description,
		&r.ValidUntil,
		&r.MaxRedemptions,
		&r.Redemptions,
	)
	return r, err
}
