package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vindel10/vindel-api/internal/models"
)

// ErrInsufficientCredits is returned when a user's balance cannot cover a spend.
var ErrInsufficientCredits = errors.New("insufficient credits")

const orderColumns = `id, user_id, provider, package_id, credits, amount_minor, currency, status, provider_ref, created_at, paid_at`

// PaymentRepository stores orders, credit balances and the credit ledger.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateOrder inserts a pending order.
func (r *PaymentRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = models.OrderPending
	}
	const query = `INSERT INTO orders (` + orderColumns + `) VALUES (:id, :user_id, :provider, :package_id, :credits, :amount_minor, :currency, :status, :provider_ref, :created_at, :paid_at)`
	if _, err := r.db.NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// SetProviderRef attaches the processor session reference to an order.
func (r *PaymentRepository) SetProviderRef(ctx context.Context, orderID, ref string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET provider_ref = $2 WHERE id = $1`, orderID, ref)
	if err != nil {
		return fmt.Errorf("set order provider ref: %w", err)
	}
	return expectAffected(res, "set order provider ref")
}

// FindOrder returns an order by id.
func (r *PaymentRepository) FindOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

// FulfillOrder marks a pending order as paid and credits the buyer in one
// transaction. It returns (nil, nil) when the order was already settled.
func (r *PaymentRepository) FulfillOrder(ctx context.Context, orderID, providerRef string, paidAt time.Time) (*models.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin fulfill tx: %w", err)
	}
	var order models.Order
	err = tx.GetContext(ctx, &order, `UPDATE orders SET status = 'paid', paid_at = $2, provider_ref = COALESCE(provider_ref, $3)
WHERE id = $1 AND status = 'pending' RETURNING `+orderColumns, orderID, paidAt, providerRef)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return nil, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET credits = credits + $2, updated_at = $3 WHERE id = $1`, order.UserID, order.Credits, paidAt); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("credit user: %w", err)
	}
	if err := insertLedger(ctx, tx, order.UserID, order.Credits, models.LedgerPurchase, order.ID, paidAt); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit fulfill tx: %w", err)
	}
	return &order, nil
}

// MarkFailed flags a pending order as failed.
func (r *PaymentRepository) MarkFailed(ctx context.Context, orderID string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE orders SET status = 'failed' WHERE id = $1 AND status = 'pending'`, orderID); err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	return nil
}

// SpendOnPromotion debits cost credits from the user and extends the listing
// promotion by days, atomically. The extension starts from the later of now and
// the current promotion end, so concurrent purchases stack. It returns the new
// promotion end; ErrInsufficientCredits is returned when the balance is too low.
func (r *PaymentRepository) SpendOnPromotion(ctx context.Context, userID, listingID string, cost, days int, now time.Time) (time.Time, error) {
	now = now.UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin promotion tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE users SET credits = credits - $2, updated_at = $3 WHERE id = $1 AND credits >= $2`, userID, cost, now)
	if err != nil {
		_ = tx.Rollback()
		return time.Time{}, fmt.Errorf("debit credits: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil || affected == 0 {
		_ = tx.Rollback()
		if err != nil {
			return time.Time{}, fmt.Errorf("debit credits rows: %w", err)
		}
		return time.Time{}, ErrInsufficientCredits
	}
	const extend = `UPDATE listings
SET promoted_until = GREATEST(COALESCE(promoted_until, $3), $3) + make_interval(days => $2), updated_at = $3
WHERE id = $1
RETURNING promoted_until`
	var until time.Time
	if err := tx.QueryRowxContext(ctx, extend, listingID, days, now).Scan(&until); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("extend promotion: %w", err)
	}
	if err := insertLedger(ctx, tx, userID, -cost, models.LedgerPromotion, listingID, now); err != nil {
		_ = tx.Rollback()
		return time.Time{}, err
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("commit promotion tx: %w", err)
	}
	return until, nil
}

// ListLedger returns a user's credit history, newest first.
func (r *PaymentRepository) ListLedger(ctx context.Context, userID string, limit int) ([]models.CreditLedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries := []models.CreditLedgerEntry{}
	const query = `SELECT id, user_id, delta, reason, reference, created_at FROM credit_ledger WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list credit ledger: %w", err)
	}
	return entries, nil
}

func insertLedger(ctx context.Context, tx *sqlx.Tx, userID string, delta int, reason, reference string, at time.Time) error {
	const query = `INSERT INTO credit_ledger (id, user_id, delta, reason, reference, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), userID, delta, reason, reference, at); err != nil {
		return fmt.Errorf("insert credit ledger: %w", err)
	}
	return nil
}
