package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelcraft/backend/internal/db"
	"github.com/reelcraft/backend/internal/models"
)

const uniqueViolation = "23505"

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, coins, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.Email, user.Password, user.Coins, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `
        SELECT id, email, password_hash, coins, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `
        SELECT id, email, password_hash, coins, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var user models.User
	row := conn.QueryRow(ctx, query, arg)
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Coins, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// CreditCoins adds coins to a user's balance.
func (r *PostgresUserRepository) CreditCoins(ctx context.Context, userID string, amount int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET coins = coins + $2, updated_at = NOW()
        WHERE id = $1
    `, userID, amount)
	if err != nil {
		return fmt.Errorf("credit coins: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DebitCoins removes coins from a user's balance, refusing to go negative.
func (r *PostgresUserRepository) DebitCoins(ctx context.Context, userID string, amount int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET coins = coins - $2, updated_at = NOW()
        WHERE id = $1 AND coins >= $2
    `, userID, amount)
	if err != nil {
		return fmt.Errorf("debit coins: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the user is missing or the balance cannot cover the debit;
		// distinguish so callers can prompt a recharge.
		if _, ferr := r.FindByID(ctx, userID); ferr != nil {
			return ferr
		}
		return ErrInsufficientFunds
	}

	return nil
}

// PostgresPaymentRepository mirrors gateway payment requests in PostgreSQL.
type PostgresPaymentRepository struct {
	pool db.Pool
}

// NewPostgresPaymentRepository constructs a payment repository backed by PostgreSQL.
func NewPostgresPaymentRepository(pool db.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

// InsertPayment stores one newly created payment request.
func (r *PostgresPaymentRepository) InsertPayment(ctx context.Context, record models.PaymentRecord) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO payments (id, user_id, payment_request_id, amount, currency, method, status,
                              plan_id, addon_id, result_code, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, record.ID, record.UserID, record.PaymentRequestID, record.Amount, record.Currency,
		record.Method, record.Status, record.PlanID, record.AddonID, record.ResultCode,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// UpdatePaymentStatus records the gateway's terminal view of one payment.
func (r *PostgresPaymentRepository) UpdatePaymentStatus(ctx context.Context, paymentRequestID string, status models.PaymentStatus, resultCode string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE payments SET status = $2, result_code = $3, updated_at = NOW()
        WHERE payment_request_id = $1
    `, paymentRequestID, status, resultCode)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByUser returns a user's payment history, newest first.
func (r *PostgresPaymentRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.PaymentRecord, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, user_id, payment_request_id, amount, currency, method, status,
               plan_id, addon_id, result_code, created_at, updated_at
        FROM payments
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	var records []models.PaymentRecord
	for rows.Next() {
		var rec models.PaymentRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.PaymentRequestID, &rec.Amount, &rec.Currency,
			&rec.Method, &rec.Status, &rec.PlanID, &rec.AddonID, &rec.ResultCode,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return records, nil
}

// PostgresPurchaseRepository persists confirmed purchases.
type PostgresPurchaseRepository struct {
	pool db.Pool
}

// NewPostgresPurchaseRepository constructs a purchase repository backed by PostgreSQL.
func NewPostgresPurchaseRepository(pool db.Pool) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{pool: pool}
}

// RecordPurchase inserts the purchase and applies its coin grant in one
// transaction. A repeat of the same payment request id returns ErrConflict
// without touching the balance.
func (r *PostgresPurchaseRepository) RecordPurchase(ctx context.Context, purchase models.Purchase) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin purchase transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO purchases (id, user_id, kind, plan_id, addon_id, amount,
                               payment_request_id, coins_granted, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, purchase.ID, purchase.UserID, purchase.Kind, purchase.PlanID, purchase.AddonID,
		purchase.Amount, purchase.PaymentRequestID, purchase.CoinsGranted, purchase.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert purchase: %w", err)
	}

	if purchase.CoinsGranted > 0 {
		if _, err := tx.Exec(ctx, `
            UPDATE users SET coins = coins + $2, updated_at = NOW()
            WHERE id = $1
        `, purchase.UserID, purchase.CoinsGranted); err != nil {
			return fmt.Errorf("grant coins: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit purchase: %w", err)
	}

	return nil
}

// PostgresReconcileQueue is the durable confirmation-retry queue.
type PostgresReconcileQueue struct {
	pool db.Pool
}

// NewPostgresReconcileQueue constructs a reconcile queue backed by PostgreSQL.
func NewPostgresReconcileQueue(pool db.Pool) *PostgresReconcileQueue {
	return &PostgresReconcileQueue{pool: pool}
}

// Enqueue stores a new reconcile job.
func (q *PostgresReconcileQueue) Enqueue(ctx context.Context, job models.ReconcileJob) error {
	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO reconcile_jobs (id, user_id, kind, plan_id, addon_id, amount,
                                    payment_request_id, attempts, last_error, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (payment_request_id) DO NOTHING
    `, job.ID, job.UserID, job.Kind, job.PlanID, job.AddonID, job.Amount,
		job.PaymentRequestID, job.Attempts, job.LastError, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert reconcile job: %w", err)
	}

	return nil
}

// Due fetches up to limit jobs, oldest first.
func (q *PostgresReconcileQueue) Due(ctx context.Context, limit int) ([]models.ReconcileJob, error) {
	if limit <= 0 {
		limit = 10
	}

	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, user_id, kind, plan_id, addon_id, amount, payment_request_id,
               attempts, last_error, created_at, updated_at
        FROM reconcile_jobs
        ORDER BY created_at ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("select reconcile jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ReconcileJob
	for rows.Next() {
		var job models.ReconcileJob
		if err := rows.Scan(&job.ID, &job.UserID, &job.Kind, &job.PlanID, &job.AddonID, &job.Amount,
			&job.PaymentRequestID, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reconcile job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconcile jobs: %w", err)
	}

	return jobs, nil
}

// MarkDone removes a successfully reconciled job.
func (q *PostgresReconcileQueue) MarkDone(ctx context.Context, jobID string) error {
	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM reconcile_jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete reconcile job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkFailed bumps the attempt counter and stores the latest error.
func (q *PostgresReconcileQueue) MarkFailed(ctx context.Context, jobID, lastError string) error {
	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE reconcile_jobs SET attempts = attempts + 1, last_error = $2, updated_at = NOW()
        WHERE id = $1
    `, jobID, lastError)
	if err != nil {
		return fmt.Errorf("update reconcile job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
