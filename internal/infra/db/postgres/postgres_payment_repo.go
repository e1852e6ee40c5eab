package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, provider, order_id, msisdn, amount, currency, status, transaction_id, idempotency_key, verification, failure_code, description, created_at, updated_at, confirmed_at`

func (r *paymentRepo) Save(ctx context.Context, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, provider, order_id, msisdn, amount, currency, status, transaction_id, idempotency_key, verification, failure_code, description, created_at, updated_at, confirmed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO UPDATE SET
  status=$7, transaction_id=$8, failure_code=$11, updated_at=$14, confirmed_at=$15;`

	_, err := r.pool.Exec(ctx, q,
		p.ID, p.Provider, p.OrderID, p.Msisdn, p.Amount, p.Currency, p.Status,
		p.TransactionID, p.IdempotencyKey, p.Verification, p.FailureCode,
		p.Description, p.CreatedAt, p.UpdatedAt, p.ConfirmedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1;`
	return r.scanOne(r.pool.QueryRow(ctx, q, id))
}

func (r *paymentRepo) FindByTransactionID(ctx context.Context, provider model.Provider, transactionID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE provider=$1 AND transaction_id=$2 LIMIT 1;`
	return r.scanOne(r.pool.QueryRow(ctx, q, provider, transactionID))
}

func (r *paymentRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key=$1 LIMIT 1;`
	return r.scanOne(r.pool.QueryRow(ctx, q, key))
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, id string, status model.PaymentStatus, failureCode string, confirmedAt *time.Time) error {
	const q = `UPDATE payments SET status=$2, failure_code=COALESCE(NULLIF($3,''), failure_code), confirmed_at=COALESCE($4, confirmed_at), updated_at=NOW() WHERE id=$1;`
	_, err := r.pool.Exec(ctx, q, id, status, failureCode, confirmedAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) SumByPeriod(ctx context.Context, provider model.Provider, period string) (float64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE provider=$1 AND status='succeeded' AND confirmed_at >= DATE_TRUNC($2, NOW());`
	var sum float64
	if err := r.pool.QueryRow(ctx, q, provider, period).Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *paymentRepo) scanOne(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.Provider, &p.OrderID, &p.Msisdn, &p.Amount,
		&p.Currency, &p.Status, &p.TransactionID, &p.IdempotencyKey,
		&p.Verification, &p.FailureCode, &p.Description, &p.CreatedAt,
		&p.UpdatedAt, &p.ConfirmedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
