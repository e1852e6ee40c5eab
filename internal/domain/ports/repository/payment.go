package repository

import (
	"context"
	"time"

	"momo-gateway/internal/domain/model"
)

// PaymentRepository stores the gateway's record of every initiated charge.
type PaymentRepository interface {
	Save(ctx context.Context, p *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindByTransactionID(ctx context.Context, provider model.Provider, transactionID string) (*model.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, id string, status model.PaymentStatus, failureCode string, confirmedAt *time.Time) error
	SumByPeriod(ctx context.Context, provider model.Provider, period string) (float64, error)
}
