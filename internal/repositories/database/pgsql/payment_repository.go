package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/SscSPs/bank_mesh/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const paymentColumns = `payment_id, account_id, amount, kind, transfer_id, created_at, created_by,
	is_replica, origin_service, last_synced_at, version`

type PgxPaymentRepository struct {
	BaseRepository
}

func newPgxPaymentRepository(pool *pgxpool.Pool) *PgxPaymentRepository {
	return &PgxPaymentRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PaymentRepositoryFacade = (*PgxPaymentRepository)(nil)

func toModelPayment(d domain.Payment) models.Payment {
	var transferID *string
	if d.TransferID != "" {
		id := d.TransferID
		transferID = &id
	}
	return models.Payment{
		PaymentID:      d.PaymentID,
		AccountID:      d.AccountID,
		Amount:         d.Amount,
		Kind:           string(d.Kind),
		TransferID:     transferID,
		CreatedAt:      d.CreatedAt,
		CreatedBy:      d.CreatedBy,
		ReplicaColumns: toReplicaColumns(d.ReplicaMeta),
	}
}

func toDomainPayment(m models.Payment) domain.Payment {
	p := domain.Payment{
		PaymentID:   m.PaymentID,
		AccountID:   m.AccountID,
		Amount:      m.Amount,
		Kind:        domain.PaymentKind(m.Kind),
		CreatedAt:   m.CreatedAt,
		CreatedBy:   m.CreatedBy,
		ReplicaMeta: toReplicaMeta(m.ReplicaColumns),
	}
	if m.TransferID != nil {
		p.TransferID = *m.TransferID
	}
	return p
}

func scanPayment(row pgx.Row) (models.Payment, error) {
	var m models.Payment
	err := row.Scan(
		&m.PaymentID,
		&m.AccountID,
		&m.Amount,
		&m.Kind,
		&m.TransferID,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.IsReplica,
		&m.OriginService,
		&m.LastSyncedAt,
		&m.Version,
	)
	return m, err
}

func (r *PgxPaymentRepository) FindPaymentByID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1;`
	m, err := scanPayment(r.Pool.QueryRow(ctx, query, paymentID))
	if err != nil {
		return nil, mapError(err, "find payment "+paymentID)
	}
	p := toDomainPayment(m)
	return &p, nil
}

// ListPaymentsByAccounts pages newest first using a (created_at, payment_id) keyset.
func (r *PgxPaymentRepository) ListPaymentsByAccounts(ctx context.Context, accountIDs []string, allAccounts bool, limit int, after *portsrepo.PaymentCursor) ([]domain.Payment, error) {
	if !allAccounts && len(accountIDs) == 0 {
		return []domain.Payment{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var afterAt *time.Time
	var afterID *string
	if after != nil {
		afterAt = &after.CreatedAt
		afterID = &after.PaymentID
	}

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE ($1::boolean OR account_id = ANY($2))
		  AND ($3::timestamptz IS NULL OR (created_at, payment_id) < ($3::timestamptz, $4::text))
		ORDER BY created_at DESC, payment_id DESC
		LIMIT $5;
	`
	rows, err := r.Pool.Query(ctx, query, allAccounts, accountIDs, afterAt, afterID, limit)
	if err != nil {
		return nil, mapError(err, "list payments")
	}
	defer rows.Close()

	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Payment, error) {
		return scanPayment(row)
	})
	if err != nil {
		return nil, mapError(err, "scan payments")
	}
	out := make([]domain.Payment, len(ms))
	for i, m := range ms {
		out[i] = toDomainPayment(m)
	}
	return out, nil
}

// SumPaymentsByAccount derives an account balance from the ledger.
func (r *PgxPaymentRepository) SumPaymentsByAccount(ctx context.Context, accountID string) (decimal.Decimal, int, error) {
	var sum decimal.Decimal
	var count int
	err := r.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM payments WHERE account_id = $1;`,
		accountID,
	).Scan(&sum, &count)
	if err != nil {
		return decimal.Zero, 0, mapError(err, "sum payments of "+accountID)
	}
	return sum, count, nil
}
