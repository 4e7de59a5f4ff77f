package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/SscSPs/bank_mesh/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cardColumns = `card_id, account_id, number, expiry, cvv_hash, is_replica, origin_service, last_synced_at, version,
	created_at, created_by, last_updated_at, last_updated_by, deleted_at`

type PgxCreditCardRepository struct {
	BaseRepository
}

func newPgxCreditCardRepository(pool *pgxpool.Pool) *PgxCreditCardRepository {
	return &PgxCreditCardRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CreditCardRepositoryFacade = (*PgxCreditCardRepository)(nil)

func toModelCard(d domain.CreditCard) models.CreditCard {
	return models.CreditCard{
		CardID:         d.CardID,
		AccountID:      d.AccountID,
		Number:         d.Number,
		Expiry:         d.Expiry,
		CVVHash:        d.CVVHash,
		ReplicaColumns: toReplicaColumns(d.ReplicaMeta),
		AuditFields:    toModelAudit(d.AuditFields),
		DeletedAt:      d.DeletedAt,
	}
}

func toDomainCard(m models.CreditCard) domain.CreditCard {
	return domain.CreditCard{
		CardID:      m.CardID,
		AccountID:   m.AccountID,
		Number:      m.Number,
		Expiry:      m.Expiry,
		CVVHash:     m.CVVHash,
		ReplicaMeta: toReplicaMeta(m.ReplicaColumns),
		AuditFields: toDomainAudit(m.AuditFields),
		DeletedAt:   m.DeletedAt,
	}
}

func scanCard(row pgx.Row) (models.CreditCard, error) {
	var m models.CreditCard
	err := row.Scan(
		&m.CardID,
		&m.AccountID,
		&m.Number,
		&m.Expiry,
		&m.CVVHash,
		&m.IsReplica,
		&m.OriginService,
		&m.LastSyncedAt,
		&m.Version,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.DeletedAt,
	)
	return m, err
}

func (r *PgxCreditCardRepository) queryCards(ctx context.Context, query string, args ...any) ([]domain.CreditCard, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query credit cards")
	}
	defer rows.Close()

	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CreditCard, error) {
		return scanCard(row)
	})
	if err != nil {
		return nil, mapError(err, "scan credit cards")
	}
	out := make([]domain.CreditCard, len(ms))
	for i, m := range ms {
		out[i] = toDomainCard(m)
	}
	return out, nil
}

func (r *PgxCreditCardRepository) FindCardByID(ctx context.Context, cardID string) (*domain.CreditCard, error) {
	query := `SELECT ` + cardColumns + ` FROM credit_cards WHERE card_id = $1 AND deleted_at IS NULL;`
	m, err := scanCard(r.Pool.QueryRow(ctx, query, cardID))
	if err != nil {
		return nil, mapError(err, "find credit card "+cardID)
	}
	c := toDomainCard(m)
	return &c, nil
}

func (r *PgxCreditCardRepository) ListCardsByAccounts(ctx context.Context, accountIDs []string) ([]domain.CreditCard, error) {
	if len(accountIDs) == 0 {
		return []domain.CreditCard{}, nil
	}
	query := `
		SELECT ` + cardColumns + `
		FROM credit_cards
		WHERE account_id = ANY($1) AND deleted_at IS NULL
		ORDER BY created_at, card_id;
	`
	return r.queryCards(ctx, query, accountIDs)
}

func (r *PgxCreditCardRepository) ListCards(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.CreditCard, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + cardColumns + `
		FROM credit_cards
		WHERE ($1 OR deleted_at IS NULL)
		ORDER BY created_at, card_id
		LIMIT $2 OFFSET $3;
	`
	return r.queryCards(ctx, query, includeDeleted, limit, offset)
}

func (r *PgxCreditCardRepository) SaveCard(ctx context.Context, card domain.CreditCard) error {
	m := toModelCard(card)
	query := `
		INSERT INTO credit_cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.CardID, m.AccountID, m.Number, m.Expiry, m.CVVHash,
		m.IsReplica, m.OriginService, m.LastSyncedAt, m.Version,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.DeletedAt,
	)
	return mapError(err, "save credit card "+card.CardID)
}

// UpdateCard only touches authoritative rows.
func (r *PgxCreditCardRepository) UpdateCard(ctx context.Context, card domain.CreditCard) error {
	query := `
		UPDATE credit_cards
		SET number = $2, expiry = $3, cvv_hash = $4, last_updated_at = $5, last_updated_by = $6, version = version + 1
		WHERE card_id = $1 AND deleted_at IS NULL AND is_replica = FALSE;
	`
	tag, err := r.Pool.Exec(ctx, query, card.CardID, card.Number, card.Expiry, card.CVVHash, card.LastUpdatedAt, card.LastUpdatedBy)
	if err != nil {
		return mapError(err, "update credit card "+card.CardID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxCreditCardRepository) MarkCardDeleted(ctx context.Context, cardID string, actor string, now time.Time) error {
	query := `
		UPDATE credit_cards
		SET deleted_at = $2, last_updated_at = $2, last_updated_by = $3, version = version + 1
		WHERE card_id = $1 AND deleted_at IS NULL AND is_replica = FALSE;
	`
	tag, err := r.Pool.Exec(ctx, query, cardID, now, actor)
	if err != nil {
		return mapError(err, "delete credit card "+cardID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
