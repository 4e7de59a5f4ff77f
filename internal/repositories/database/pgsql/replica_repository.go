package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxReplicaRepository upserts records owned by other services. Each batch
// is written in one transaction. The WHERE clause on every DO UPDATE keeps
// authoritative rows untouched and stops older versions from overwriting
// newer ones.
type PgxReplicaRepository struct {
	BaseRepository
}

func newPgxReplicaRepository(pool *pgxpool.Pool) *PgxReplicaRepository {
	return &PgxReplicaRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ReplicaWriter = (*PgxReplicaRepository)(nil)

const upsertClientSQL = `
	INSERT INTO clients (` + clientColumns + `)
	VALUES ($1, $2, $3, TRUE, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (client_id) DO UPDATE SET
		username = EXCLUDED.username,
		role = EXCLUDED.role,
		origin_service = EXCLUDED.origin_service,
		last_synced_at = EXCLUDED.last_synced_at,
		version = EXCLUDED.version,
		last_updated_at = EXCLUDED.last_updated_at,
		last_updated_by = EXCLUDED.last_updated_by,
		deleted_at = EXCLUDED.deleted_at
	WHERE clients.is_replica AND EXCLUDED.version >= clients.version;
`

const upsertAccountSQL = `
	INSERT INTO accounts (` + accountColumns + `)
	VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (account_id) DO UPDATE SET
		owner_id = EXCLUDED.owner_id,
		balance = EXCLUDED.balance,
		blocked = EXCLUDED.blocked,
		origin_service = EXCLUDED.origin_service,
		last_synced_at = EXCLUDED.last_synced_at,
		version = EXCLUDED.version,
		last_updated_at = EXCLUDED.last_updated_at,
		last_updated_by = EXCLUDED.last_updated_by,
		deleted_at = EXCLUDED.deleted_at
	WHERE accounts.is_replica AND EXCLUDED.version >= accounts.version;
`

// cvv_hash is never replicated; replicas keep whatever they had (empty).
const upsertCardSQL = `
	INSERT INTO credit_cards (` + cardColumns + `)
	VALUES ($1, $2, $3, $4, '', TRUE, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (card_id) DO UPDATE SET
		account_id = EXCLUDED.account_id,
		number = EXCLUDED.number,
		expiry = EXCLUDED.expiry,
		origin_service = EXCLUDED.origin_service,
		last_synced_at = EXCLUDED.last_synced_at,
		version = EXCLUDED.version,
		last_updated_at = EXCLUDED.last_updated_at,
		last_updated_by = EXCLUDED.last_updated_by,
		deleted_at = EXCLUDED.deleted_at
	WHERE credit_cards.is_replica AND EXCLUDED.version >= credit_cards.version;
`

const insertReplicaPaymentSQL = `
	INSERT INTO payments (` + paymentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10)
	ON CONFLICT DO NOTHING;
`

// orActor fills NOT NULL audit columns the origin left empty.
func orActor(actor, origin string) string {
	if actor == "" {
		return origin
	}
	return actor
}

func (r *PgxReplicaRepository) execBatch(ctx context.Context, batch *pgx.Batch, what string) (int, error) {
	if batch.Len() == 0 {
		return 0, nil
	}
	affected := 0
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			ct, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return mapError(err, what)
			}
			affected += int(ct.RowsAffected())
		}
		return mapError(br.Close(), what)
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *PgxReplicaRepository) UpsertClients(ctx context.Context, origin string, clients []domain.Client, syncedAt time.Time) (int, error) {
	batch := &pgx.Batch{}
	for _, c := range clients {
		batch.Queue(upsertClientSQL,
			c.ClientID, c.Username, string(c.Role),
			origin, syncedAt, c.Version,
			c.CreatedAt, orActor(c.CreatedBy, origin), c.LastUpdatedAt, orActor(c.LastUpdatedBy, origin), c.DeletedAt,
		)
	}
	return r.execBatch(ctx, batch, "upsert replica clients")
}

func (r *PgxReplicaRepository) UpsertAccounts(ctx context.Context, origin string, accounts []domain.Account, syncedAt time.Time) (int, error) {
	batch := &pgx.Batch{}
	for _, a := range accounts {
		batch.Queue(upsertAccountSQL,
			a.AccountID, a.OwnerID, a.Balance, a.Blocked,
			origin, syncedAt, a.Version,
			a.CreatedAt, orActor(a.CreatedBy, origin), a.LastUpdatedAt, orActor(a.LastUpdatedBy, origin), a.DeletedAt,
		)
	}
	return r.execBatch(ctx, batch, "upsert replica accounts")
}

func (r *PgxReplicaRepository) UpsertCreditCards(ctx context.Context, origin string, cards []domain.CreditCard, syncedAt time.Time) (int, error) {
	batch := &pgx.Batch{}
	for _, c := range cards {
		batch.Queue(upsertCardSQL,
			c.CardID, c.AccountID, c.Number, c.Expiry,
			origin, syncedAt, c.Version,
			c.CreatedAt, orActor(c.CreatedBy, origin), c.LastUpdatedAt, orActor(c.LastUpdatedBy, origin), c.DeletedAt,
		)
	}
	return r.execBatch(ctx, batch, "upsert replica credit cards")
}

func (r *PgxReplicaRepository) UpsertPayments(ctx context.Context, origin string, payments []domain.Payment, syncedAt time.Time) (int, error) {
	batch := &pgx.Batch{}
	for _, p := range payments {
		m := toModelPayment(p)
		batch.Queue(insertReplicaPaymentSQL,
			m.PaymentID, m.AccountID, m.Amount, m.Kind, m.TransferID, m.CreatedAt, orActor(m.CreatedBy, origin),
			origin, syncedAt, m.Version,
		)
	}
	return r.execBatch(ctx, batch, "insert replica payments")
}
