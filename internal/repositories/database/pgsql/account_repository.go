package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/SscSPs/bank_mesh/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `account_id, owner_id, balance, blocked, is_replica, origin_service, last_synced_at, version,
	created_at, created_by, last_updated_at, last_updated_by, deleted_at`

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

// Helper to convert domain.Account to models.Account for DB storage
func toModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:      d.AccountID,
		OwnerID:        d.OwnerID,
		Balance:        d.Balance,
		Blocked:        d.Blocked,
		ReplicaColumns: toReplicaColumns(d.ReplicaMeta),
		AuditFields:    toModelAudit(d.AuditFields),
		DeletedAt:      d.DeletedAt,
	}
}

// Helper to convert models.Account from DB to domain.Account
func toDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:   m.AccountID,
		OwnerID:     m.OwnerID,
		Balance:     m.Balance,
		Blocked:     m.Blocked,
		ReplicaMeta: toReplicaMeta(m.ReplicaColumns),
		AuditFields: toDomainAudit(m.AuditFields),
		DeletedAt:   m.DeletedAt,
	}
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.OwnerID,
		&m.Balance,
		&m.Blocked,
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

// queryAccounts runs a SELECT returning accountColumns and converts the rows.
func queryAccounts(ctx context.Context, q querier, query string, args ...any) ([]domain.Account, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query accounts")
	}
	defer rows.Close()

	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Account, error) {
		return scanAccount(row)
	})
	if err != nil {
		return nil, mapError(err, "scan accounts")
	}
	out := make([]domain.Account, len(ms))
	for i, m := range ms {
		out[i] = toDomainAccount(m)
	}
	return out, nil
}

// FindAccountByID retrieves a live account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 AND deleted_at IS NULL;`
	m, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		return nil, mapError(err, "find account "+accountID)
	}
	acc := toDomainAccount(m)
	return &acc, nil
}

// FindAccountsByIDs retrieves multiple accounts by their IDs. Missing ids are
// simply absent from the map; the caller decides whether that is an error.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1) AND deleted_at IS NULL;`
	accounts, err := queryAccounts(ctx, r.Pool, query, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by IDs: %w", err)
	}
	out := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		out[a.AccountID] = a
	}
	return out, nil
}

func (r *PgxAccountRepository) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, account_id;
	`
	return queryAccounts(ctx, r.Pool, query, ownerID)
}

// ListAccounts retrieves a page of accounts in creation order.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE ($1 OR deleted_at IS NULL)
		ORDER BY created_at, account_id
		LIMIT $2 OFFSET $3;
	`
	return queryAccounts(ctx, r.Pool, query, includeDeleted, limit, offset)
}
