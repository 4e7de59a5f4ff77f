package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/SscSPs/bank_mesh/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const clientColumns = `client_id, username, role, is_replica, origin_service, last_synced_at, version,
	created_at, created_by, last_updated_at, last_updated_by, deleted_at`

type PgxClientRepository struct {
	BaseRepository
}

func newPgxClientRepository(pool *pgxpool.Pool) *PgxClientRepository {
	return &PgxClientRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxClientRepository implements portsrepo.ClientRepositoryFacade
var _ portsrepo.ClientRepositoryFacade = (*PgxClientRepository)(nil)

func toModelClient(d domain.Client) models.Client {
	return models.Client{
		ClientID:       d.ClientID,
		Username:       d.Username,
		Role:           string(d.Role),
		ReplicaColumns: toReplicaColumns(d.ReplicaMeta),
		AuditFields:    toModelAudit(d.AuditFields),
		DeletedAt:      d.DeletedAt,
	}
}

func toDomainClient(m models.Client) domain.Client {
	return domain.Client{
		ClientID:    m.ClientID,
		Username:    m.Username,
		Role:        domain.Role(m.Role),
		ReplicaMeta: toReplicaMeta(m.ReplicaColumns),
		AuditFields: toDomainAudit(m.AuditFields),
		DeletedAt:   m.DeletedAt,
	}
}

func scanClient(row pgx.Row) (models.Client, error) {
	var m models.Client
	err := row.Scan(
		&m.ClientID,
		&m.Username,
		&m.Role,
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

func (r *PgxClientRepository) findOne(ctx context.Context, where string, arg any) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + where + ` AND deleted_at IS NULL;`
	m, err := scanClient(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError(err, "find client")
	}
	c := toDomainClient(m)
	return &c, nil
}

// FindClientByID retrieves a live client by id.
func (r *PgxClientRepository) FindClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	return r.findOne(ctx, "client_id = $1", clientID)
}

// FindClientByUsername retrieves a live client by username.
func (r *PgxClientRepository) FindClientByUsername(ctx context.Context, username string) (*domain.Client, error) {
	return r.findOne(ctx, "username = $1", username)
}

func (r *PgxClientRepository) ListClients(ctx context.Context, limit int, offset int, includeDeleted bool) ([]domain.Client, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE ($1 OR deleted_at IS NULL)
		ORDER BY created_at, client_id
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.Pool.Query(ctx, query, includeDeleted, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Client, error) {
		return scanClient(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan clients: %w", err)
	}
	out := make([]domain.Client, len(ms))
	for i, m := range ms {
		out[i] = toDomainClient(m)
	}
	return out, nil
}

// InsertClientIfAbsent relies on the unique username index so concurrent
// first logins on different instances converge on one row.
func (r *PgxClientRepository) InsertClientIfAbsent(ctx context.Context, client domain.Client) (bool, error) {
	m := toModelClient(client)
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (username) DO NOTHING;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.ClientID, m.Username, m.Role,
		m.IsReplica, m.OriginService, m.LastSyncedAt, m.Version,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.DeletedAt,
	)
	if err != nil {
		return false, mapError(err, "insert client "+client.Username)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgxClientRepository) MarkClientDeleted(ctx context.Context, clientID string, actor string, now time.Time) error {
	query := `
		UPDATE clients
		SET deleted_at = $2, last_updated_at = $2, last_updated_by = $3, version = version + 1
		WHERE client_id = $1 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, clientID, now, actor)
	if err != nil {
		return mapError(err, "delete client "+clientID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func toModelAudit(a domain.AuditFields) models.AuditFields {
	return models.AuditFields{
		CreatedAt:     a.CreatedAt,
		CreatedBy:     a.CreatedBy,
		LastUpdatedAt: a.LastUpdatedAt,
		LastUpdatedBy: a.LastUpdatedBy,
	}
}

func toDomainAudit(a models.AuditFields) domain.AuditFields {
	return domain.AuditFields{
		CreatedAt:     a.CreatedAt,
		CreatedBy:     a.CreatedBy,
		LastUpdatedAt: a.LastUpdatedAt,
		LastUpdatedBy: a.LastUpdatedBy,
	}
}

func toReplicaColumns(r domain.ReplicaMeta) models.ReplicaColumns {
	return models.ReplicaColumns{
		IsReplica:     r.IsReplica,
		OriginService: r.OriginService,
		LastSyncedAt:  r.LastSyncedAt,
		Version:       r.Version,
	}
}

func toReplicaMeta(r models.ReplicaColumns) domain.ReplicaMeta {
	return domain.ReplicaMeta{
		IsReplica:     r.IsReplica,
		OriginService: r.OriginService,
		LastSyncedAt:  r.LastSyncedAt,
		Version:       r.Version,
	}
}
