package pgsql

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	"github.com/SscSPs/bank_mesh/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

// PgxLedgerStore runs ledger transactions with row locks and bounded retry.
type PgxLedgerStore struct {
	BaseRepository
	maxAttempts int
	lockTimeout time.Duration
	retryDelay  time.Duration
	attempt     func(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error
}

// LedgerOption configures the ledger store.
type LedgerOption func(*PgxLedgerStore)

// WithMaxAttempts sets how often a contended transaction is attempted.
func WithMaxAttempts(n int) LedgerOption {
	return func(s *PgxLedgerStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) LedgerOption {
	return func(s *PgxLedgerStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

func newPgxLedgerStore(pool *pgxpool.Pool, opts ...LedgerOption) *PgxLedgerStore {
	s := &PgxLedgerStore{
		BaseRepository: BaseRepository{Pool: pool},
		maxAttempts:    3,
		lockTimeout:    2 * time.Second,
		retryDelay:     20 * time.Millisecond,
	}
	s.attempt = s.runOnce
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portsrepo.LedgerStore = (*PgxLedgerStore)(nil)

// RunInTx retries serialization failures, deadlocks and lock timeouts, then
// gives up with apperrors.ErrContention. Other errors are returned as is.
func (s *PgxLedgerStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	b := retry.NewExponential(s.retryDelay)
	b = retry.WithJitter(s.retryDelay, b)
	b = retry.WithMaxRetries(uint64(s.maxAttempts-1), b)

	attempt := 0
	contended := false
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := s.attempt(ctx, fn)
		if err == nil || !isRetryable(err) {
			contended = false
			return err
		}
		contended = true
		metrics.LedgerRetriesTotal.Inc()
		slog.WarnContext(ctx, "Ledger transaction contended", "attempt", attempt, "max_attempts", s.maxAttempts, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil && contended && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", apperrors.ErrContention, err)
	}
	return err
}

func (s *PgxLedgerStore) runOnce(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		// SET LOCAL does not accept parameters; set_config with is_local=true is equivalent.
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true);`,
			fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())); err != nil {
			return mapError(err, "set lock timeout")
		}
		return fn(ctx, &pgxLedgerTx{tx: tx})
	})
}

type pgxLedgerTx struct {
	tx pgx.Tx
}

var _ portsrepo.LedgerTx = (*pgxLedgerTx)(nil)

// LockClient takes a transaction-scoped advisory lock; the client row may
// not exist locally yet.
func (t *pgxLedgerTx) LockClient(ctx context.Context, clientID string) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('client:' || $1));`, clientID)
	return mapError(err, "lock client "+clientID)
}

func (t *pgxLedgerTx) CountLiveAccountsByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE owner_id = $1 AND deleted_at IS NULL;`, ownerID,
	).Scan(&n)
	if err != nil {
		return 0, mapError(err, "count accounts of "+ownerID)
	}
	return n, nil
}

func (t *pgxLedgerTx) InsertAccount(ctx context.Context, account domain.Account) error {
	m := toModelAccount(account)
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := t.tx.Exec(ctx, query,
		m.AccountID, m.OwnerID, m.Balance, m.Blocked,
		m.IsReplica, m.OriginService, m.LastSyncedAt, m.Version,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.DeletedAt,
	)
	return mapError(err, "insert account "+account.AccountID)
}

// LockAccounts locks rows FOR UPDATE. ORDER BY makes Postgres acquire the
// row locks in ascending id order, which rules out lock-order deadlocks
// between opposing transfers.
func (t *pgxLedgerTx) LockAccounts(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}
	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE;
	`
	accounts, err := queryAccounts(ctx, t.tx, query, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		out[a.AccountID] = a
	}
	if len(out) != len(ids) {
		slog.DebugContext(ctx, "Some accounts requested for update lock were not found", "requested", ids, "found", len(out))
	}
	return out, nil
}

// ApplyBalanceChanges updates balances for multiple accounts within the transaction.
func (t *pgxLedgerTx) ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, actor string, now time.Time) error {
	if len(changes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(changes))
	for id := range changes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	query := `
		UPDATE accounts
		SET balance = balance + $2, last_updated_at = $3, last_updated_by = $4, version = version + 1
		WHERE account_id = $1 AND is_replica = FALSE;
	`
	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(query, id, changes[id], now, actor)
	}

	br := t.tx.SendBatch(ctx, batch)
	var batchErr error
	for _, id := range ids {
		ct, err := br.Exec()
		if err != nil {
			if batchErr == nil {
				batchErr = mapError(err, "update balance of "+id)
			}
		} else if ct.RowsAffected() == 0 && batchErr == nil {
			batchErr = fmt.Errorf("%w: account %s not found during balance update", apperrors.ErrNotFound, id)
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = mapError(err, "close balance update batch")
	}
	return batchErr
}

func (t *pgxLedgerTx) UpdateAccountState(ctx context.Context, account domain.Account) error {
	query := `
		UPDATE accounts
		SET blocked = $2, deleted_at = $3, last_updated_at = $4, last_updated_by = $5, version = version + 1
		WHERE account_id = $1 AND is_replica = FALSE;
	`
	tag, err := t.tx.Exec(ctx, query, account.AccountID, account.Blocked, account.DeletedAt, account.LastUpdatedAt, account.LastUpdatedBy)
	if err != nil {
		return mapError(err, "update account "+account.AccountID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// InsertPayments skips transfer legs that were already recorded, which is
// what makes the cross-service credit endpoint idempotent.
func (t *pgxLedgerTx) InsertPayments(ctx context.Context, payments []domain.Payment) (int, error) {
	if len(payments) == 0 {
		return 0, nil
	}
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (account_id, transfer_id, kind) DO NOTHING;
	`
	batch := &pgx.Batch{}
	for _, p := range payments {
		m := toModelPayment(p)
		batch.Queue(query,
			m.PaymentID, m.AccountID, m.Amount, m.Kind, m.TransferID, m.CreatedAt, m.CreatedBy,
			m.IsReplica, m.OriginService, m.LastSyncedAt, m.Version,
		)
	}

	br := t.tx.SendBatch(ctx, batch)
	inserted := 0
	var batchErr error
	for _, p := range payments {
		ct, err := br.Exec()
		if err != nil {
			if batchErr == nil {
				batchErr = mapError(err, "insert payment "+p.PaymentID)
			}
			continue
		}
		inserted += int(ct.RowsAffected())
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = mapError(err, "close payment batch")
	}
	if batchErr != nil {
		return 0, batchErr
	}
	return inserted, nil
}

func (t *pgxLedgerTx) FindPaymentForUpdate(ctx context.Context, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1 FOR UPDATE;`
	m, err := scanPayment(t.tx.QueryRow(ctx, query, paymentID))
	if err != nil {
		return nil, mapError(err, "lock payment "+paymentID)
	}
	p := toDomainPayment(m)
	return &p, nil
}

func (t *pgxLedgerTx) DeletePayment(ctx context.Context, paymentID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM payments WHERE payment_id = $1;`, paymentID)
	if err != nil {
		return mapError(err, "delete payment "+paymentID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
