package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// ExternalAccountRepositoryPostgres implements
// repository.ExternalAccountRepository for PostgreSQL.
type ExternalAccountRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewExternalAccountRepositoryPostgres creates a new
// ExternalAccountRepositoryPostgres.
func NewExternalAccountRepositoryPostgres(pool *pgxpool.Pool) *ExternalAccountRepositoryPostgres {
	return &ExternalAccountRepositoryPostgres{pool: pool}
}

const externalAccountColumns = `id, user_id, provider, provider_user_id, provider_display, is_primary, linked_at`

func scanExternalAccount(row pgx.Row) (*models.ExternalAccount, error) {
	var a models.ExternalAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID, &a.ProviderDisplay, &a.IsPrimary, &a.LinkedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan external account: %w", err)
	}
	return &a, nil
}

func (r *ExternalAccountRepositoryPostgres) Create(ctx context.Context, account *models.ExternalAccount) error {
	query := `
		INSERT INTO external_accounts (id, user_id, provider, provider_user_id, provider_display, is_primary, linked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if account.LinkedAt.IsZero() {
		account.LinkedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, query,
		account.ID, account.UserID, account.Provider, account.ProviderUserID,
		account.ProviderDisplay, account.IsPrimary, account.LinkedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainErrors.ErrIdentityAlreadyLinked
		}
		return fmt.Errorf("create external account: %w", err)
	}
	return nil
}

func (r *ExternalAccountRepositoryPostgres) FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.ExternalAccount, error) {
	query := `SELECT ` + externalAccountColumns + ` FROM external_accounts WHERE provider = $1 AND provider_user_id = $2`
	return scanExternalAccount(r.pool.QueryRow(ctx, query, provider, providerUserID))
}

func (r *ExternalAccountRepositoryPostgres) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.ExternalAccount, error) {
	query := `SELECT ` + externalAccountColumns + ` FROM external_accounts WHERE user_id = $1 ORDER BY linked_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ExternalAccountRepositoryPostgres) ListByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) ([]models.ExternalAccount, error) {
	query := `SELECT ` + externalAccountColumns + ` FROM external_accounts WHERE user_id = $1 AND provider = $2 ORDER BY linked_at DESC`
	return r.list(ctx, query, userID, provider)
}

func (r *ExternalAccountRepositoryPostgres) list(ctx context.Context, query string, args ...interface{}) ([]models.ExternalAccount, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list external accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.ExternalAccount
	for rows.Next() {
		a, err := scanExternalAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (r *ExternalAccountRepositoryPostgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM external_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete external account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *ExternalAccountRepositoryPostgres) DeleteByKey(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	query := `DELETE FROM external_accounts WHERE user_id = $1 AND provider = $2 AND provider_user_id = $3`
	tag, err := r.pool.Exec(ctx, query, userID, provider, providerUserID)
	if err != nil {
		return fmt.Errorf("delete external account by key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *ExternalAccountRepositoryPostgres) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM external_accounts WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all external accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ExternalAccountRepositoryPostgres) SetPrimary(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set primary: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE external_accounts SET is_primary = false WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear primary flags: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE external_accounts SET is_primary = true WHERE user_id = $1 AND provider = $2 AND provider_user_id = $3`,
		userID, provider, providerUserID,
	)
	if err != nil {
		return fmt.Errorf("set primary flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return tx.Commit(ctx)
}
