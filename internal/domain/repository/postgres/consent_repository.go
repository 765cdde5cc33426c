package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// ConsentRepositoryPostgres implements repository.ConsentRepository for
// PostgreSQL. A partial unique index on (user_id, client_id) WHERE NOT
// revoked enforces the single-active-row invariant.
type ConsentRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewConsentRepositoryPostgres creates a new ConsentRepositoryPostgres.
func NewConsentRepositoryPostgres(pool *pgxpool.Pool) *ConsentRepositoryPostgres {
	return &ConsentRepositoryPostgres{pool: pool}
}

const consentColumns = `id, user_id, client_id, granted_scopes, remember, revoked, granted_at, revoked_at, updated_at`

func scanConsent(row pgx.Row) (*models.UserConsent, error) {
	var c models.UserConsent
	err := row.Scan(
		&c.ID, &c.UserID, &c.ClientID, &c.GrantedScopes, &c.Remember,
		&c.Revoked, &c.GrantedAt, &c.RevokedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan consent: %w", err)
	}
	return &c, nil
}

// Upsert replaces the active consent row for (user, client): the previous
// active row, if any, is updated in place so history of revoked rows stays.
func (r *ConsentRepositoryPostgres) Upsert(ctx context.Context, consent *models.UserConsent) error {
	query := `
		INSERT INTO user_consents (id, user_id, client_id, granted_scopes, remember, revoked, granted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, false, $6, $6)
		ON CONFLICT (user_id, client_id) WHERE NOT revoked
		DO UPDATE SET granted_scopes = EXCLUDED.granted_scopes,
		              remember = EXCLUDED.remember,
		              updated_at = EXCLUDED.updated_at
	`
	if consent.GrantedAt.IsZero() {
		consent.GrantedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, query,
		consent.ID, consent.UserID, consent.ClientID, consent.GrantedScopes,
		consent.Remember, consent.GrantedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert consent: %w", err)
	}
	return nil
}

func (r *ConsentRepositoryPostgres) FindActive(ctx context.Context, userID, clientID uuid.UUID) (*models.UserConsent, error) {
	query := `SELECT ` + consentColumns + ` FROM user_consents WHERE user_id = $1 AND client_id = $2 AND revoked = false`
	return scanConsent(r.pool.QueryRow(ctx, query, userID, clientID))
}

func (r *ConsentRepositoryPostgres) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserConsent, error) {
	query := `SELECT ` + consentColumns + ` FROM user_consents WHERE user_id = $1 AND revoked = false ORDER BY granted_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var consents []*models.UserConsent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		consents = append(consents, c)
	}
	return consents, rows.Err()
}

func (r *ConsentRepositoryPostgres) Revoke(ctx context.Context, userID, clientID uuid.UUID) error {
	query := `UPDATE user_consents SET revoked = true, revoked_at = now(), updated_at = now() WHERE user_id = $1 AND client_id = $2 AND revoked = false`
	tag, err := r.pool.Exec(ctx, query, userID, clientID)
	if err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *ConsentRepositoryPostgres) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE user_consents SET revoked = true, revoked_at = now(), updated_at = now() WHERE user_id = $1 AND revoked = false`
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all consents: %w", err)
	}
	return tag.RowsAffected(), nil
}
