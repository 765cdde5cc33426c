package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// OAuthClientRepositoryPostgres implements repository.OAuthClientRepository
// for PostgreSQL. Redirect URIs, scopes and grant types are stored as text
// arrays.
type OAuthClientRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewOAuthClientRepositoryPostgres creates a new OAuthClientRepositoryPostgres.
func NewOAuthClientRepositoryPostgres(pool *pgxpool.Pool) *OAuthClientRepositoryPostgres {
	return &OAuthClientRepositoryPostgres{pool: pool}
}

const clientColumns = `id, client_id, secret_hash, name, redirect_uris, scopes, grant_types,
	require_pkce, is_active, created_by, created_at, updated_at`

func scanClient(row pgx.Row) (*models.OAuthClient, error) {
	var c models.OAuthClient
	err := row.Scan(
		&c.ID, &c.ClientID, &c.SecretHash, &c.Name, &c.RedirectURIs, &c.Scopes,
		&c.GrantTypes, &c.RequirePKCE, &c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("scan oauth client: %w", err)
	}
	return &c, nil
}

func (r *OAuthClientRepositoryPostgres) Create(ctx context.Context, client *models.OAuthClient) error {
	query := `
		INSERT INTO oauth_clients (id, client_id, secret_hash, name, redirect_uris, scopes, grant_types, require_pkce, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
	`
	_, err := r.pool.Exec(ctx, query,
		client.ID, client.ClientID, client.SecretHash, client.Name,
		client.RedirectURIs, client.Scopes, client.GrantTypes,
		client.RequirePKCE, client.IsActive, client.CreatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainErrors.ErrAlreadyExists
		}
		return fmt.Errorf("create oauth client: %w", err)
	}
	return nil
}

func (r *OAuthClientRepositoryPostgres) FindByClientID(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	query := `SELECT ` + clientColumns + ` FROM oauth_clients WHERE client_id = $1`
	return scanClient(r.pool.QueryRow(ctx, query, clientID))
}

func (r *OAuthClientRepositoryPostgres) FindByID(ctx context.Context, id uuid.UUID) (*models.OAuthClient, error) {
	query := `SELECT ` + clientColumns + ` FROM oauth_clients WHERE id = $1`
	return scanClient(r.pool.QueryRow(ctx, query, id))
}

func (r *OAuthClientRepositoryPostgres) List(ctx context.Context, activeOnly bool) ([]*models.OAuthClient, error) {
	query := `SELECT ` + clientColumns + ` FROM oauth_clients`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list oauth clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.OAuthClient
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *OAuthClientRepositoryPostgres) Update(ctx context.Context, client *models.OAuthClient) error {
	query := `
		UPDATE oauth_clients SET
			name = $2, redirect_uris = $3, scopes = $4, grant_types = $5,
			require_pkce = $6, is_active = $7, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		client.ID, client.Name, client.RedirectURIs, client.Scopes,
		client.GrantTypes, client.RequirePKCE, client.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update oauth client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrClientNotFound
	}
	return nil
}

func (r *OAuthClientRepositoryPostgres) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE oauth_clients SET is_active = false, updated_at = now() WHERE id = $1 AND is_active = true`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate oauth client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrClientNotFound
	}
	return nil
}
