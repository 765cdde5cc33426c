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

// ScopeRepositoryPostgres implements repository.ScopeRepository for
// PostgreSQL.
type ScopeRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewScopeRepositoryPostgres creates a new ScopeRepositoryPostgres.
func NewScopeRepositoryPostgres(pool *pgxpool.Pool) *ScopeRepositoryPostgres {
	return &ScopeRepositoryPostgres{pool: pool}
}

const scopeColumns = `id, name, display_name, description, category, required, is_default, permissions, is_active, created_at, updated_at`

func scanScope(row pgx.Row) (*models.ScopeDefinition, error) {
	var s models.ScopeDefinition
	err := row.Scan(
		&s.ID, &s.Name, &s.DisplayName, &s.Description, &s.Category,
		&s.Required, &s.Default, &s.Permissions, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrScopeNotFound
		}
		return nil, fmt.Errorf("scan scope: %w", err)
	}
	return &s, nil
}

func (r *ScopeRepositoryPostgres) Create(ctx context.Context, scope *models.ScopeDefinition) error {
	query := `
		INSERT INTO scope_definitions (id, name, display_name, description, category, required, is_default, permissions, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`
	_, err := r.pool.Exec(ctx, query,
		scope.ID, scope.Name, scope.DisplayName, scope.Description, scope.Category,
		scope.Required, scope.Default, scope.Permissions, scope.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainErrors.ErrAlreadyExists
		}
		return fmt.Errorf("create scope: %w", err)
	}
	return nil
}

func (r *ScopeRepositoryPostgres) FindByName(ctx context.Context, name string) (*models.ScopeDefinition, error) {
	query := `SELECT ` + scopeColumns + ` FROM scope_definitions WHERE name = $1 AND is_active = true`
	return scanScope(r.pool.QueryRow(ctx, query, name))
}

func (r *ScopeRepositoryPostgres) FindByNames(ctx context.Context, names []string) ([]*models.ScopeDefinition, error) {
	query := `SELECT ` + scopeColumns + ` FROM scope_definitions WHERE name = ANY($1) AND is_active = true`
	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("find scopes by names: %w", err)
	}
	defer rows.Close()

	var scopes []*models.ScopeDefinition
	for rows.Next() {
		s, err := scanScope(rows)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}

func (r *ScopeRepositoryPostgres) List(ctx context.Context, activeOnly bool) ([]*models.ScopeDefinition, error) {
	query := `SELECT ` + scopeColumns + ` FROM scope_definitions`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY category, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	defer rows.Close()

	var scopes []*models.ScopeDefinition
	for rows.Next() {
		s, err := scanScope(rows)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}

func (r *ScopeRepositoryPostgres) Update(ctx context.Context, scope *models.ScopeDefinition) error {
	query := `
		UPDATE scope_definitions SET
			display_name = $2, description = $3, category = $4, required = $5,
			is_default = $6, permissions = $7, is_active = $8, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		scope.ID, scope.DisplayName, scope.Description, scope.Category,
		scope.Required, scope.Default, scope.Permissions, scope.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update scope: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrScopeNotFound
	}
	return nil
}

func (r *ScopeRepositoryPostgres) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE scope_definitions SET is_active = false, updated_at = now() WHERE id = $1 AND is_active = true`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate scope: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrScopeNotFound
	}
	return nil
}
