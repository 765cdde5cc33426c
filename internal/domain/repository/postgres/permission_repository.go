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

// PermissionRepositoryPostgres implements repository.PermissionRepository
// for PostgreSQL.
type PermissionRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewPermissionRepositoryPostgres creates a new PermissionRepositoryPostgres.
func NewPermissionRepositoryPostgres(pool *pgxpool.Pool) *PermissionRepositoryPostgres {
	return &PermissionRepositoryPostgres{pool: pool}
}

const permissionColumns = `id, user_id, permission, granted_by, granted_at, expires_at, revoked, revoked_at`

func scanPermission(row pgx.Row) (*models.UserPermission, error) {
	var p models.UserPermission
	err := row.Scan(&p.ID, &p.UserID, &p.Permission, &p.GrantedBy, &p.GrantedAt, &p.ExpiresAt, &p.Revoked, &p.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan permission: %w", err)
	}
	return &p, nil
}

func (r *PermissionRepositoryPostgres) Grant(ctx context.Context, grant *models.UserPermission) error {
	query := `
		INSERT INTO user_permissions (id, user_id, permission, granted_by, granted_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		ON CONFLICT (user_id, permission) WHERE NOT revoked
		DO UPDATE SET granted_by = EXCLUDED.granted_by,
		              granted_at = EXCLUDED.granted_at,
		              expires_at = EXCLUDED.expires_at
	`
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, query,
		grant.ID, grant.UserID, grant.Permission, grant.GrantedBy, grant.GrantedAt, grant.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainErrors.ErrAlreadyExists
		}
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}

func (r *PermissionRepositoryPostgres) ListEffectiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserPermission, error) {
	query := `
		SELECT ` + permissionColumns + ` FROM user_permissions
		WHERE user_id = $1 AND revoked = false AND (expires_at IS NULL OR expires_at > now())
		ORDER BY permission
	`
	return r.list(ctx, query, userID)
}

func (r *PermissionRepositoryPostgres) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserPermission, error) {
	query := `SELECT ` + permissionColumns + ` FROM user_permissions WHERE user_id = $1 ORDER BY granted_at DESC`
	return r.list(ctx, query, userID)
}

func (r *PermissionRepositoryPostgres) list(ctx context.Context, query string, args ...interface{}) ([]*models.UserPermission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var grants []*models.UserPermission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, p)
	}
	return grants, rows.Err()
}

func (r *PermissionRepositoryPostgres) Revoke(ctx context.Context, userID uuid.UUID, permission string) error {
	query := `UPDATE user_permissions SET revoked = true, revoked_at = now() WHERE user_id = $1 AND permission = $2 AND revoked = false`
	tag, err := r.pool.Exec(ctx, query, userID, permission)
	if err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}
