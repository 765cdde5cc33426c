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

// SessionRepositoryPostgres implements repository.SessionRepository for
// PostgreSQL.
type SessionRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewSessionRepositoryPostgres creates a new SessionRepositoryPostgres.
func NewSessionRepositoryPostgres(pool *pgxpool.Pool) *SessionRepositoryPostgres {
	return &SessionRepositoryPostgres{pool: pool}
}

const sessionColumns = `id, user_id, ip_address, user_agent, device_label, auth_type,
	is_active, expires_at, created_at, last_activity_at, updated_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &s.DeviceLabel, &s.AuthType,
		&s.IsActive, &s.ExpiresAt, &s.CreatedAt, &s.LastActivityAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepositoryPostgres) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, ip_address, user_agent, device_label, auth_type, is_active, expires_at, created_at, last_activity_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $9)
	`
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = session.CreatedAt
	}
	_, err := r.pool.Exec(ctx, query,
		session.ID, session.UserID, session.IPAddress, session.UserAgent,
		session.DeviceLabel, session.AuthType, session.IsActive,
		session.ExpiresAt, session.CreatedAt, session.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepositoryPostgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

func (r *SessionRepositoryPostgres) Update(ctx context.Context, session *models.Session) error {
	query := `
		UPDATE sessions SET
			is_active = $2, expires_at = $3, last_activity_at = $4, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, session.ID, session.IsActive, session.ExpiresAt, session.LastActivityAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepositoryPostgres) ListActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1 AND is_active = true AND expires_at > $2
		ORDER BY last_activity_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepositoryPostgres) CountActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	query := `SELECT count(*) FROM sessions WHERE user_id = $1 AND is_active = true AND expires_at > $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

func (r *SessionRepositoryPostgres) FindLeastRecentlyUsed(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1 AND is_active = true AND expires_at > $2
		ORDER BY last_activity_at ASC
		LIMIT 1
	`
	return scanSession(r.pool.QueryRow(ctx, query, userID, now))
}

func (r *SessionRepositoryPostgres) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET is_active = false, updated_at = now() WHERE id = $1 AND is_active = true`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepositoryPostgres) DeactivateAllByUserID(ctx context.Context, userID uuid.UUID, except *uuid.UUID) (int64, error) {
	query := `UPDATE sessions SET is_active = false, updated_at = now() WHERE user_id = $1 AND is_active = true`
	args := []interface{}{userID}
	if except != nil {
		query += ` AND id <> $2`
		args = append(args, *except)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate all sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepositoryPostgres) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE sessions SET is_active = false, updated_at = now() WHERE is_active = true AND expires_at <= $1`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
