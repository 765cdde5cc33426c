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

const uniqueViolationCode = "23505"

// UserRepositoryPostgres implements repository.UserRepository for PostgreSQL.
type UserRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewUserRepositoryPostgres creates a new UserRepositoryPostgres.
func NewUserRepositoryPostgres(pool *pgxpool.Pool) *UserRepositoryPostgres {
	return &UserRepositoryPostgres{pool: pool}
}

const userColumns = `id, username, email, password_hash, status, email_verified_at,
	last_login_at, failed_login_attempts, lockout_until,
	refresh_token_hash, refresh_token_expiry, totp_secret, totp_enabled,
	display_name, phone_number, birth_date, created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Status, &u.EmailVerifiedAt,
		&u.LastLoginAt, &u.FailedLoginAttempts, &u.LockoutUntil,
		&u.RefreshTokenHash, &u.RefreshTokenExpiry, &u.TOTPSecret, &u.TOTPEnabled,
		&u.DisplayName, &u.PhoneNumber, &u.BirthDate, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Create persists a new user. Unique violations on email/username map to the
// matching domain errors.
func (r *UserRepositoryPostgres) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, status, email_verified_at, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Status,
		user.EmailVerifiedAt, user.DisplayName, user.CreatedAt,
	)
	if err != nil {
		if mapped := mapUserUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// mapUserUniqueViolation translates a unique-violation on one of the users
// table's partial unique indexes (see the init migration) into its domain
// error. Returns nil for anything else.
func mapUserUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_email_lower_uq":
		return domainErrors.ErrEmailExists
	case "users_username_uq":
		return domainErrors.ErrUsernameExists
	}
	return domainErrors.ErrAlreadyExists
}

func (r *UserRepositoryPostgres) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepositoryPostgres) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepositoryPostgres) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND deleted_at IS NULL`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *UserRepositoryPostgres) FindByExternalAccount(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	query := `
		SELECT ` + qualify(userColumns, "u") + `
		FROM users u
		JOIN external_accounts ea ON ea.user_id = u.id
		WHERE ea.provider = $1 AND ea.provider_user_id = $2 AND u.deleted_at IS NULL
	`
	return scanUser(r.pool.QueryRow(ctx, query, provider, providerUserID))
}

func (r *UserRepositoryPostgres) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			username = $2, email = $3, password_hash = $4, status = $5,
			email_verified_at = $6, totp_secret = $7, totp_enabled = $8,
			display_name = $9, phone_number = $10, birth_date = $11,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Status,
		user.EmailVerifiedAt, user.TOTPSecret, user.TOTPEnabled,
		user.DisplayName, user.PhoneNumber, user.BirthDate,
	)
	if err != nil {
		if mapped := mapUserUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrUserNotFound
	}
	return nil
}

// Delete soft-deletes the user.
func (r *UserRepositoryPostgres) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET status = 'deleted', deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryPostgres) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash *string, expiresAt *time.Time) error {
	query := `UPDATE users SET refresh_token_hash = $2, refresh_token_expiry = $3, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrUserNotFound
	}
	return nil
}

// RotateRefreshToken performs a compare-and-swap on the stored hash so two
// concurrent refresh calls cannot both succeed with the same stale token.
func (r *UserRepositoryPostgres) RotateRefreshToken(ctx context.Context, userID uuid.UUID, expectedHash string, newHash *string, expiresAt *time.Time) (bool, error) {
	query := `
		UPDATE users SET refresh_token_hash = $3, refresh_token_expiry = $4, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, userID, expectedHash, newHash, expiresAt)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepositoryPostgres) IncrementFailedLoginAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		UPDATE users SET failed_login_attempts = failed_login_attempts + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING failed_login_attempts
	`
	var attempts int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrUserNotFound
		}
		return 0, fmt.Errorf("increment failed login attempts: %w", err)
	}
	return attempts, nil
}

func (r *UserRepositoryPostgres) ResetFailedLoginAttempts(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET failed_login_attempts = 0, lockout_until = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("reset failed login attempts: %w", err)
	}
	return nil
}

func (r *UserRepositoryPostgres) SetLockout(ctx context.Context, userID uuid.UUID, until *time.Time) error {
	query := `UPDATE users SET lockout_until = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, userID, until); err != nil {
		return fmt.Errorf("set lockout: %w", err)
	}
	return nil
}

func (r *UserRepositoryPostgres) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, userID, at); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (r *UserRepositoryPostgres) GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *UserRepositoryPostgres) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	query := `INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, userID, role); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}
