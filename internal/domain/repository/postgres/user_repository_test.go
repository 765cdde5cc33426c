package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
)

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: constraint}
}

// The constraint names must match the partial unique indexes created by the
// init migration, or duplicate signups lose their specific error.
func TestMapUserUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"email index", uniqueViolation("users_email_lower_uq"), domainErrors.ErrEmailExists},
		{"username index", uniqueViolation("users_username_uq"), domainErrors.ErrUsernameExists},
		{"other unique index", uniqueViolation("users_pkey"), domainErrors.ErrAlreadyExists},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorIs(t, mapUserUniqueViolation(c.err), c.want)
		})
	}

	t.Run("non-unique pg error passes through", func(t *testing.T) {
		err := &pgconn.PgError{Code: "23503", ConstraintName: "sessions_user_id_fkey"}
		assert.Nil(t, mapUserUniqueViolation(err))
	})

	t.Run("plain error passes through", func(t *testing.T) {
		assert.Nil(t, mapUserUniqueViolation(errors.New("connection reset")))
	})
}
