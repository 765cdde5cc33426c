package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTP_GenerateAndVerify(t *testing.T) {
	svc := NewTOTPService("portfolio-auth-service")

	secret, url, err := svc.GenerateSecret("investor@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, url, "otpauth://totp/")
	assert.Contains(t, url, "portfolio-auth-service")

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	assert.True(t, svc.Verify(code, secret))
}

func TestTOTP_RejectsWrongCode(t *testing.T) {
	svc := NewTOTPService("portfolio-auth-service")

	secret, _, err := svc.GenerateSecret("investor@example.com")
	require.NoError(t, err)

	assert.False(t, svc.Verify("000000", secret))
	assert.False(t, svc.Verify("", secret))
}
