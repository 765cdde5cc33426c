package security

import (
	"fmt"

	"github.com/pquerna/otp/totp"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/interfaces"
)

type totpService struct {
	issuer string
}

// NewTOTPService creates a TOTPService. issuer is the name shown in
// authenticator apps.
func NewTOTPService(issuer string) interfaces.TOTPService {
	return &totpService{issuer: issuer}
}

func (s *totpService) GenerateSecret(accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

func (s *totpService) Verify(code, secret string) bool {
	return totp.Validate(code, secret)
}
