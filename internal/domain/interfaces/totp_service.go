package interfaces

// TOTPService generates and verifies time-based one-time-password secrets
// for the optional second factor.
type TOTPService interface {
	// GenerateSecret returns a new base32 secret and its otpauth:// URL for
	// the given account name.
	GenerateSecret(accountName string) (secret string, url string, err error)

	// Verify checks a 6-digit code against the secret.
	Verify(code, secret string) bool
}
