package interfaces

// PasswordService defines the interface for password hashing and verification.
type PasswordService interface {
	// HashPassword creates an Argon2id hash of the given password.
	HashPassword(password string) (string, error)

	// CheckPasswordHash compares a plain password against a stored hash.
	CheckPasswordHash(password, hash string) (bool, error)
}
