package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes the single staff password.  The service
// stores only the hash (STAFF_PASSWORD_HASH); this helper exists for
// provisioning that value and for tests, which pass a low cost to stay
// fast.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the configured staff
// password hash.  bcrypt's comparison is constant-time; a malformed
// hash simply fails to verify.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
