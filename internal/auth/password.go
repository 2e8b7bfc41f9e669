package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword produces a salted bcrypt digest; the salt is generated per
// call and embedded in the digest.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword verifies password against a bcrypt digest in constant time.
// A malformed digest yields false, never an error.
func CheckPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
