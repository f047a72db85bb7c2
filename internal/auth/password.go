package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost of 8 keeps login fast on small hosts; login is rate limited.
const bcryptCost = 8

// HashPassword generates a bcrypt hash of the password. Also used for
// the signup invitation code.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if the provided password matches the hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
