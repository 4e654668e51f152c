package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"pawnshop/internal/apperr"
)

const minPasswordLength = 8

func HashPassword(plain string) (string, error) {
	if len(plain) < minPasswordLength {
		return "", apperr.InvalidInput("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
