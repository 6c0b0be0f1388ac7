// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt costs. Tests use MinCost to keep hashing fast.
const (
	DefaultCost = bcrypt.DefaultCost
	MinCost     = bcrypt.MinCost
)

// HashPassword returns a bcrypt hash suitable for server.admin_password_hash.
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

func HashPasswordWithCost(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
