// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the cost used to hash the configured password.
const DefaultBcryptCost = 12

// credentials holds the single configured account. The password is hashed at
// startup so it never sits in memory in clear after construction.
type credentials struct {
	username     string
	passwordHash []byte
}

func newCredentials(username, password string, cost int) (*credentials, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &credentials{username: username, passwordHash: hash}, nil
}

// verify compares both fields in constant time. Both comparisons always run
// so a wrong username costs the same as a wrong password.
func (c *credentials) verify(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}
