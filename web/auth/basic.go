// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package auth guards the admin endpoints with HTTP basic auth.
package auth

import (
	"crypto/subtle"
	"log"
	"net/http"
)

// Admin holds the single admin account.
type Admin struct {
	User         string
	PasswordHash string // bcrypt
}

// Enabled reports whether an admin password has been configured.
func (a Admin) Enabled() bool {
	return a.User != "" && a.PasswordHash != ""
}

// Check verifies a username and password against the admin account.
func (a Admin) Check(user, password string) bool {
	if !a.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1
	passwordOK := CheckPassword(password, a.PasswordHash)
	return userOK && passwordOK
}

// RequireAdmin wraps a handler with basic auth. When no admin password is
// configured every request is refused.
func (a Admin) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || !a.Check(user, password) {
			if ok {
				log.Printf("auth: rejected %q from %s\n", user, r.RemoteAddr)
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="tfcreviews"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
