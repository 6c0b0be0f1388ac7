// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"time"
)

// ScopeKind discriminates the levels of the configuration hierarchy.
type ScopeKind string

const (
	ScopeDefault  ScopeKind = "default"
	ScopeWebsites ScopeKind = "websites"
	ScopeStores   ScopeKind = "stores"
)

// Scope identifies one level of the configuration hierarchy.
// The default scope always has ID 0.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   int64     `json:"id"`
}

func DefaultScope() Scope {
	return Scope{Kind: ScopeDefault}
}

func StoreScope(id int64) Scope {
	return Scope{Kind: ScopeStores, ID: id}
}

func WebsiteScope(id int64) Scope {
	return Scope{Kind: ScopeWebsites, ID: id}
}

// Exact returns the scope a value is actually stored at. Id 0 of any kind,
// and a scope with no kind, is the default scope.
func (s Scope) Exact() Scope {
	if s.ID == 0 || s.Kind == "" {
		return DefaultScope()
	}
	return s
}

func (s Scope) String() string {
	if s.Kind == ScopeDefault || s.Kind == "" {
		return "default"
	}
	return string(s.Kind) + "/" + itoa(s.ID)
}

// Website groups stores. Every store belongs to exactly one website.
type Website struct {
	ID   int64  `json:"id"   yaml:"id"   db:"id"`
	Code string `json:"code" yaml:"code" db:"code"`
	Name string `json:"name" yaml:"name" db:"name"`
}

// Store is a storefront. Store 0 is the admin store and is never listed.
type Store struct {
	ID        int64  `json:"id"        yaml:"id"         db:"id"`
	WebsiteID int64  `json:"websiteId" yaml:"website_id" db:"website_id"`
	Code      string `json:"code"      yaml:"code"       db:"code"`
	Name      string `json:"name"      yaml:"name"       db:"name"`
}

// CredentialSet is the view over the four credential paths at one scope.
// It is derived on demand and never persisted as a unit.
type CredentialSet struct {
	StoreID      int64  `json:"store_id"`
	Enabled      bool   `json:"-"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	ClientToken  string `json:"client_token"` // may be blank
}

// Usable reports whether the set can be used to call the provider.
// A blank token does not make the set unusable.
func (c CredentialSet) Usable() bool {
	return c.Enabled && c.ClientID != "" && c.ClientSecret != ""
}

// UniqueCredentialMap maps a client id to the credentials used to sync it.
type UniqueCredentialMap map[string]CredentialSet

// ImportRun is one entry in the import history.
type ImportRun struct {
	ID         string    `json:"id"         db:"id"`
	Type       string    `json:"type"       db:"type"`
	StartedAt  time.Time `json:"startedAt"  db:"started_at"`
	FinishedAt time.Time `json:"finishedAt" db:"finished_at"`
	Clients    int       `json:"clients"    db:"clients"`
	Failures   int       `json:"failures"   db:"failures"`
	Error      string    `json:"error,omitempty" db:"error"`
}
