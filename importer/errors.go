// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package importer

import (
	"errors"
	"fmt"
)

// ErrImportRunning is returned when a run is started while another is in flight.
var ErrImportRunning = errors.New("import already running")

// ErrDatabase is returned when configuration store operations fail.
type ErrDatabase struct {
	Op  string
	Err error
}

func (e *ErrDatabase) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *ErrDatabase) Unwrap() error {
	return e.Err
}

// ErrProvider is returned when the review provider cannot be reached or
// refuses a client.
type ErrProvider struct {
	Op       string // token, summary
	ClientID string
	Err      error
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.Op, e.ClientID, e.Err)
}

func (e *ErrProvider) Unwrap() error {
	return e.Err
}

// Error code constants for the import history.
const (
	ErrCodeDatabase = "DATABASE"
	ErrCodeProvider = "PROVIDER"
	ErrCodeRunning  = "RUNNING"
	ErrCodeUnknown  = "UNKNOWN"
)

// ErrorCode returns the error code string for a given error.
func ErrorCode(err error) string {
	var dbErr *ErrDatabase
	var providerErr *ErrProvider
	switch {
	case errors.As(err, &dbErr):
		return ErrCodeDatabase
	case errors.As(err, &providerErr):
		return ErrCodeProvider
	case errors.Is(err, ErrImportRunning):
		return ErrCodeRunning
	default:
		return ErrCodeUnknown
	}
}
