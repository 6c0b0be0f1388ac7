// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

// Runner is the part of Service the Scheduler drives.
type Runner interface {
	Run(ctx context.Context, typ string) (*Result, error)
}

// Scheduler runs an import on a fixed interval until its context is done.
type Scheduler struct {
	runner   Runner
	every    time.Duration
	typ      string
	workerID string
}

// NewScheduler creates a Scheduler. An empty workerID defaults to host:pid.
func NewScheduler(r Runner, every time.Duration, typ, workerID string) *Scheduler {
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("%s:%d", hostname, os.Getpid())
	}
	return &Scheduler{runner: r, every: every, typ: typ, workerID: workerID}
}

// Tick runs one import. A run already in flight is skipped, not an error.
// Returns true if an import ran.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	result, err := s.runner.Run(ctx, s.typ)
	if errors.Is(err, ErrImportRunning) {
		log.Printf("importer: %s: skipped, import already running\n", s.workerID)
		return false, nil
	} else if err != nil {
		return true, err
	}
	log.Printf("importer: %s: run %s: %d clients, %d failures\n", s.workerID, result.Run.ID, result.Run.Clients, result.Run.Failures)
	return true, nil
}

// Start ticks every interval and returns when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s.every <= 0 {
		return
	}
	log.Printf("importer: %s: importing every %v\n", s.workerID, s.every)
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("importer: %s: stopped\n", s.workerID)
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				log.Printf("importer: %s: [%s] %v\n", s.workerID, ErrorCode(err), err)
			}
		}
	}
}
