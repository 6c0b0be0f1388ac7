// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package importer runs one synchronization of review summaries: one fetch
// per unique client id, then a single replace of the cached batch.
package importer

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mdhender/tfcreviews/model"
	"github.com/mdhender/tfcreviews/reviews"
)

// Reviews defines the credential and cache operations needed by Service.
type Reviews interface {
	UniqueOauthData(ctx context.Context) (model.UniqueCredentialMap, error)
	SetClientToken(ctx context.Context, token string, storeID int64, flushCache bool) error
	SaveReviewResult(ctx context.Context, results map[string]model.FetchResult, typ string) (map[string]model.ResultCacheRecord, error)
}

// Fetcher calls the review provider.
type Fetcher interface {
	Token(ctx context.Context, cs model.CredentialSet) (string, error)
	Summary(ctx context.Context, clientID, token string) (model.FetchResult, error)
}

// History records finished runs.
type History interface {
	InsertImportRun(ctx context.Context, run *model.ImportRun) error
}

// Service runs imports. At most one run is in flight per Service.
type Service struct {
	reviews Reviews
	fetcher Fetcher
	history History
	now     func() time.Time
	mu      sync.Mutex

	// Verbose logs every client as it is fetched.
	Verbose bool
}

// NewService creates a new Service. history may be nil.
func NewService(r Reviews, f Fetcher, h History) *Service {
	return &Service{
		reviews: r,
		fetcher: f,
		history: h,
		now:     time.Now,
	}
}

// SetClock sets the clock for testing.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Result is the outcome of one run.
type Result struct {
	Run     model.ImportRun
	Records map[string]model.ResultCacheRecord
}

// Run fetches every unique client and replaces the cached batch.
// A failing client is recorded in the batch and does not stop the run.
// If ctx is cancelled the run stops without touching the cached batch.
func (s *Service) Run(ctx context.Context, typ string) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, ErrImportRunning
	}
	defer s.mu.Unlock()

	if typ == "" {
		typ = reviews.DefaultType
	}
	run := model.ImportRun{
		ID:        uuid.NewString(),
		Type:      typ,
		StartedAt: s.now().UTC(),
	}

	result, err := s.run(ctx, &run)
	run.FinishedAt = s.now().UTC()
	if err != nil {
		run.Error = fmt.Sprintf("%s: %v", ErrorCode(err), err)
	}
	s.record(ctx, &run)
	if err != nil {
		return nil, err
	}
	result.Run = run

	log.Printf("importer: %s: %d clients, %d failures in %v\n", typ, run.Clients, run.Failures, run.FinishedAt.Sub(run.StartedAt))
	return result, nil
}

func (s *Service) run(ctx context.Context, run *model.ImportRun) (*Result, error) {
	creds, err := s.reviews.UniqueOauthData(ctx)
	if err != nil {
		return nil, &ErrDatabase{Op: "load credentials", Err: err}
	}

	clientIDs := make([]string, 0, len(creds))
	for clientID := range creds {
		clientIDs = append(clientIDs, clientID)
	}
	sort.Strings(clientIDs)

	results := make(map[string]model.FetchResult, len(clientIDs))
	for _, clientID := range clientIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[clientID] = s.fetch(ctx, creds[clientID])
		if s.Verbose {
			log.Printf("importer: %s: %s\n", clientID, results[clientID].Status())
		}
	}

	records, err := s.reviews.SaveReviewResult(ctx, results, run.Type)
	if err != nil {
		return nil, &ErrDatabase{Op: "save review result", Err: err}
	}

	run.Clients = len(records)
	for _, rec := range records {
		if rec.Status != model.StatusSuccess {
			run.Failures++
		}
	}
	return &Result{Records: records}, nil
}

// fetch never fails; problems become a failure result for the client.
func (s *Service) fetch(ctx context.Context, cs model.CredentialSet) model.FetchResult {
	token := cs.ClientToken
	if token == "" {
		tok, err := s.fetcher.Token(ctx, cs)
		if err != nil {
			perr := &ErrProvider{Op: "token", ClientID: cs.ClientID, Err: err}
			log.Printf("importer: %v\n", perr)
			return model.Failure{Msg: perr.Error()}
		}
		token = tok
		if err := s.reviews.SetClientToken(ctx, token, cs.StoreID, true); err != nil {
			// the token is still good for this run
			log.Printf("importer: %s: save token: %v\n", cs.ClientID, err)
		}
	}

	result, err := s.fetcher.Summary(ctx, cs.ClientID, token)
	if err != nil {
		perr := &ErrProvider{Op: "summary", ClientID: cs.ClientID, Err: err}
		log.Printf("importer: %v\n", perr)
		return model.Failure{Msg: perr.Error()}
	} else if result == nil {
		return model.Failure{Msg: "empty response"}
	}
	return result
}

func (s *Service) record(ctx context.Context, run *model.ImportRun) {
	if s.history == nil {
		return
	}
	// the history is kept even when the caller's context is done
	if err := s.history.InsertImportRun(context.WithoutCancel(ctx), run); err != nil {
		log.Printf("importer: record run %s: %v\n", run.ID, err)
	}
}
