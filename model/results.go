// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Result status values, as stored in the cached batch.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// FetchResult is the outcome of fetching one client's review summary.
// It is either a Success or a Failure.
type FetchResult interface {
	Status() string
	isFetchResult()
}

// Success carries the review summary returned by the provider.
type Success struct {
	ShopName     string
	ReviewURL    string
	TotalReviews int
	Score        float64
	MaxScore     float64
}

func (Success) Status() string { return StatusSuccess }
func (Success) isFetchResult() {}

// Failure carries the provider's (or transport's) error message.
type Failure struct {
	Msg string
}

func (Failure) Status() string { return StatusFailure }
func (Failure) isFetchResult() {}

// ResultCacheRecord is the normalized form of a FetchResult that is written
// to the cached batch. Failure records only carry Status and Msg.
type ResultCacheRecord struct {
	Status       string  `json:"status"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	Link         string  `json:"link"`
	TotalReviews int     `json:"total_reviews"`
	Score        float64 `json:"score"`
	ScoreMax     float64 `json:"score_max"`
	Percentage   string  `json:"percentage"`
	Msg          string  `json:"msg"`
}

// MarshalJSON writes the success shape for successful records and the
// short {status, msg} shape for everything else.
func (r ResultCacheRecord) MarshalJSON() ([]byte, error) {
	if r.Status != StatusSuccess {
		return json.Marshal(struct {
			Status string `json:"status"`
			Msg    string `json:"msg"`
		}{Status: r.Status, Msg: r.Msg})
	}
	return json.Marshal(struct {
		Status       string  `json:"status"`
		Type         string  `json:"type"`
		Name         string  `json:"name"`
		Link         string  `json:"link"`
		TotalReviews int     `json:"total_reviews"`
		Score        float64 `json:"score"`
		ScoreMax     float64 `json:"score_max"`
		Percentage   string  `json:"percentage"`
	}{
		Status:       r.Status,
		Type:         r.Type,
		Name:         r.Name,
		Link:         r.Link,
		TotalReviews: r.TotalReviews,
		Score:        r.Score,
		ScoreMax:     r.ScoreMax,
		Percentage:   r.Percentage,
	})
}

// NewResultCacheRecord normalizes a fetch result. typ labels the trigger
// (cron, manual, ...) and is only recorded on success.
func NewResultCacheRecord(r FetchResult, typ string) ResultCacheRecord {
	switch v := r.(type) {
	case Success:
		return ResultCacheRecord{
			Status:       StatusSuccess,
			Type:         typ,
			Name:         v.ShopName,
			Link:         v.ReviewURL,
			TotalReviews: v.TotalReviews,
			Score:        v.Score,
			ScoreMax:     v.MaxScore,
			Percentage:   ScoreToPercentage(v.Score),
		}
	case Failure:
		return ResultCacheRecord{Status: StatusFailure, Msg: v.Msg}
	case *Success:
		if v != nil {
			return NewResultCacheRecord(*v, typ)
		}
	case *Failure:
		if v != nil {
			return NewResultCacheRecord(*v, typ)
		}
	}
	return ResultCacheRecord{Status: StatusFailure, Msg: "no result"}
}

// ScoreToPercentage converts a merchant score on the provider's 0-10 scale
// to a display percentage: 8.5 becomes "85%".
func ScoreToPercentage(score float64) string {
	pct := score * 10
	// drop float noise such as 8.7*10 = 86.99999999999999
	pct = math.Round(pct*1e6) / 1e6
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
