// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model_test

import (
	"encoding/json"
	"testing"

	"github.com/mdhender/tfcreviews/model"
)

func TestScoreToPercentage(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{8.5, "85%"},
		{8.7, "87%"},
		{10, "100%"},
		{0, "0%"},
		{9.25, "92.5%"},
	}
	for _, tt := range tests {
		if got := model.ScoreToPercentage(tt.score); got != tt.want {
			t.Errorf("ScoreToPercentage(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestNewResultCacheRecord_Success(t *testing.T) {
	rec := model.NewResultCacheRecord(model.Success{
		ShopName:     "Shop",
		ReviewURL:    "http://x",
		TotalReviews: 120,
		Score:        8.5,
		MaxScore:     10,
	}, "cron")
	want := model.ResultCacheRecord{
		Status:       model.StatusSuccess,
		Type:         "cron",
		Name:         "Shop",
		Link:         "http://x",
		TotalReviews: 120,
		Score:        8.5,
		ScoreMax:     10,
		Percentage:   "85%",
	}
	if rec != want {
		t.Errorf("record: got %+v, want %+v", rec, want)
	}
}

func TestNewResultCacheRecord_Failure(t *testing.T) {
	rec := model.NewResultCacheRecord(&model.Failure{Msg: "bad token"}, "manual")
	if rec.Status != model.StatusFailure || rec.Msg != "bad token" || rec.Type != "" {
		t.Errorf("record: got %+v", rec)
	}
	if rec := model.NewResultCacheRecord(nil, "cron"); rec.Status != model.StatusFailure {
		t.Errorf("nil result: got %+v", rec)
	}
}

func TestResultCacheRecord_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(model.ResultCacheRecord{Status: model.StatusFailure, Msg: "bad token"})
	if err != nil {
		t.Fatalf("marshal failure: %v", err)
	}
	if got, want := string(data), `{"status":"failure","msg":"bad token"}`; got != want {
		t.Errorf("failure shape: got %s, want %s", got, want)
	}

	data, err = json.Marshal(model.ResultCacheRecord{Status: model.StatusSuccess, Type: "cron", Score: 0, ScoreMax: 10})
	if err != nil {
		t.Fatalf("marshal success: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"status", "type", "name", "link", "total_reviews", "score", "score_max", "percentage"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("success shape: missing %q in %s", key, data)
		}
	}
	if _, ok := fields["msg"]; ok {
		t.Errorf("success shape: unexpected msg in %s", data)
	}
}

func TestCredentialSet_Usable(t *testing.T) {
	tests := []struct {
		name string
		cs   model.CredentialSet
		want bool
	}{
		{"usable without token", model.CredentialSet{Enabled: true, ClientID: "id", ClientSecret: "s"}, true},
		{"usable with token", model.CredentialSet{Enabled: true, ClientID: "id", ClientSecret: "s", ClientToken: "t"}, true},
		{"disabled", model.CredentialSet{ClientID: "id", ClientSecret: "s", ClientToken: "t"}, false},
		{"no id", model.CredentialSet{Enabled: true, ClientSecret: "s", ClientToken: "t"}, false},
		{"no secret", model.CredentialSet{Enabled: true, ClientID: "id", ClientToken: "t"}, false},
	}
	for _, tt := range tests {
		if got := tt.cs.Usable(); got != tt.want {
			t.Errorf("%s: Usable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestScope_String(t *testing.T) {
	if got := model.DefaultScope().String(); got != "default" {
		t.Errorf("default: got %q", got)
	}
	if got := model.StoreScope(3).String(); got != "stores/3" {
		t.Errorf("store: got %q", got)
	}
	if got := model.WebsiteScope(2).String(); got != "websites/2" {
		t.Errorf("website: got %q", got)
	}
}

func TestScope_Exact(t *testing.T) {
	for _, tc := range []struct {
		in   model.Scope
		want model.Scope
	}{
		{model.StoreScope(0), model.DefaultScope()},
		{model.WebsiteScope(0), model.DefaultScope()},
		{model.Scope{}, model.DefaultScope()},
		{model.DefaultScope(), model.DefaultScope()},
		{model.StoreScope(3), model.StoreScope(3)},
		{model.WebsiteScope(2), model.WebsiteScope(2)},
	} {
		if got := tc.in.Exact(); got != tc.want {
			t.Errorf("%+v: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
