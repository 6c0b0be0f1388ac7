// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package provider talks to The Feedback Company review API.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mdhender/tfcreviews/model"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultBaseURL  = "https://beoordelingen.feedbackcompany.nl/api/v1/review/all/"
	DefaultTokenURL = "https://beoordelingen.feedbackcompany.nl/api/v1/oauth2/token"
	DefaultTimeout  = 30 * time.Second

	// maxBodySize bounds how much of a response we are willing to read.
	maxBodySize = 1 << 20
)

// Client fetches tokens and review summaries.
type Client struct {
	BaseURL    string
	TokenURL   string
	HTTPClient *http.Client

	policy *bluemonday.Policy
}

// New returns a client. Empty URLs and a zero timeout fall back to the defaults.
func New(baseURL, tokenURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    baseURL,
		TokenURL:   tokenURL,
		HTTPClient: &http.Client{Timeout: timeout},
		policy:     bluemonday.StrictPolicy(),
	}
}

// Token exchanges the client id and secret for a bearer token.
func (c *Client) Token(ctx context.Context, cs model.CredentialSet) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     cs.ClientID,
		ClientSecret: cs.ClientSecret,
		TokenURL:     c.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("token for %s: %w", cs.ClientID, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token for %s: empty access token", cs.ClientID)
	}
	return tok.AccessToken, nil
}

// Summary fetches the review summary for one client.
//
// Provider-side problems (non-2xx responses, a failure status in the body)
// are returned as a model.Failure. Only transport and decoding problems are
// returned as errors.
func (c *Client) Summary(ctx context.Context, clientID, token string) (model.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+url.PathEscape(clientID), nil)
	if err != nil {
		return nil, fmt.Errorf("summary for %s: %w", clientID, err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("summary for %s: %w", clientID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("summary for %s: read body: %w", clientID, err)
	}

	var sr summaryResponse
	decodeErr := json.Unmarshal(body, &sr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := sr.message()
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return model.Failure{Msg: fmt.Sprintf("http %d: %s", resp.StatusCode, msg)}, nil
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("summary for %s: decode: %w", clientID, decodeErr)
	}

	if !sr.succeeded() {
		msg := sr.message()
		if msg == "" {
			msg = "unknown error"
		}
		return model.Failure{Msg: msg}, nil
	}

	return model.Success{
		ShopName:     c.clean(sr.Shop.Name),
		ReviewURL:    cleanURL(sr.Shop.ReviewURL),
		TotalReviews: int(sr.ReviewSummary.TotalMerchantReviews),
		Score:        float64(sr.ReviewSummary.MerchantScore),
		MaxScore:     float64(sr.ReviewSummary.MaxScore),
	}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// clean strips markup from provider text. The result is plain text, so
// entities are decoded again after sanitizing.
func (c *Client) clean(s string) string {
	policy := c.policy
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// cleanURL keeps only absolute http(s) links.
func cleanURL(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

type summaryResponse struct {
	Success *bool  `json:"success"`
	Status  string `json:"status"`
	Msg     string `json:"msg"`
	Error   string `json:"error"`
	Shop    struct {
		Name      string `json:"name"`
		ReviewURL string `json:"review_url"`
	} `json:"shop"`
	ReviewSummary struct {
		TotalMerchantReviews number `json:"total_merchant_reviews"`
		MerchantScore        number `json:"merchant_score"`
		MaxScore             number `json:"max_score"`
	} `json:"review_summary"`
}

func (sr summaryResponse) succeeded() bool {
	if sr.Status != "" {
		return sr.Status == model.StatusSuccess
	}
	return sr.Success != nil && *sr.Success
}

func (sr summaryResponse) message() string {
	if sr.Msg != "" {
		return sr.Msg
	}
	return sr.Error
}

// number accepts a JSON number, a numeric string, or null.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*n = number(f)
	return nil
}
