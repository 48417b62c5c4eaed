package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"golang.org/x/oauth2"
)

// adminClient calls the API's cache administration endpoints
type adminClient struct {
	base *url.URL
	http *http.Client
}

func newAdminClient(apiURL, token string) (*adminClient, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", apiURL)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	if token != "" {
		client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}
	return &adminClient{base: u, http: client}, nil
}

type apiStats struct {
	Size            int     `json:"size"`
	OldestEntryDate *string `json:"oldestEntryDate"`
	NewestEntryDate *string `json:"newestEntryDate"`
	ExpirationDays  float64 `json:"expirationDays"`
}

type apiResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	Refreshed int       `json:"refreshed"`
	Timestamp string    `json:"timestamp"`
	Stats     *apiStats `json:"stats"`

	AgeDistribution *struct {
		LessThanOneDay   int `json:"lessThanOneDay"`
		OneToThreeDays   int `json:"oneToThreeDays"`
		ThreeToFiveDays  int `json:"threeToFiveDays"`
		MoreThanFiveDays int `json:"moreThanFiveDays"`
	} `json:"ageDistribution"`
	OldestEntries []struct {
		Key       string `json:"key"`
		AgeInDays int    `json:"ageInDays"`
	} `json:"oldestEntries"`
}

func (c *adminClient) do(ctx context.Context, method, p string, body any) (*apiResult, error) {
	u := *c.base
	u.Path = path.Join(u.Path, p)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var out apiResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s %s: %s: %s", method, p, resp.Status, string(raw))
	}
	if resp.StatusCode >= 300 || !out.Success {
		return nil, fmt.Errorf("%s %s: %s: %s", method, p, resp.Status, out.Error)
	}
	return &out, nil
}
