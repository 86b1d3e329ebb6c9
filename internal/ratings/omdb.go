package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/drewfead/marquee/internal"
)

const defaultOMDbBaseURL = "https://www.omdbapi.com"

type omdbProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// OMDbOption applies configuration to an OMDb provider.
type OMDbOption func(*omdbProvider)

// OMDbWithBaseURL sets the API root (e.g. httptest.Server.URL in tests).
func OMDbWithBaseURL(baseURL string) OMDbOption {
	return func(p *omdbProvider) {
		p.baseURL = baseURL
	}
}

func OMDbWithClient(client *http.Client) OMDbOption {
	return func(p *omdbProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// OMDb looks movies up by title on the Open Movie Database.
func OMDb(apiKey string, opts ...OMDbOption) (internal.RatingProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingKey
	}
	p := &omdbProvider{
		apiKey:     apiKey,
		baseURL:    defaultOMDbBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type omdbResponse struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
	Title    string `json:"Title"`
	Ratings  []struct {
		Source string `json:"Source"`
		Value  string `json:"Value"`
	} `json:"Ratings"`
}

func (p *omdbProvider) lookupURL(name string) string {
	u, _ := url.Parse(p.baseURL)
	if u.Path == "" {
		u.Path = "/"
	}
	q := u.Query()
	q.Set("t", name)
	q.Set("type", "movie")
	q.Set("apikey", p.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *omdbProvider) Ratings(ctx context.Context, name string) (internal.RatingRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.lookupURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("omdb: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("omdb: read response: %w", err)
	}

	var payload omdbResponse
	if jerr := json.Unmarshal(body, &payload); jerr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("omdb: unmarshal: %w", jerr)
	}
	if resp.StatusCode == http.StatusUnauthorized || strings.Contains(strings.ToLower(payload.Error), "api key") {
		return nil, fmt.Errorf("omdb: %w: %s", ErrUnauthorized, payload.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omdb: %s", resp.Status)
	}
	if payload.Response != "True" {
		slog.Debug("omdb: no match", "name", name, "error", payload.Error)
		return internal.RatingRecord{}, nil
	}

	record := make(internal.RatingRecord, len(payload.Ratings))
	for _, r := range payload.Ratings {
		score, err := ParseScore(r.Value)
		if err != nil {
			slog.Debug("omdb: skipping score", "name", name, "source", r.Source, "error", err)
			continue
		}
		record[r.Source] = score
	}
	return record, nil
}
