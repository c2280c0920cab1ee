package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/finance-analytics/internal/logger"
	"github.com/dvloznov/finance-analytics/internal/records"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4096

// Fetcher loads a complete snapshot for a session.
type Fetcher interface {
	FetchAll(ctx context.Context, session SessionContext) (*Dataset, error)
}

// Dataset is one consistent load of the four collections.
type Dataset struct {
	Accounts     []records.Record
	Transactions []records.Record
	Budgets      []records.Record
	Goals        []records.Record
	FetchedAt    time.Time
}

// Client reads records from the finance backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a Client for baseURL. A nil httpClient uses one with
// the given timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, now: time.Now}
}

// FetchAll issues the four reads concurrently. The first failure cancels the
// rest and is returned; no partial dataset is produced.
func (c *Client) FetchAll(ctx context.Context, session SessionContext) (*Dataset, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	endpoints := Endpoints(c.baseURL, session.UserID)
	results := make([][]records.Record, len(Resources))

	g, gctx := errgroup.WithContext(ctx)
	for i, res := range Resources {
		i, ep := i, endpoints[res]
		g.Go(func() error {
			recs, err := c.get(gctx, ep, session)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dataset{
		Accounts:     results[0],
		Transactions: results[1],
		Budgets:      results[2],
		Goals:        results[3],
		FetchedAt:    c.now(),
	}, nil
}

// get fetches one endpoint and decodes it. Non-array bodies yield no records.
func (c *Client) get(ctx context.Context, ep Endpoint, session SessionContext) ([]records.Record, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("FetchAll: build %s request: %w", ep.Resource, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.Auth && session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchAll: GET %s: %w", ep.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn().
			Str("endpoint", string(ep.Resource)).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("Backend request failed")
		return nil, &HTTPError{
			Method:     http.MethodGet,
			URL:        ep.URL,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(bytes.TrimSpace(body)),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil && err != io.EOF {
		return nil, fmt.Errorf("FetchAll: decode %s: %w", ep.Resource, err)
	}

	recs := records.FromJSON(payload)
	log.Debug().
		Str("endpoint", string(ep.Resource)).
		Int("records", len(recs)).
		Dur("duration", time.Since(start)).
		Msg("Fetched backend records")
	return recs, nil
}
