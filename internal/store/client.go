// Package store is a thin client for a PostgREST-style structured-record
// store. The pipeline uses it append-only: it inserts agent outputs and
// chunk metadata, and queries with equality/substring filters only.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client communicates with the record store's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Filter is one predicate of a record query.
type Filter struct {
	Column string
	// Op is a PostgREST operator: "eq" for equality, "ilike" for
	// case-insensitive substring (the value is wrapped in wildcards).
	Op    string
	Value string
}

// Eq matches records whose column equals value.
func Eq(column, value string) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}

// Contains matches records whose column contains value, case-insensitively.
func Contains(column, value string) Filter {
	return Filter{Column: column, Op: "ilike", Value: "*" + value + "*"}
}

// InsertRecords appends records to a table and returns the inserted count.
func (c *Client) InsertRecords(ctx context.Context, table string, records []map[string]any) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	body, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("marshal records: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/"+table, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("insert into %s: status %d: %s", table, resp.StatusCode, string(respBody))
	}

	var inserted []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&inserted); err != nil {
		return 0, fmt.Errorf("decode insert response: %w", err)
	}
	return len(inserted), nil
}

// QueryRecords returns the records of a table matching every filter.
func (c *Client) QueryRecords(ctx context.Context, table string, filters ...Filter) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("select", "*")
	for _, f := range filters {
		q.Set(f.Column, f.Op+"."+f.Value)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/"+table+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("query %s: status %d: %s", table, resp.StatusCode, string(respBody))
	}

	var records []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
