package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"challengechain/core/ledger"
	"challengechain/core/types"
)

// APIError is a non-2xx response decoded from the error body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rpc %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to a node's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// SubmitTx posts a signed transaction and returns its receipt.
func (c *Client) SubmitTx(ctx context.Context, tx *types.Transaction) (*ledger.Receipt, error) {
	var receipt ledger.Receipt
	if err := c.do(ctx, http.MethodPost, "/v1/tx", tx, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) Challenge(ctx context.Context, id string) (*ChallengeView, error) {
	var view ChallengeView
	if err := c.do(ctx, http.MethodGet, "/v1/challenges/"+url.PathEscape(id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) Tally(ctx context.Context, id string) (*TallyView, error) {
	var view TallyView
	if err := c.do(ctx, http.MethodGet, "/v1/challenges/"+url.PathEscape(id)+"/tally", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) Account(ctx context.Context, addr string) (*AccountView, error) {
	var view AccountView
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+url.PathEscape(addr), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) Trackers(ctx context.Context) (*ledger.Trackers, error) {
	var trackers ledger.Trackers
	if err := c.do(ctx, http.MethodGet, "/v1/trackers", nil, &trackers); err != nil {
		return nil, err
	}
	return &trackers, nil
}

// RecentEvents returns up to limit of the newest committed events.
func (c *Client) RecentEvents(ctx context.Context, limit int) ([]types.Event, error) {
	var out []types.Event
	path := "/v1/events/recent"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload ErrorBody
		if json.Unmarshal(data, &payload) == nil && payload.Error.Code != "" {
			apiErr.Code = payload.Error.Code
			apiErr.Message = payload.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
