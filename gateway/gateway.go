// Package gateway posts workflows to the dashboard backend.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3/client"
	"github.com/meikuraledutech/builder"
)

// SavePath is the backend route workflows are posted to.
const SavePath = "/dashboard/workflows"

// ErrDeployNotImplemented is returned by Deploy until the backend exposes a
// deploy route.
var ErrDeployNotImplemented = errors.New("gateway: deploy is not implemented")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: backend returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the backend on behalf of a session.
type Client struct {
	baseURL string
	http    *client.Client
	session *builder.Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default fiber client.
func WithHTTPClient(h *client.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSession attaches a session whose token is sent as a bearer token.
func WithSession(s *builder.Session) Option {
	return func(c *Client) { c.session = s }
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client.New(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Save posts p to the save route. A 200 or 201 with any JSON body is success;
// the body is returned as is.
func (c *Client) Save(ctx context.Context, p builder.Payload) (json.RawMessage, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, SavePath, body)
}

// List fetches the workflow summaries shown on the dashboard.
func (c *Client) List(ctx context.Context) ([]builder.WorkflowSummary, error) {
	raw, err := c.do(ctx, http.MethodGet, SavePath, nil)
	if err != nil {
		return nil, err
	}
	var out []builder.WorkflowSummary
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("gateway: decode workflows: %w", err)
	}
	return out, nil
}

// Deploy would publish the workflow as an API endpoint.
func (c *Client) Deploy(ctx context.Context, workflowID string) (string, error) {
	return "", ErrDeployNotImplemented
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	req := c.http.R().SetContext(ctx).SetHeader("Accept", "application/json")
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetRawBody(body)
	}
	if c.session != nil {
		token, err := c.session.Token()
		if err != nil {
			return nil, err
		}
		req.SetHeader("Authorization", "Bearer "+token)
	}

	var (
		resp *client.Response
		err  error
	)
	switch method {
	case http.MethodPost:
		resp, err = req.Post(c.baseURL + path)
	default:
		resp, err = req.Get(c.baseURL + path)
	}
	if err != nil {
		return nil, fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Close()

	data := append([]byte(nil), resp.Body()...)
	if code := resp.StatusCode(); code != http.StatusOK && code != http.StatusCreated {
		return nil, &StatusError{StatusCode: code, Body: strings.TrimSpace(string(data))}
	}
	if !json.Valid(data) {
		return nil, errors.New("gateway: response is not JSON")
	}
	return json.RawMessage(data), nil
}
