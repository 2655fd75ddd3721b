// Package todoapi is a client for the to-do backend's REST API, used to
// confirm that UI actions reached the server.
package todoapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gotodo/todo-e2e/internal/version"
)

// Item is a to-do item as returned by the backend.
type Item struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Config represents client configuration
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	UserAgent  string
}

// Client talks to the backend's /todos endpoints
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// NewClient creates a new backend API client
func NewClient(config Config) *Client {
	if config.UserAgent == "" {
		config.UserAgent = version.UserAgent()
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetRetryCount(config.RetryCount).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json")

	c := &Client{httpClient: httpClient, baseURL: config.BaseURL}
	httpClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		return handleError(resp)
	})
	return c
}

// handleError maps non-2xx responses to *APIError.
func handleError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	details := strings.TrimSpace(string(resp.Body()))
	switch resp.StatusCode() {
	case http.StatusBadRequest:
		return &APIError{StatusCode: resp.StatusCode(), Message: ErrBadRequest.Message, Details: details}
	case http.StatusNotFound:
		return &APIError{StatusCode: resp.StatusCode(), Message: ErrNotFound.Message, Details: details}
	case http.StatusConflict:
		return &APIError{StatusCode: resp.StatusCode(), Message: ErrConflict.Message, Details: details}
	case http.StatusInternalServerError:
		return &APIError{StatusCode: resp.StatusCode(), Message: ErrInternal.Message, Details: details}
	default:
		return &APIError{StatusCode: resp.StatusCode(), Message: "Unknown error", Details: details}
	}
}

// List returns every item the backend knows about.
func (c *Client) List(ctx context.Context) ([]Item, error) {
	var items []Item
	if _, err := c.httpClient.R().SetContext(ctx).SetResult(&items).Get("/todos"); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return items, nil
}

// HasTitle reports whether any item carries exactly title.
func (c *Client) HasTitle(ctx context.Context, title string) (bool, error) {
	items, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.Title == title {
			return true, nil
		}
	}
	return false, nil
}
