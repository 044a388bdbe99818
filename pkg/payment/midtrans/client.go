package midtrans

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxItemNameLength = 50

// Client represents a Midtrans Snap API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Midtrans client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// CreateTransaction creates a Snap transaction and returns the payment token
func (c *Client) CreateTransaction(ctx context.Context, req SnapRequest) (*SnapResponse, error) {
	for i := range req.ItemDetails {
		if len(req.ItemDetails[i].Name) > maxItemNameLength {
			req.ItemDetails[i].Name = req.ItemDetails[i].Name[:maxItemNameLength]
		}
	}

	resp, err := c.doRequest(ctx, "/snap/v1/transactions", req)
	if err != nil {
		return nil, fmt.Errorf("failed to create snap transaction: %w", err)
	}

	var snapResp SnapResponse
	if err := json.Unmarshal(resp, &snapResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snap response: %w", err)
	}
	if snapResp.Token == "" {
		return nil, fmt.Errorf("%w: empty snap token", ErrPaymentFailed)
	}

	return &snapResp, nil
}

// doRequest performs an HTTP request to the Midtrans API
func (c *Client) doRequest(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := c.config.baseURL() + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Basic auth with the server key as username and empty password
	auth := base64.StdEncoding.EncodeToString([]byte(c.config.ServerKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
		}

		errorMsg := fmt.Sprintf("Midtrans API error - Status: %d, Messages: %s",
			resp.StatusCode, strings.Join(errResp.ErrorMessages, "; "))

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMsg)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, errorMsg)
		default:
			return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, errorMsg)
		}
	}

	return body, nil
}
