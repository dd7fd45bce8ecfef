package mountebank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"mb-route-sync/models"
)

const (
	defaultHTTPTimeout = 30 * time.Second
)

// StatusError is returned when Mountebank answers with an unexpected status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code for %s %s: %d, body: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client is a Mountebank admin API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client for the admin API at baseURL
// (e.g. "http://127.0.0.1:2525"). A zero timeout keeps the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	log.Printf("Initializing Mountebank client with admin URL: %s, timeout: %s", baseURL, timeout)
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// do sends one request and returns the full response body when the status
// matches want.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, want int) ([]byte, error) {
	log.Printf("DEBUG: Attempting %s request to URL: %s", method, url)
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		log.Printf("ERROR: Failed to create %s request to %s: %v", method, url, err)
		return nil, fmt.Errorf("failed to create %s request to %s: %w", method, url, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Printf("ERROR: Failed to make %s request to %s: %v", method, url, err)
		return nil, fmt.Errorf("failed to make %s request to %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("ERROR: Failed %s %s: status code %d, failed to read response body: %v", method, url, resp.StatusCode, err)
		return nil, fmt.Errorf("failed to read response body for %s %s: %w", method, url, err)
	}

	if resp.StatusCode != want {
		log.Printf("ERROR: Failed %s %s: unexpected status code %d, body: %s", method, url, resp.StatusCode, string(respBody))
		return nil, &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// WaitForMountebank polls Mountebank until it's ready to serve requests or a timeout occurs.
func (c *Client) WaitForMountebank(ctx context.Context, timeout time.Duration) error {
	log.Printf("Waiting for Mountebank to be ready at %s for %s", c.BaseURL, timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		_, err := c.GetAllImposters(ctx)
		if err == nil {
			log.Println("Mountebank is ready (/imposters endpoint is responsive).")
			return nil
		}
		log.Printf("Mountebank not yet ready. /imposters endpoint not responsive: %v. Retrying in 1 second...", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for Mountebank to be ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetAllImposters retrieves all active imposters from Mountebank.
func (c *Client) GetAllImposters(ctx context.Context) (*models.ImpostersResponse, error) {
	body, err := c.do(ctx, http.MethodGet, c.BaseURL+"/imposters", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var imposters models.ImpostersResponse
	if err := json.Unmarshal(body, &imposters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal imposters response: %w", err)
	}
	return &imposters, nil
}

// GetImposter retrieves a single imposter by its port from Mountebank.
func (c *Client) GetImposter(ctx context.Context, port int) (*models.DetailedImposter, error) {
	url := fmt.Sprintf("%s/imposters/%d", c.BaseURL, port)
	body, err := c.do(ctx, http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var imposter models.DetailedImposter
	if err := json.Unmarshal(body, &imposter); err != nil {
		return nil, fmt.Errorf("failed to unmarshal imposter response for port %d: %w", port, err)
	}
	return &imposter, nil
}

// CreateImposter posts a new imposter and returns Mountebank's raw response.
func (c *Client) CreateImposter(ctx context.Context, imposter *models.Imposter) ([]byte, error) {
	log.Printf("DEBUG: Creating imposter on port %d with %d stubs", imposter.Port, len(imposter.Stubs))
	imposterJSON, err := json.Marshal(imposter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal imposter to JSON: %w", err)
	}
	// Mountebank returns 201 Created for successful imposter creation
	return c.do(ctx, http.MethodPost, c.BaseURL+"/imposters", imposterJSON, http.StatusCreated)
}

// DeleteImposter deletes the imposter on port and returns the raw response
// body. Mountebank answers 200 with "{}" when nothing existed on that port.
func (c *Client) DeleteImposter(ctx context.Context, port int) ([]byte, error) {
	url := fmt.Sprintf("%s/imposters/%d", c.BaseURL, port)
	return c.do(ctx, http.MethodDelete, url, nil, http.StatusOK)
}

// DeleteRequests deletes all recorded requests for a specific imposter.
func (c *Client) DeleteRequests(ctx context.Context, port int) error {
	url := fmt.Sprintf("%s/imposters/%d/savedRequests", c.BaseURL, port)
	_, err := c.do(ctx, http.MethodDelete, url, nil, http.StatusOK)
	return err
}
