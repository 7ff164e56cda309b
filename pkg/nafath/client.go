package nafath

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the Nafath identity provider.
type Client interface {
	// RequestVerification asks Nafath to start an MFA verification for the
	// given national ID and transaction. The returned random value is shown
	// to the user so they can confirm the right request on their device.
	RequestVerification(ctx context.Context, nafathID, transactionID string) (VerificationRequest, error)
}

// VerificationRequest is Nafath's acknowledgement of an initiated check.
type VerificationRequest struct {
	TransactionID string `json:"transId"`
	Random        string `json:"random"`
}

// HTTPClient implements Client against the Nafath REST API.
type HTTPClient struct {
	baseURL    string
	appID      string
	appKey     string
	httpClient *http.Client
}

type HTTPClientOption func(*HTTPClient)

func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

func NewHTTPClient(baseURL, appID, appKey string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		appID:      appID,
		appKey:     appKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) RequestVerification(ctx context.Context, nafathID, transactionID string) (VerificationRequest, error) {
	payload, err := json.Marshal(map[string]string{
		"nationalId": nafathID,
		"transId":    transactionID,
		"service":    "Login",
	})
	if err != nil {
		return VerificationRequest{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/mfa/request", bytes.NewReader(payload))
	if err != nil {
		return VerificationRequest{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("APP-ID", c.appID)
	req.Header.Set("APP-KEY", c.appKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return VerificationRequest{}, fmt.Errorf("nafath request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VerificationRequest{}, fmt.Errorf("nafath returned status %d", resp.StatusCode)
	}

	var vr VerificationRequest
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return VerificationRequest{}, fmt.Errorf("failed to decode nafath response: %w", err)
	}
	return vr, nil
}

// MockClient fakes the provider for tests and local development.
type MockClient struct {
	Requests []VerificationRequest
	Fail     bool
}

func (m *MockClient) RequestVerification(ctx context.Context, nafathID, transactionID string) (VerificationRequest, error) {
	if m.Fail {
		return VerificationRequest{}, fmt.Errorf("mock nafath client configured to fail")
	}
	vr := VerificationRequest{TransactionID: transactionID, Random: "42"}
	m.Requests = append(m.Requests, vr)
	return vr, nil
}
