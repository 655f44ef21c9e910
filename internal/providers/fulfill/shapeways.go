package fulfill

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ShippingAddress is the destination for a physical print.
type ShippingAddress struct {
	Name    string
	Street  string
	City    string
	State   string
	Zip     string
	Country string
}

// OrderRequest submits one mesh for production.
type OrderRequest struct {
	MeshPath string
	Material string
	Address  ShippingAddress
}

// Submitter is the contract for a print fulfillment backend.
type Submitter interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (string, error)
}

// APIError is an error response from the fulfillment backend.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (http %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// ShapewaysOptions controls how the Shapeways client is configured.
type ShapewaysOptions struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// ShapewaysClient uploads models and places orders through the Shapeways API,
// authenticating with OAuth2 client credentials.
type ShapewaysClient struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu           sync.Mutex
	accessToken  string
	tokenExpires time.Time
}

func NewShapewaysClient(opts ShapewaysOptions) *ShapewaysClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.shapeways.com"
	}
	client := opts.HTTPClient
	if client == nil {
		// Uploads can be slow.
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &ShapewaysClient{
		httpClient:   client,
		baseURL:      base,
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
	}
}

// Configured reports whether credentials are present. The deferred trigger
// skips fulfillment silently when they are not.
func (c *ShapewaysClient) Configured() bool {
	return c != nil && c.clientID != "" && c.clientSecret != ""
}

func (c *ShapewaysClient) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpires) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("shapeways: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{
			Message:    "failed to get access token: " + strings.TrimSpace(string(text)),
			StatusCode: resp.StatusCode,
		}
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("shapeways: decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("shapeways: empty access token")
	}
	expiresIn := out.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.accessToken = out.AccessToken
	c.tokenExpires = time.Now().Add(time.Duration(expiresIn-60) * time.Second)
	return c.accessToken, nil
}

func (c *ShapewaysClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shapeways: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Message:    "api error: " + strings.TrimSpace(string(text)),
			StatusCode: resp.StatusCode,
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("shapeways: decode response: %w", err)
		}
	}
	return nil
}

// SubmitOrder uploads the mesh and places a production order, returning the
// external order reference.
func (c *ShapewaysClient) SubmitOrder(ctx context.Context, req OrderRequest) (string, error) {
	if !c.Configured() {
		return "", errors.New("shapeways: client credentials not configured")
	}
	data, err := os.ReadFile(req.MeshPath)
	if err != nil {
		return "", fmt.Errorf("shapeways: read mesh: %w", err)
	}

	upload := map[string]any{
		"fileName":                 filepath.Base(req.MeshPath),
		"file":                     base64.StdEncoding.EncodeToString(data),
		"description":              "3D model uploaded via API",
		"hasRightsToModel":         1,
		"acceptTermsAndConditions": 1,
	}
	var uploaded struct {
		ModelID json.Number `json:"modelId"`
		Model   struct {
			ModelID json.Number `json:"modelId"`
		} `json:"model"`
	}
	if err := c.postJSON(ctx, "/models/v1", upload, &uploaded); err != nil {
		return "", err
	}
	modelID := uploaded.Model.ModelID.String()
	if modelID == "" || modelID == "0" {
		modelID = uploaded.ModelID.String()
	}
	if modelID == "" || modelID == "0" {
		return "", errors.New("shapeways: no model id in upload response")
	}

	order := map[string]any{
		"items": []map[string]any{{
			"modelId":    modelID,
			"materialId": req.Material,
			"quantity":   1,
		}},
		"firstName":    req.Address.Name,
		"address1":     req.Address.Street,
		"city":         req.Address.City,
		"state":        req.Address.State,
		"zipCode":      req.Address.Zip,
		"country":      req.Address.Country,
		"shippingType": "Cheapest",
	}
	var placed struct {
		OrderID json.Number `json:"orderId"`
	}
	if err := c.postJSON(ctx, "/orders/v1", order, &placed); err != nil {
		return "", err
	}
	if placed.OrderID.String() == "" || placed.OrderID.String() == "0" {
		return "", errors.New("shapeways: no order id in response")
	}
	return placed.OrderID.String(), nil
}

var _ Submitter = (*ShapewaysClient)(nil)
