// Package backend is the HTTP client for the ShelfScan identification,
// recommendation and explanation service. The service itself is external;
// this package only consumes it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"shelfscan/pkg/models"
)

// Client talks to the ShelfScan backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Identify uploads a captured image and returns the identification result.
func (c *Client) Identify(ctx context.Context, image []byte, filename string) (*models.IdentifyResponse, error) {
	if filename == "" {
		filename = "capture.jpg"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/identify", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create identify request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identify failed: backend returned status %d", resp.StatusCode)
	}

	var raw struct {
		GeminiGuesses        []string                  `json:"gemini_guesses"`
		BestMatch            *models.BestMatch         `json:"best_match"`
		BestMatchExplanation json.RawMessage           `json:"best_match_explanation"`
		Candidates           []models.CandidateProduct `json:"candidates"`
		NeedsConfirmation    bool                      `json:"needs_confirmation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode identify response: %w", err)
	}

	result := &models.IdentifyResponse{
		GeminiGuesses:     raw.GeminiGuesses,
		BestMatch:         raw.BestMatch,
		Candidates:        raw.Candidates,
		NeedsConfirmation: raw.NeedsConfirmation,
	}
	if len(raw.BestMatchExplanation) > 0 && string(raw.BestMatchExplanation) != "null" {
		result.BestMatchExplanation = NormalizeExplanation(raw.BestMatchExplanation)
	}
	return result, nil
}

// GetProduct looks up a product by code.
func (c *Client) GetProduct(ctx context.Context, code string) (*models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/product/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create product request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product not found: backend returned status %d", resp.StatusCode)
	}

	var product models.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode product response: %w", err)
	}
	return &product, nil
}

// Recommend returns greener alternatives for a product code.
func (c *Client) Recommend(ctx context.Context, code string) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/recommend/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create recommend request: %w", err)
	}
	return c.doRecommend(req)
}

// RecommendFromProduct returns greener alternatives computed from the
// product fields directly, avoiding a lookup by a possibly ambiguous code.
func (c *Client) RecommendFromProduct(ctx context.Context, product *models.Product) ([]models.Product, error) {
	payload := map[string]any{
		"product_code":   product.ProductCode,
		"product_name":   product.ProductName,
		"brands":         product.Brands,
		"categories":     product.Categories,
		"ecoscore_grade": product.EcoscoreGrade,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recommend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/recommend", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create recommend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRecommend(req)
}

func (c *Client) doRecommend(req *http.Request) ([]models.Product, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recommend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recommendations failed: backend returned status %d", resp.StatusCode)
	}

	var products []models.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode recommend response: %w", err)
	}
	return products, nil
}

// Explain fetches the AI explanation for a product code.
func (c *Client) Explain(ctx context.Context, code string) (*models.ExplanationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/explain/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create explain request: %w", err)
	}
	return c.doExplain(req)
}

// ExplainProduct fetches the AI explanation using the full product record,
// so the backend does not have to resolve the code again.
func (c *Client) ExplainProduct(ctx context.Context, product *models.Product) (*models.ExplanationResponse, error) {
	data, err := json.Marshal(product)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal explain request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/explain", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create explain request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doExplain(req)
}

func (c *Client) doExplain(req *http.Request) (*models.ExplanationResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explain request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explanation failed: backend returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read explain response: %w", err)
	}
	return NormalizeExplanation(body), nil
}
