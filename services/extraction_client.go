package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultExtractionTimeout is generous; the document-understanding model
	// can take a while on dense pages
	DefaultExtractionTimeout = 3 * time.Minute
)

// RawQuestion is a candidate question exactly as the document-understanding
// service reports it. Its ID is untrusted and may collide across batches.
type RawQuestion struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Tags          []string `json:"tags"`
	Marks         int      `json:"marks"`
	Page          int      `json:"page"`
	PassageID     string   `json:"passage_id"`
}

// RawPassage is a shared reading passage as reported by the service
type RawPassage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ExtractionRequest carries one batch of page images to the service
type ExtractionRequest struct {
	Images       [][]byte
	Instructions string
	Model        string
}

// ExtractionResult is the accumulated structured output of one or more batches
type ExtractionResult struct {
	Questions    []RawQuestion
	Passages     []RawPassage
	Instructions []string
}

// ExtractionCapability converts page images into structured question and
// passage data. It is treated as opaque; the orchestrator is the only caller.
type ExtractionCapability interface {
	ExtractQuestions(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error)
}

// DocScanClient is the HTTP client for the document-understanding service
type DocScanClient struct {
	baseURL      string
	apiKey       string
	defaultModel string
	httpClient   *http.Client
}

// DocScanConfig holds configuration for the document-understanding client
type DocScanConfig struct {
	BaseURL string
	APIKey  string
	// DefaultModel is used when a request does not name a model
	DefaultModel string
	Timeout      time.Duration
}

// NewDocScanClient creates a new document-understanding client
func NewDocScanClient(config DocScanConfig) *DocScanClient {
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8081"
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultExtractionTimeout
	}

	return &DocScanClient{
		baseURL:      config.BaseURL,
		apiKey:       config.APIKey,
		defaultModel: config.DefaultModel,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type docScanRequest struct {
	Images       []string `json:"images"`
	Instructions string   `json:"instructions,omitempty"`
	Model        string   `json:"model"`
}

type docScanResponse struct {
	Success      bool          `json:"success"`
	Questions    []RawQuestion `json:"questions"`
	Passages     []RawPassage  `json:"passages"`
	Instructions []string      `json:"instructions"`
	Error        string        `json:"error,omitempty"`
}

// ExtractQuestions sends one batch of page images and returns the structured result
func (c *DocScanClient) ExtractQuestions(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error) {
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("no images in extraction request")
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	payload := docScanRequest{
		Images:       make([]string, len(req.Images)),
		Instructions: req.Instructions,
		Model:        model,
	}
	for i, img := range req.Images {
		payload.Images[i] = base64.StdEncoding.EncodeToString(img)
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/extract-questions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("extraction service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var scanResp docScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&scanResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !scanResp.Success {
		return nil, fmt.Errorf("extraction service reported failure: %s", scanResp.Error)
	}

	return &ExtractionResult{
		Questions:    scanResp.Questions,
		Passages:     scanResp.Passages,
		Instructions: scanResp.Instructions,
	}, nil
}

// HealthCheck checks if the extraction service is reachable
func (c *DocScanClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extraction service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}
