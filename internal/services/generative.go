// Generative-language API [Service] implementation
//
// Calls a generateContent-style REST endpoint with API-key auth.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/mixtape-sh/mixtape/internal/shared"
)

const (
	defaultGenerativeBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGenerativeModel   = "gemini-2.0-flash"
)

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
	Role  string         `json:"role,omitempty"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      generateContent `json:"content"`
		FinishReason string          `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

// GenerativeService implements the Service interface for the generative-language API.
type GenerativeService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGenerativeService creates a new generative-language service instance.
func NewGenerativeService(baseURL, apiKey, model string) *GenerativeService {
	if baseURL == "" {
		baseURL = defaultGenerativeBaseURL
	}
	if model == "" {
		model = defaultGenerativeModel
	}

	return &GenerativeService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (g *GenerativeService) Name() string {
	return "Generative"
}

// Authenticate stores the API key for subsequent requests.
//
// Expects credentials["api_key"].
func (g *GenerativeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	apiKey, ok := credentials["api_key"]
	if !ok || apiKey == "" {
		return fmt.Errorf("%w: api_key", shared.ErrMissingCredentials)
	}

	g.apiKey = apiKey
	return nil
}

// Generate sends a prompt and returns the first candidate's text.
func (g *GenerativeService) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}

	body := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: generative API rejected key (status %d)", shared.ErrInvalidCredential, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("generative API error: status %d: %s", resp.StatusCode, string(text))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: response carried no candidates", shared.ErrAPIRequest)
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
