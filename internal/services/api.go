// Client for a running melodysyncer HTTP server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/melodysyncer/melodysyncer/internal/shared"
)

// APIService calls the public endpoints of a remote melodysyncer server.
type APIService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIService creates a client for the server at baseURL.
//
// apiKey, when set, is forwarded in the X-YouTube-API-Key header.
func NewAPIService(baseURL, apiKey string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Envelope is the JSON body shape every resolution endpoint returns.
type Envelope struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	URL     string   `json:"url,omitempty"`
	List    []string `json:"list,omitempty"`
	Length  int      `json:"length,omitempty"`
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string, query url.Values) (*APIResponse, error) {
	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return a.do(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func (a *APIService) do(req *http.Request) (*APIResponse, error) {
	if a.apiKey != "" {
		req.Header.Set("X-YouTube-API-Key", a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Song asks the server to resolve one track and returns the watch URL.
func (a *APIService) Song(ctx context.Context, trackID string) (string, error) {
	env, err := a.envelope(ctx, "/song", url.Values{"query": {trackID}})
	if err != nil {
		return "", err
	}
	return env.URL, nil
}

// Playlist asks the server to resolve a playlist and returns one entry per track.
func (a *APIService) Playlist(ctx context.Context, playlistID string) ([]string, error) {
	env, err := a.envelope(ctx, "/playlist", url.Values{"query": {playlistID}})
	if err != nil {
		return nil, err
	}
	return env.List, nil
}

func (a *APIService) envelope(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	resp, err := a.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: status %d: undecodable body", shared.ErrAPIRequest, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || env.Status != "success" {
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, env.Message)
	}
	return &env, nil
}
