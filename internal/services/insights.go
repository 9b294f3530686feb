// Listening-insights API [Service] implementation
//
// Communicates with an audioscrobbler-style REST platform keyed by api_key.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mixtape-sh/mixtape/internal/shared"
)

const defaultInsightsBaseURL = "https://ws.audioscrobbler.com/2.0"

// InsightArtist represents an artist entry in an insights response.
type InsightArtist struct {
	Name  string `json:"name"`
	Match string `json:"match,omitempty"` // similarity score, 0..1 as string
	URL   string `json:"url,omitempty"`
}

// InsightTrack represents a track entry in an insights response.
type InsightTrack struct {
	Name   string `json:"name"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
	URL string `json:"url,omitempty"`
}

// InsightTag represents a tag/genre entry in an insights response.
type InsightTag struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

// InsightsService implements the Service interface for the insights platform.
type InsightsService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewInsightsService creates a new insights service instance.
func NewInsightsService(baseURL, apiKey string) *InsightsService {
	if baseURL == "" {
		baseURL = defaultInsightsBaseURL
	}

	return &InsightsService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (s *InsightsService) Name() string {
	return "Insights"
}

// Authenticate stores the API key for subsequent requests.
//
// Expects credentials["api_key"].
func (s *InsightsService) Authenticate(ctx context.Context, credentials map[string]string) error {
	apiKey, ok := credentials["api_key"]
	if !ok || apiKey == "" {
		return fmt.Errorf("%w: api_key", shared.ErrMissingCredentials)
	}

	s.apiKey = apiKey
	return nil
}

// doRequest performs a keyed GET against the insights platform. method is the
// platform's method name (e.g. "artist.getsimilar"); params are appended to
// the query string.
func (s *InsightsService) doRequest(ctx context.Context, method string, params url.Values, result any) error {
	if s.apiKey == "" {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("method", method)
	q.Set("api_key", s.apiKey)
	q.Set("format", "json")

	apiURL := fmt.Sprintf("%s/?%s", s.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: insights platform rejected api key (status %d)", shared.ErrInvalidCredential, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("insights API error (status %d): %s", resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("insights API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// SimilarArtists returns artists similar to the named one.
func (s *InsightsService) SimilarArtists(ctx context.Context, artist string, limit int) ([]InsightArtist, error) {
	if artist == "" {
		return nil, fmt.Errorf("%w: artist", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("artist", artist)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var response struct {
		SimilarArtists struct {
			Artist []InsightArtist `json:"artist"`
		} `json:"similarartists"`
	}

	if err := s.doRequest(ctx, "artist.getsimilar", params, &response); err != nil {
		return nil, err
	}

	return response.SimilarArtists.Artist, nil
}

// TagTopTracks returns the most played tracks for a tag/genre.
func (s *InsightsService) TagTopTracks(ctx context.Context, tag string, limit int) ([]InsightTrack, error) {
	if tag == "" {
		return nil, fmt.Errorf("%w: tag", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("tag", tag)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var response struct {
		Tracks struct {
			Track []InsightTrack `json:"track"`
		} `json:"tracks"`
	}

	if err := s.doRequest(ctx, "tag.gettoptracks", params, &response); err != nil {
		return nil, err
	}

	return response.Tracks.Track, nil
}

// ArtistTopTags returns the dominant tags for an artist.
func (s *InsightsService) ArtistTopTags(ctx context.Context, artist string) ([]InsightTag, error) {
	if artist == "" {
		return nil, fmt.Errorf("%w: artist", shared.ErrMissingArgument)
	}

	params := url.Values{}
	params.Set("artist", artist)

	var response struct {
		TopTags struct {
			Tag []InsightTag `json:"tag"`
		} `json:"toptags"`
	}

	if err := s.doRequest(ctx, "artist.gettoptags", params, &response); err != nil {
		return nil, err
	}

	return response.TopTags.Tag, nil
}
