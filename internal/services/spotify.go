// Spotify Web API track and playlist metadata
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/shared"
)

const (
	spotifyBaseURL      = "https://api.spotify.com/v1"
	spotifyPlaylistPage = 100
)

var errNotFound = errors.New("resource not found")

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int64           `json:"duration_ms"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is null for removed or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks represents one page of playlist items.
type SpotifyPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// ToModel converts the API representation to a [models.Track] using the first listed artist.
func (t SpotifyTrack) ToModel() models.Track {
	track := models.Track{
		ID:         t.ID,
		Name:       t.Name,
		Album:      t.Album.Name,
		DurationMS: t.DurationMS,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	return track
}

// SpotifyService reads track and playlist metadata with an app-level bearer token.
type SpotifyService struct {
	baseURL string
	tokens  *TokenCache
	client  *http.Client
}

// NewSpotifyService creates a metadata client.
//
// An empty baseURL uses the public Web API and a nil client uses [http.DefaultClient].
func NewSpotifyService(baseURL string, tokens *TokenCache, client *http.Client) *SpotifyService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SpotifyService{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens, client: client}
}

// Name returns the name of the service
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET and decodes the JSON body into result.
//
// endpoint is either a path relative to the base URL or an absolute pagination URL.
// A 401 drops the cached token and retries once.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = s.baseURL + endpoint
	}

	for attempt := 0; ; attempt++ {
		token, err := s.tokens.Token(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			s.tokens.Expire()
			continue
		}

		err = decodeSpotify(resp, result)
		resp.Body.Close()
		return err
	}
}

func decodeSpotify(resp *http.Response, result any) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// Track retrieves a single track by id.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*models.Track, error) {
	if err := validateSpotifyID(trackID); err != nil {
		return nil, err
	}

	var track SpotifyTrack
	err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), &track)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	} else if err != nil {
		return nil, err
	}

	if track.ID == "" || len(track.Artists) == 0 {
		return nil, fmt.Errorf("%w: %s has no usable metadata", shared.ErrTrackNotFound, trackID)
	}

	m := track.ToModel()
	return &m, nil
}

// PlaylistTracks retrieves every track of a playlist in playlist order, following pagination.
//
// Entries without a track, id, or artist are dropped. A playlist with nothing usable
// returns [shared.ErrPlaylistEmpty].
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if err := validateSpotifyID(playlistID); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", spotifyPlaylistPage))
	params.Set("offset", "0")
	next := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), params.Encode())

	var tracks []models.Track
	for next != "" {
		var page SpotifyPlaylistTracks
		err := s.doRequest(ctx, next, &page)
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		} else if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" || len(item.Track.Artists) == 0 {
				continue
			}
			tracks = append(tracks, item.Track.ToModel())
		}

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistEmpty, playlistID)
	}
	return tracks, nil
}

func validateSpotifyID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" || id == "null" {
		return fmt.Errorf("%w: missing spotify id", shared.ErrInvalidInput)
	}
	if strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("%w: malformed spotify id %q", shared.ErrInvalidInput, id)
	}
	return nil
}
