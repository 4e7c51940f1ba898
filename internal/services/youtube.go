// YouTube Data API v3 search and video details
//
// One [youtube.Service] is shared by every request. The API key travels per call so a
// single pooled client serves the whole key pool.
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const defaultMaxResults int64 = 10

// YouTubeService issues keyed search and video detail calls.
type YouTubeService struct {
	service    *youtube.Service
	maxResults int64
}

// NewYouTubeService creates a YouTube Data API client.
//
// An empty baseURL keeps the library's default endpoint and a nil client uses [http.DefaultClient].
// maxResults below one falls back to ten.
func NewYouTubeService(ctx context.Context, baseURL string, maxResults int64, client *http.Client) (*YouTubeService, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if maxResults < 1 {
		maxResults = defaultMaxResults
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithEndpoint(baseURL))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &YouTubeService{service: svc, maxResults: maxResults}, nil
}

// Name returns the name of the service
func (s *YouTubeService) Name() string {
	return "YouTube"
}

// SearchVideos runs a video search with the given key and returns candidates in result order.
//
// An empty result set is not an error; the caller decides what an empty list means.
func (s *YouTubeService) SearchVideos(ctx context.Context, key, query string) ([]models.Candidate, error) {
	resp, err := s.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(s.maxResults).
		Context(ctx).
		Do(googleapi.QueryParameter("key", key))
	if err != nil {
		return nil, wrapGoogleErr("search", err)
	}

	candidates := make([]models.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		c := models.Candidate{VideoID: item.Id.VideoId}
		if item.Snippet != nil {
			c.Title = item.Snippet.Title
			c.ChannelTitle = item.Snippet.ChannelTitle
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// VideoDuration returns the raw ISO-8601 duration of a video.
//
// A response without items is treated as a failure of this key.
func (s *YouTubeService) VideoDuration(ctx context.Context, key, videoID string) (string, error) {
	resp, err := s.service.Videos.List([]string{"contentDetails"}).
		Id(videoID).
		Context(ctx).
		Do(googleapi.QueryParameter("key", key))
	if err != nil {
		return "", wrapGoogleErr("videos", err)
	}

	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil {
		return "", fmt.Errorf("%w: no details for video %s", shared.ErrAPIRequest, videoID)
	}
	return resp.Items[0].ContentDetails.Duration, nil
}

func wrapGoogleErr(call string, err error) error {
	if gerr, ok := err.(*googleapi.Error); ok {
		return fmt.Errorf("%w: youtube %s: status %d: %s", shared.ErrAPIRequest, call, gerr.Code, gerr.Message)
	}
	return fmt.Errorf("%w: youtube %s: %v", shared.ErrAPIRequest, call, err)
}
