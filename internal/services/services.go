// package services defines the upstream providers used by the matching pipeline
//
// Spotify (metadata), YouTube Data API (search and video details)
package services

import (
	"context"

	"github.com/melodysyncer/melodysyncer/internal/models"
)

// TrackSource resolves Spotify identifiers into track descriptors.
type TrackSource interface {
	// Track retrieves a single track by id.
	Track(ctx context.Context, trackID string) (*models.Track, error)

	// PlaylistTracks retrieves every usable track of a playlist in playlist order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// Name returns the name of the service
	Name() string
}

// VideoSource performs keyed video lookups. Every call uses exactly one API key.
type VideoSource interface {
	// SearchVideos returns candidates for a free-text query.
	SearchVideos(ctx context.Context, key, query string) ([]models.Candidate, error)

	// VideoDuration returns the raw ISO-8601 duration of a video.
	VideoDuration(ctx context.Context, key, videoID string) (string, error)

	// Name returns the name of the service
	Name() string
}

var (
	_ TrackSource = (*SpotifyService)(nil)
	_ VideoSource = (*YouTubeService)(nil)
)
