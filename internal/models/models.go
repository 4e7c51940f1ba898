// package models defines the data model for the track matching service
package models

import (
	"context"
	"fmt"
	"time"
)

// PlaceholderVideoID is a reserved video id that never counts as a match.
const PlaceholderVideoID = "dQw4w9WgXcQ"

// WatchURLPrefix is prepended to a video id to form its public URL.
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// UnavailableMarker stands in for the URL of a playlist track that could not be resolved.
const UnavailableMarker = "unavailable"

// Model defines the base interface for persisted records.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the append-only data access used for persisted records.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error         // Create inserts a new model into the database
	Get(ctx context.Context, id string) (T, error)     // Get retrieves a model by its ID
	List(ctx context.Context, limit int) ([]T, error) // List retrieves the newest models first
}

// Track describes a song as reported by the metadata provider.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMS int64  `json:"duration_ms"`
}

// Valid reports whether the track carries enough metadata to be searched.
func (t Track) Valid() bool {
	return t.ID != "" && t.Name != "" && t.Artist != ""
}

// Candidate is a single video search result.
type Candidate struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channel_title"`
}

// Match is a scored candidate with its resolved duration (0 when unknown).
type Match struct {
	Candidate
	Score      int   `json:"score"`
	DurationMS int64 `json:"duration_ms"`
}

// URL returns the public watch URL for a video id.
func URL(videoID string) string {
	return WatchURLPrefix + videoID
}

// ResolutionStatus classifies the outcome of resolving one track.
type ResolutionStatus string

const (
	StatusOK          ResolutionStatus = "ok"
	StatusNoMatch     ResolutionStatus = "no_match"
	StatusUnavailable ResolutionStatus = "unavailable"
)

// TrackResolution is the outcome for one track. Err is set when Status is not [StatusOK].
type TrackResolution struct {
	Track   Track            `json:"track"`
	VideoID string           `json:"video_id,omitempty"`
	URL     string           `json:"url"`
	Status  ResolutionStatus `json:"status"`
	Err     error            `json:"-"`
}

// PlaylistResolution holds per-track outcomes aligned with the source playlist order.
type PlaylistResolution struct {
	PlaylistID string            `json:"playlist_id"`
	Tracks     []TrackResolution `json:"tracks"`
}

// URLs returns one entry per track: the watch URL or [UnavailableMarker].
func (p PlaylistResolution) URLs() []string {
	urls := make([]string, len(p.Tracks))
	for i, tr := range p.Tracks {
		if tr.Status == StatusOK {
			urls[i] = tr.URL
		} else {
			urls[i] = UnavailableMarker
		}
	}
	return urls
}

// Counts returns the number of resolved and failed tracks.
func (p PlaylistResolution) Counts() (resolved, failed int) {
	for _, tr := range p.Tracks {
		if tr.Status == StatusOK {
			resolved++
		} else {
			failed++
		}
	}
	return resolved, failed
}

// Analytics is the cumulative counter document.
//
// Field names match the stored document shape shared by every sink.
type Analytics struct {
	ISOTotalCalls      int64 `json:"ISOtotalCalls" bson:"ISOtotalCalls"`
	MESOTotalCalls     int64 `json:"MESOtotalCalls" bson:"MESOtotalCalls"`
	SongsConverted     int64 `json:"MESOsongsConverted" bson:"MESOsongsConverted"`
	PlaylistsConverted int64 `json:"MESOplaylistsConverted" bson:"MESOplaylistsConverted"`
}

// SearchCallsPerSong is the number of upstream search units charged per converted song.
const SearchCallsPerSong = 5

// AnalyticsDelta returns the counter increments for one successful conversion.
func AnalyticsDelta(songs, playlists int) Analytics {
	return Analytics{
		ISOTotalCalls:      int64(SearchCallsPerSong * songs),
		MESOTotalCalls:     1,
		SongsConverted:     int64(songs),
		PlaylistsConverted: int64(playlists),
	}
}

// ConversionKind distinguishes single-song from playlist conversions.
type ConversionKind string

const (
	KindSong     ConversionKind = "song"
	KindPlaylist ConversionKind = "playlist"
)

// Conversion records one successful conversion request.
type Conversion struct {
	ConversionID string         `json:"id"`
	Kind         ConversionKind `json:"kind"`
	Songs        int            `json:"songs"`
	Created      time.Time      `json:"created_at"`
}

func (c *Conversion) ID() string           { return c.ConversionID }
func (c *Conversion) CreatedAt() time.Time { return c.Created }

func (c *Conversion) Validate() error {
	if c.ConversionID == "" {
		return fmt.Errorf("conversion id is required")
	}
	if c.Kind != KindSong && c.Kind != KindPlaylist {
		return fmt.Errorf("invalid conversion kind %q", c.Kind)
	}
	if c.Songs < 0 {
		return fmt.Errorf("songs must not be negative")
	}
	return nil
}
