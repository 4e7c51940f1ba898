package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/services"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"golang.org/x/sync/errgroup"
)

// ResolverOpts holds the long-lived collaborators shared by every resolution.
type ResolverOpts struct {
	Tracks      services.TrackSource
	Videos      services.VideoSource
	Keys        []string           // configured API keys, in preference order
	Analytics   *AnalyticsRecorder // optional
	Logger      *log.Logger
	Concurrency int // max tracks resolved at once per playlist; 0 is unbounded
}

// Resolver matches tracks to videos.
//
// It is built once at startup and is safe for concurrent use.
type Resolver struct {
	tracks      services.TrackSource
	videos      services.VideoSource
	keys        []string
	analytics   *AnalyticsRecorder
	logger      *log.Logger
	concurrency int
}

// NewResolver creates a Resolver from opts.
func NewResolver(opts ResolverOpts) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		tracks:      opts.Tracks,
		videos:      opts.Videos,
		keys:        append([]string(nil), opts.Keys...),
		analytics:   opts.Analytics,
		logger:      shared.WithLogger(logger, "component", "resolver"),
		concurrency: opts.Concurrency,
	}
}

// Pool returns a fresh key pool for one request with override placed first.
func (r *Resolver) Pool(override string) KeyPool {
	return NewKeyPool(r.keys, override)
}

// ResolveTrack finds the best video for t.
//
// Errors wrap [shared.ErrKeysExhausted] when no key could search,
// [shared.ErrNoResults] when the search came back empty, and
// [shared.ErrNoMatch] when the winner is the reserved placeholder.
func (r *Resolver) ResolveTrack(ctx context.Context, t models.Track, keys KeyPool) (models.Match, error) {
	query := SearchQuery(t)

	candidates, err := Race(ctx, keys, func(ctx context.Context, key string) ([]models.Candidate, error) {
		c, err := r.videos.SearchVideos(ctx, key, query)
		if err != nil {
			r.logger.Debug("search attempt failed", "track", t.ID, "error", err)
		}
		return c, err
	}, func(c []models.Candidate) bool { return len(c) == 0 })
	if err != nil {
		return models.Match{}, fmt.Errorf("search %q: %w", query, err)
	}
	if len(candidates) == 0 {
		return models.Match{}, fmt.Errorf("%w: %q", shared.ErrNoResults, query)
	}

	durations := make([]int64, len(candidates))
	var g errgroup.Group
	for i, c := range candidates {
		g.Go(func() error {
			durations[i] = r.videoDuration(ctx, keys, c.VideoID)
			return nil
		})
	}
	g.Wait()

	best := BestMatch(candidates, durations, t)
	if best.VideoID == models.PlaceholderVideoID {
		return best, fmt.Errorf("%w: %s - %s", shared.ErrNoMatch, t.Artist, t.Name)
	}

	r.logger.Debug("matched", "track", t.ID, "video", best.VideoID, "score", best.Score)
	return best, nil
}

// videoDuration returns a video's length in milliseconds, or 0 when no key can read it.
func (r *Resolver) videoDuration(ctx context.Context, keys KeyPool, videoID string) int64 {
	raw, err := Sequential(ctx, keys, func(ctx context.Context, key string) (string, error) {
		return r.videos.VideoDuration(ctx, key, videoID)
	})
	if err != nil {
		r.logger.Debug("duration unavailable", "video", videoID, "error", err)
		return 0
	}
	return shared.ParseISODuration(raw)
}

// ResolveTracks resolves every track concurrently. The result is aligned with tracks;
// a failed track yields a non-OK status instead of aborting the batch.
func (r *Resolver) ResolveTracks(ctx context.Context, tracks []models.Track, keys KeyPool, progress chan<- ProgressUpdate) []models.TrackResolution {
	results := make([]models.TrackResolution, len(tracks))
	done := make(chan int, len(tracks))

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, t := range tracks {
		g.Go(func() error {
			results[i] = r.resolution(ctx, t, keys)
			done <- i
			return nil
		})
	}

	go func() {
		g.Wait()
		close(done)
	}()

	step := 0
	for i := range done {
		step++
		sendProgress(progress, resolvedTrackUpdate(step, len(tracks), results[i]))
	}
	return results
}

func (r *Resolver) resolution(ctx context.Context, t models.Track, keys KeyPool) models.TrackResolution {
	res := models.TrackResolution{Track: t}
	m, err := r.ResolveTrack(ctx, t, keys)
	switch {
	case err == nil:
		res.VideoID = m.VideoID
		res.URL = models.URL(m.VideoID)
		res.Status = models.StatusOK
	case errors.Is(err, shared.ErrNoMatch), errors.Is(err, shared.ErrNoResults):
		res.Status = models.StatusNoMatch
		res.Err = err
	default:
		res.Status = models.StatusUnavailable
		res.Err = err
	}
	return res
}

// Song resolves a single Spotify track id.
//
// override is the caller's own API key and may be empty.
func (r *Resolver) Song(ctx context.Context, trackID, override string) (models.TrackResolution, error) {
	track, err := r.tracks.Track(ctx, trackID)
	if err != nil {
		return models.TrackResolution{}, err
	}

	m, err := r.ResolveTrack(ctx, *track, r.Pool(override))
	if err != nil {
		return models.TrackResolution{Track: *track}, err
	}

	r.analytics.Record(1, 0)
	return models.TrackResolution{
		Track:   *track,
		VideoID: m.VideoID,
		URL:     models.URL(m.VideoID),
		Status:  models.StatusOK,
	}, nil
}

// Playlist resolves every track of a Spotify playlist.
//
// It fails as a whole when the track list cannot be fetched, or when nothing resolved and
// every failure was key exhaustion; the partial result is still returned in that case.
func (r *Resolver) Playlist(ctx context.Context, playlistID, override string, progress chan<- ProgressUpdate) (*models.PlaylistResolution, error) {
	sendProgress(progress, fetchSourceUpdate(playlistID))

	tracks, err := r.tracks.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	result := &models.PlaylistResolution{
		PlaylistID: playlistID,
		Tracks:     r.ResolveTracks(ctx, tracks, r.Pool(override), progress),
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	if allExhausted(result.Tracks) {
		return result, fmt.Errorf("%w: no track could be searched", shared.ErrKeysExhausted)
	}

	sendProgress(progress, completeUpdate(result))
	r.analytics.Record(len(result.Tracks), 1)
	return result, nil
}

func allExhausted(tracks []models.TrackResolution) bool {
	if len(tracks) == 0 {
		return false
	}
	for _, tr := range tracks {
		if !errors.Is(tr.Err, shared.ErrKeysExhausted) {
			return false
		}
	}
	return true
}
