// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/melodysyncer/melodysyncer/internal/models"
)

// FakeVideoSource is a test double for services.VideoSource driven by per-call functions.
//
// Nil functions return an empty result.
type FakeVideoSource struct {
	SearchFunc   func(key, query string) ([]models.Candidate, error)
	DurationFunc func(key, videoID string) (string, error)

	mu            sync.Mutex
	searchKeys    []string
	durationCalls []string
}

func (f *FakeVideoSource) SearchVideos(ctx context.Context, key, query string) ([]models.Candidate, error) {
	f.mu.Lock()
	f.searchKeys = append(f.searchKeys, key)
	f.mu.Unlock()

	if f.SearchFunc == nil {
		return nil, nil
	}
	return f.SearchFunc(key, query)
}

func (f *FakeVideoSource) VideoDuration(ctx context.Context, key, videoID string) (string, error) {
	f.mu.Lock()
	f.durationCalls = append(f.durationCalls, key+":"+videoID)
	f.mu.Unlock()

	if f.DurationFunc == nil {
		return "", nil
	}
	return f.DurationFunc(key, videoID)
}

func (f *FakeVideoSource) Name() string { return "fake-video" }

// SearchKeys returns the keys used for search calls, in call order.
func (f *FakeVideoSource) SearchKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searchKeys...)
}

// DurationCalls returns "key:videoID" for every duration lookup.
func (f *FakeVideoSource) DurationCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.durationCalls...)
}

// FakeTrackSource is a test double for services.TrackSource backed by maps.
type FakeTrackSource struct {
	Tracks    map[string]models.Track
	Playlists map[string][]models.Track
	Err       error
}

func (f *FakeTrackSource) Track(ctx context.Context, trackID string) (*models.Track, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	t, ok := f.Tracks[trackID]
	if !ok {
		return nil, errors.New("track not found")
	}
	return &t, nil
}

func (f *FakeTrackSource) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	tracks, ok := f.Playlists[playlistID]
	if !ok {
		return nil, errors.New("playlist not found")
	}
	return tracks, nil
}

func (f *FakeTrackSource) Name() string { return "fake-track" }

// FakeSink records analytics increments.
type FakeSink struct {
	mu    sync.Mutex
	Calls []models.Analytics
	Err   error
}

func (f *FakeSink) Increment(ctx context.Context, songs, playlists int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, models.AnalyticsDelta(songs, playlists))
	return f.Err
}

func (f *FakeSink) Snapshot(ctx context.Context) ([]models.Analytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var total models.Analytics
	for _, c := range f.Calls {
		total.ISOTotalCalls += c.ISOTotalCalls
		total.MESOTotalCalls += c.MESOTotalCalls
		total.SongsConverted += c.SongsConverted
		total.PlaylistsConverted += c.PlaylistsConverted
	}
	if len(f.Calls) == 0 {
		return nil, nil
	}
	return []models.Analytics{total}, nil
}

func (f *FakeSink) Close(ctx context.Context) error { return nil }

// Count returns the number of increments seen so far.
func (f *FakeSink) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
