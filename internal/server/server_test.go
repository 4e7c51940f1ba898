package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"github.com/melodysyncer/melodysyncer/internal/tasks"
	tu "github.com/melodysyncer/melodysyncer/internal/testing"
)

type fakeConverter struct {
	song     func(id, key string) (models.TrackResolution, error)
	playlist func(ctx context.Context, id, key string) (*models.PlaylistResolution, error)

	mu      sync.Mutex
	lastKey string
}

func (f *fakeConverter) Song(ctx context.Context, id, key string) (models.TrackResolution, error) {
	f.setKey(key)
	return f.song(id, key)
}

func (f *fakeConverter) Playlist(ctx context.Context, id, key string, _ chan<- tasks.ProgressUpdate) (*models.PlaylistResolution, error) {
	f.setKey(key)
	return f.playlist(ctx, id, key)
}

func (f *fakeConverter) setKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey = key
}

func (f *fakeConverter) key() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastKey
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestServer(t *testing.T, conv Converter, analytics AnalyticsReader, cfg shared.ServerConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHandler(NewAPI(conv, analytics, quietLogger()), cfg, quietLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

func okSong(id, key string) (models.TrackResolution, error) {
	return models.TrackResolution{VideoID: "vid-" + id, URL: models.URL("vid-" + id), Status: models.StatusOK}, nil
}

func TestSongEndpoint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		conv := &fakeConverter{song: okSong}
		srv := newTestServer(t, conv, nil, shared.ServerConfig{})

		resp, err := http.Get(srv.URL + "/song?query=abc")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=300" {
			t.Errorf("unexpected Cache-Control %q", cc)
		}
		if resp.Header.Get(RequestIDHeader) == "" {
			t.Error("expected a request id header")
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Error("expected CORS header")
		}

		body := decode(t, resp)
		if body["status"] != "success" || body["url"] != "https://www.youtube.com/watch?v=vid-abc" {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("Missing Or Null Id", func(t *testing.T) {
		conv := &fakeConverter{song: okSong}
		srv := newTestServer(t, conv, nil, shared.ServerConfig{})

		for _, path := range []string{"/song", "/song?query=", "/song?query=null"} {
			resp, err := http.Get(srv.URL + path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			body := decode(t, resp)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", path, resp.StatusCode)
			}
			if body["message"] != msgBadSong {
				t.Errorf("%s: unexpected message %v", path, body["message"])
			}
		}
	})

	t.Run("Key From Query Wins Over Header", func(t *testing.T) {
		conv := &fakeConverter{song: okSong}
		srv := newTestServer(t, conv, nil, shared.ServerConfig{})

		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/song?query=abc&youtubeAPIKEY=from-query", nil)
		req.Header.Set(APIKeyHeader, "from-header")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if conv.key() != "from-query" {
			t.Errorf("expected query key, got %q", conv.key())
		}

		req, _ = http.NewRequest(http.MethodGet, srv.URL+"/song?query=abc", nil)
		req.Header.Set(APIKeyHeader, "from-header")
		resp, err = http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if conv.key() != "from-header" {
			t.Errorf("expected header key, got %q", conv.key())
		}
	})

	t.Run("Error Mapping", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
			msg    string
		}{
			{"Exhausted", shared.ErrKeysExhausted, http.StatusServiceUnavailable, msgExhausted},
			{"Track Not Found", shared.ErrTrackNotFound, http.StatusNotFound, msgNoTrack},
			{"No Match", shared.ErrNoMatch, http.StatusNotFound, msgNoMatch},
			{"No Results", shared.ErrNoResults, http.StatusNotFound, msgNoMatch},
			{"Invalid Input", shared.ErrInvalidInput, http.StatusBadRequest, msgBadSong},
			{"Missing Credentials", shared.ErrMissingCredentials, http.StatusInternalServerError, msgUnexpected},
			{"Wrapped", fmt.Errorf("search: %w", shared.ErrKeysExhausted), http.StatusServiceUnavailable, msgExhausted},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conv := &fakeConverter{song: func(string, string) (models.TrackResolution, error) {
					return models.TrackResolution{}, tt.err
				}}
				srv := newTestServer(t, conv, nil, shared.ServerConfig{})

				resp, err := http.Get(srv.URL + "/song?query=abc")
				if err != nil {
					t.Fatalf("request failed: %v", err)
				}
				body := decode(t, resp)
				if resp.StatusCode != tt.status {
					t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
				}
				if body["status"] != "error" || body["message"] != tt.msg {
					t.Errorf("unexpected body: %v", body)
				}
			})
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		srv := newTestServer(t, &fakeConverter{song: okSong}, nil, shared.ServerConfig{})

		resp, err := http.Post(srv.URL+"/song?query=abc", "application/json", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}

func TestPlaylistEndpoint(t *testing.T) {
	result := &models.PlaylistResolution{
		PlaylistID: "pl",
		Tracks: []models.TrackResolution{
			{Track: models.Track{ID: "a"}, VideoID: "va", URL: models.URL("va"), Status: models.StatusOK},
			{Track: models.Track{ID: "b"}, Status: models.StatusUnavailable},
			{Track: models.Track{ID: "c"}, VideoID: "vc", URL: models.URL("vc"), Status: models.StatusOK},
		},
	}

	t.Run("List Keeps Order", func(t *testing.T) {
		conv := &fakeConverter{playlist: func(context.Context, string, string) (*models.PlaylistResolution, error) {
			return result, nil
		}}
		srv := newTestServer(t, conv, nil, shared.ServerConfig{})

		resp, err := http.Get(srv.URL + "/playlist?query=pl")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := decode(t, resp)

		list, ok := body["list"].([]any)
		if !ok || len(list) != 3 {
			t.Fatalf("unexpected list: %v", body["list"])
		}
		if list[0] != models.URL("va") || list[1] != models.UnavailableMarker || list[2] != models.URL("vc") {
			t.Errorf("unexpected list order: %v", list)
		}
		if _, ok := body["length"]; ok {
			t.Error("length should be omitted without give_length")
		}
	})

	t.Run("Give Length", func(t *testing.T) {
		conv := &fakeConverter{playlist: func(context.Context, string, string) (*models.PlaylistResolution, error) {
			return result, nil
		}}
		srv := newTestServer(t, conv, nil, shared.ServerConfig{})

		resp, err := http.Get(srv.URL + "/playlist?query=pl&give_length=yes")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := decode(t, resp)
		if body["length"] != float64(3) {
			t.Errorf("expected length 3, got %v", body["length"])
		}
	})

	t.Run("Error Mapping", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
			msg    string
		}{
			{"Not Found", shared.ErrPlaylistNotFound, http.StatusNotFound, msgNoPlaylist},
			{"Empty", shared.ErrPlaylistEmpty, http.StatusUnprocessableEntity, msgEmptyList},
			{"Exhausted", shared.ErrKeysExhausted, http.StatusServiceUnavailable, msgExhausted},
			{"Invalid", shared.ErrInvalidInput, http.StatusBadRequest, msgBadList},
			{"Timeout", shared.ErrTimeout, http.StatusGatewayTimeout, msgTimeout},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conv := &fakeConverter{playlist: func(context.Context, string, string) (*models.PlaylistResolution, error) {
					return nil, tt.err
				}}
				srv := newTestServer(t, conv, nil, shared.ServerConfig{})

				resp, err := http.Get(srv.URL + "/playlist?query=pl")
				if err != nil {
					t.Fatalf("request failed: %v", err)
				}
				body := decode(t, resp)
				if resp.StatusCode != tt.status || body["message"] != tt.msg {
					t.Errorf("expected %d %q, got %d %v", tt.status, tt.msg, resp.StatusCode, body["message"])
				}
			})
		}
	})

	t.Run("Request Timeout", func(t *testing.T) {
		conv := &fakeConverter{playlist: func(ctx context.Context, _, _ string) (*models.PlaylistResolution, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		srv := newTestServer(t, conv, nil, shared.ServerConfig{RequestTimeoutSeconds: 1})

		resp, err := http.Get(srv.URL + "/playlist?query=pl")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusGatewayTimeout {
			t.Errorf("expected 504, got %d", resp.StatusCode)
		}
	})
}

type fakeAnalytics struct {
	docs []models.Analytics
	err  error
}

func (f fakeAnalytics) Snapshot(context.Context) ([]models.Analytics, error) {
	return f.docs, f.err
}

func TestAnalyticsEndpoint(t *testing.T) {
	t.Run("No Data", func(t *testing.T) {
		srv := newTestServer(t, &fakeConverter{}, nil, shared.ServerConfig{})

		resp, err := http.Get(srv.URL + "/analytics")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := decode(t, resp)
		if body["message"] != msgNoData {
			t.Errorf("unexpected message: %v", body["message"])
		}
		if data, ok := body["data"].([]any); !ok || len(data) != 0 {
			t.Errorf("expected empty data array, got %v", body["data"])
		}
	})

	t.Run("With Data", func(t *testing.T) {
		docs := []models.Analytics{{ISOTotalCalls: 10, MESOTotalCalls: 2, SongsConverted: 2}}
		srv := newTestServer(t, &fakeConverter{}, fakeAnalytics{docs: docs}, shared.ServerConfig{})

		resp, err := http.Get(srv.URL + "/analytics")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=60" {
			t.Errorf("unexpected Cache-Control %q", cc)
		}
		body := decode(t, resp)
		data := body["data"].([]any)
		first := data[0].(map[string]any)
		if first["ISOtotalCalls"] != float64(10) || first["MESOsongsConverted"] != float64(2) {
			t.Errorf("unexpected document: %v", first)
		}
	})

	t.Run("Store Failure", func(t *testing.T) {
		srv := newTestServer(t, &fakeConverter{}, fakeAnalytics{err: fmt.Errorf("db down")}, shared.ServerConfig{})

		resp, err := http.Get(srv.URL + "/analytics")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", resp.StatusCode)
		}
	})
}

func TestHelpEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	Help(rec, httptest.NewRequest(http.MethodGet, "/help", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected Content-Type %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
	for _, route := range []string{"/song", "/playlist", "/analytics", "/repeat"} {
		if !strings.Contains(rec.Body.String(), route) {
			t.Errorf("help text does not mention %s", route)
		}
	}
}

func TestRepeatEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeConverter{}, nil, shared.ServerConfig{})

	t.Run("GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/repeat?text=hi%20there&count=3")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := decode(t, resp)
		result := body["result"].([]any)
		if len(result) != 3 || result[0] != "hi there" {
			t.Errorf("unexpected result: %v", result)
		}
		if body["original_text"] != "hi there" || body["count"] != float64(3) {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("POST", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/repeat", "application/json", strings.NewReader(`{"text":"x","count":2}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := decode(t, resp)
		if len(body["result"].([]any)) != 2 {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("Count Too Large", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/repeat?text=x&count=100001")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("Bad Input", func(t *testing.T) {
		for _, path := range []string{"/repeat?count=2", "/repeat?text=x&count=many"} {
			resp, err := http.Get(srv.URL + path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", path, resp.StatusCode)
			}
		}

		resp, err := http.Post(srv.URL+"/repeat", "application/json", strings.NewReader(`{nope`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for bad JSON, got %d", resp.StatusCode)
		}
	})

	t.Run("Other Methods", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/repeat", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := decode(t, resp)
		if resp.StatusCode != http.StatusMethodNotAllowed || body["status"] != "error" {
			t.Errorf("expected JSON 405, got %d %v", resp.StatusCode, body)
		}
	})
}

func TestStaticHandler(t *testing.T) {
	srv := newTestServer(t, &fakeConverter{}, nil, shared.ServerConfig{})

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/favicon.ico", http.StatusOK, "image/svg+xml"},
		{"/nope", http.StatusNotFound, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if !strings.HasPrefix(resp.Header.Get("Content-Type"), tt.contentType) {
				t.Errorf("unexpected Content-Type %q", resp.Header.Get("Content-Type"))
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("Rate Limit", func(t *testing.T) {
		srv := newTestServer(t, &fakeConverter{song: okSong}, nil, shared.ServerConfig{RateLimit: 0.001, Burst: 1})

		first, err := http.Get(srv.URL + "/help")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		first.Body.Close()
		if first.StatusCode != http.StatusOK {
			t.Fatalf("expected first request to pass, got %d", first.StatusCode)
		}

		second, err := http.Get(srv.URL + "/help")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		second.Body.Close()
		if second.StatusCode != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", second.StatusCode)
		}
	})

	t.Run("Disabled Limiter", func(t *testing.T) {
		if NewLimiter(0, 10) != nil {
			t.Error("expected nil limiter for zero rate")
		}
	})

	t.Run("Preflight", func(t *testing.T) {
		srv := newTestServer(t, &fakeConverter{}, nil, shared.ServerConfig{})

		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/song", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("expected 204, got %d", resp.StatusCode)
		}
		if !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), APIKeyHeader) {
			t.Error("expected API key header to be allowed")
		}
	})

	t.Run("Request ID In Context", func(t *testing.T) {
		var seen string
		h := RequestLogger(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" || seen != rec.Header().Get(RequestIDHeader) {
			t.Errorf("request id mismatch: context %q, header %q", seen, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("Timeout Sets Deadline", func(t *testing.T) {
		var ok bool
		h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok = r.Context().Deadline()
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if !ok {
			t.Error("expected a deadline on the request context")
		}
	})
}

func TestEndToEnd(t *testing.T) {
	track := models.Track{ID: "t1", Name: "Song", Artist: "Artist", Album: "Album", DurationMS: 200000}
	videos := &tu.FakeVideoSource{
		SearchFunc: func(key, query string) ([]models.Candidate, error) {
			return []models.Candidate{
				{VideoID: "cover", Title: "Song (cover)", ChannelTitle: "Someone"},
				{VideoID: "right", Title: "Song (Official Audio)", ChannelTitle: "Artist - Topic"},
			}, nil
		},
		DurationFunc: func(key, id string) (string, error) { return "PT3M20S", nil },
	}
	sink := &tu.FakeSink{}
	recorder := tasks.NewAnalyticsRecorder(sink, quietLogger(), time.Second)

	resolver := tasks.NewResolver(tasks.ResolverOpts{
		Tracks:    &tu.FakeTrackSource{Tracks: map[string]models.Track{"t1": track}},
		Videos:    videos,
		Keys:      []string{"k1"},
		Analytics: recorder,
		Logger:    quietLogger(),
	})
	srv := newTestServer(t, resolver, recorder, shared.ServerConfig{})

	resp, err := http.Get(srv.URL + "/song?query=t1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decode(t, resp)
	if body["url"] != models.URL("right") {
		t.Errorf("expected best match url, got %v", body)
	}

	recorder.Wait()
	if sink.Count() != 1 {
		t.Errorf("expected one analytics increment, got %d", sink.Count())
	}
}
