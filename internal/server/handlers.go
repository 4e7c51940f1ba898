package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"github.com/melodysyncer/melodysyncer/internal/tasks"
)

// APIKeyHeader lets callers supply their own video API key.
const APIKeyHeader = "X-YouTube-API-Key"

// MaxRepeat bounds the count accepted by /repeat.
const MaxRepeat = 100000

//go:embed static/index.html static/favicon.svg
var static embed.FS

// Converter resolves Spotify ids into video URLs.
type Converter interface {
	Song(ctx context.Context, trackID, override string) (models.TrackResolution, error)
	Playlist(ctx context.Context, playlistID, override string, progress chan<- tasks.ProgressUpdate) (*models.PlaylistResolution, error)
}

// AnalyticsReader returns the stored usage counters.
type AnalyticsReader interface {
	Snapshot(ctx context.Context) ([]models.Analytics, error)
}

// API serves the conversion endpoints.
type API struct {
	converter Converter
	analytics AnalyticsReader
	logger    *log.Logger
}

// NewAPI creates an API. analytics may be nil, in which case /analytics reports no data.
func NewAPI(converter Converter, analytics AnalyticsReader, logger *log.Logger) *API {
	return &API{
		converter: converter,
		analytics: analytics,
		logger:    shared.WithLogger(logger, "component", "api"),
	}
}

// Register mounts every endpoint on router.
func (a *API) Register(router Router) {
	router.Handle(http.MethodGet, "/song", http.HandlerFunc(a.Song))
	router.Handle(http.MethodGet, "/playlist", http.HandlerFunc(a.Playlist))
	router.Handle(http.MethodGet, "/analytics", http.HandlerFunc(a.Analytics))
	router.Handle(http.MethodGet, "/help", http.HandlerFunc(Help))
	router.Handle("GET,POST", "/repeat", http.HandlerFunc(Repeat))
	router.Handler(StaticHandler{})
}

// NewHandler builds the full middleware chain around the API.
func NewHandler(a *API, cfg shared.ServerConfig, logger *log.Logger) http.Handler {
	router := NewBasicRouter()
	router.Use(
		RequestLogger(shared.WithLogger(logger, "component", "http")),
		CORS(),
		RateLimit(NewLimiter(cfg.RateLimit, cfg.Burst)),
		Timeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second),
	)
	a.Register(router)
	return router
}

// requestParams extracts the id and optional caller key. The query parameter wins over the header.
func requestParams(r *http.Request) (id, key string) {
	q := r.URL.Query()
	id = strings.TrimSpace(q.Get("query"))
	key = strings.TrimSpace(q.Get("youtubeAPIKEY"))
	if key == "" {
		key = strings.TrimSpace(r.Header.Get(APIKeyHeader))
	}
	return id, key
}

func validID(id string) bool {
	return id != "" && id != "null"
}

// Song handles GET /song?query=<track id>.
func (a *API) Song(w http.ResponseWriter, r *http.Request) {
	id, key := requestParams(r)
	if !validID(id) {
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadSong))
		return
	}

	res, err := a.converter.Song(r.Context(), id, key)
	if err != nil {
		a.fail(w, r, err, msgBadSong, "song", id)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, successBody(envelope{"url": res.URL}))
}

// Playlist handles GET /playlist?query=<playlist id>[&give_length=yes].
func (a *API) Playlist(w http.ResponseWriter, r *http.Request) {
	id, key := requestParams(r)
	if !validID(id) {
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadList))
		return
	}

	res, err := a.converter.Playlist(r.Context(), id, key, nil)
	if err != nil {
		a.fail(w, r, err, msgBadList, "playlist", id)
		return
	}

	body := envelope{"list": res.URLs(), "tracks": res.Tracks}
	if r.URL.Query().Get("give_length") == "yes" {
		body["length"] = len(res.Tracks)
	}

	resolved, failed := res.Counts()
	a.logger.Debug("playlist resolved", "id", id, "resolved", resolved, "failed", failed)
	writeJSON(w, http.StatusOK, successBody(body))
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error, invalidMsg, kind, id string) {
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) && !errors.Is(err, shared.ErrTimeout) {
		err = errors.Join(shared.ErrTimeout, err)
	}

	status, msg := statusFor(err, invalidMsg)
	level := log.WarnLevel
	if status >= http.StatusInternalServerError {
		level = log.ErrorLevel
	}
	a.logger.Log(level, "conversion failed", "kind", kind, "id", id, "status", status, "request", RequestID(r.Context()), "err", err)
	writeJSON(w, status, errorBody(msg))
}

// Analytics handles GET /analytics.
func (a *API) Analytics(w http.ResponseWriter, r *http.Request) {
	var (
		docs []models.Analytics
		err  error
	)
	if a.analytics != nil {
		docs, err = a.analytics.Snapshot(r.Context())
	}
	if err != nil {
		a.logger.Error("analytics snapshot failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	if len(docs) == 0 {
		writeJSON(w, http.StatusOK, successBody(envelope{"message": msgNoData, "data": []models.Analytics{}}))
		return
	}
	writeJSON(w, http.StatusOK, successBody(envelope{"data": docs}))
}

const helpText = `MelodySyncer - Spotify to YouTube API

Endpoints:
- GET /song?query={spotify_song_id} - Convert a single Spotify song to YouTube
- GET /playlist?query={spotify_playlist_id} - Convert an entire playlist to YouTube URLs
      add &give_length=yes to include the number of tracks
- GET /analytics - Usage statistics
- GET /help - This help page
- GET/POST /repeat - Repeat text count times (text, count)

Authentication:
Provide your own YouTube API key in either of two ways:
1. Header: X-YouTube-API-Key: YOUR_API_KEY
2. Query param: ?youtubeAPIKEY=YOUR_API_KEY

Without a key the server uses its own pool of keys, tried in order.

Examples:
- Single song: /song?query=58ge6dfP91o9oXMzq3XkIS
- Playlist: /playlist?query=7fITt66rmO4QIeNs2LPRDj
- With API key: /song?query=SONG_ID&youtubeAPIKEY=YOUR_KEY

Matching:
- +3 channel name contains "Topic"
- +3 title contains "Official Audio", "Official Video" or "Full Audio Song"
- +1 title contains the artist, +1 title contains the song name
- +7 / +5 / +2 duration within 1s / 2s / 5s of the Spotify track
`

// Help handles GET /help.
func Help(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write([]byte(helpText))
}

type repeatRequest struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

type repeatResponse struct {
	Result       []string `json:"result"`
	OriginalText string   `json:"original_text"`
	Count        int      `json:"count"`
}

// Repeat handles GET and POST /repeat.
func Repeat(w http.ResponseWriter, r *http.Request) {
	var req repeatRequest

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(`Invalid JSON in request body. Expected: {"text": "string", "count": number}`))
			return
		}
	} else {
		q := r.URL.Query()
		if !q.Has("text") {
			writeJSON(w, http.StatusBadRequest, errorBody("Missing 'text' query parameter"))
			return
		}
		n, err := strconv.Atoi(q.Get("count"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("Missing or invalid 'count' query parameter"))
			return
		}
		req = repeatRequest{Text: q.Get("text"), Count: n}
	}

	if req.Count < 0 || req.Count > MaxRepeat {
		writeJSON(w, http.StatusBadRequest, errorBody("Count must be between 0 and 100000"))
		return
	}

	result := make([]string, req.Count)
	for i := range result {
		result[i] = req.Text
	}
	writeJSON(w, http.StatusOK, repeatResponse{Result: result, OriginalText: req.Text, Count: req.Count})
}

// StaticHandler serves the embedded landing page and icon.
type StaticHandler struct{}

// Routes returns the HTTP routes this handler serves.
func (StaticHandler) Routes() []string {
	return []string{"/", "/favicon.ico"}
}

func (StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		name, contentType, cache string
	)
	switch r.URL.Path {
	case "/":
		name, contentType, cache = "static/index.html", "text/html; charset=utf-8", "public, max-age=300"
	case "/favicon.ico":
		name, contentType, cache = "static/favicon.svg", "image/svg+xml", "public, max-age=86400"
	default:
		writeJSON(w, http.StatusNotFound, errorBody("Not found"))
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("Method not allowed"))
		return
	}

	data, err := static.ReadFile(name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(msgUnexpected))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cache)
	w.Write(data)
}
