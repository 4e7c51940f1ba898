package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/melodysyncer/melodysyncer/internal/repositories"
	"github.com/melodysyncer/melodysyncer/internal/services"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"github.com/melodysyncer/melodysyncer/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Providers and the analytics sink are built from config on first use, so commands
// that never resolve anything (setup) work without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	tracks services.TrackSource
	videos services.VideoSource
	sink   tasks.AnalyticsSink
	remote *services.APIService
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Tracks     services.TrackSource
	Videos     services.VideoSource
	Sink       tasks.AnalyticsSink
	Remote     *services.APIService
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = shared.NewHTTPClient(time.Duration(opts.Config.Resolver.HTTPTimeoutSeconds) * time.Second)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		tracks:     opts.Tracks,
		videos:     opts.Videos,
		sink:       opts.Sink,
		remote:     opts.Remote,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, songCommand, playlistCommand, analyticsCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// providers builds the Spotify and YouTube clients once.
func (r *Runner) providers(ctx context.Context) error {
	if r.tracks == nil {
		sp := r.config.Credentials.Spotify
		tokens := services.NewTokenCache(sp.ClientID, sp.ClientSecret, sp.TokenURL,
			time.Duration(sp.TokenBufferSeconds)*time.Second, r.httpClient)
		r.tracks = services.NewSpotifyService(sp.APIURL, tokens, r.httpClient)
	}

	if r.videos == nil {
		yt := r.config.Credentials.YouTube
		svc, err := services.NewYouTubeService(ctx, yt.APIURL, yt.MaxResults, r.httpClient)
		if err != nil {
			return fmt.Errorf("failed to create YouTube service: %w", err)
		}
		r.videos = svc
	}

	return nil
}

// analytics opens the configured sink once and wraps it in a recorder.
func (r *Runner) analytics(ctx context.Context) (*tasks.AnalyticsRecorder, error) {
	if r.sink == nil {
		sink, err := repositories.NewAnalyticsSink(ctx, r.config)
		if err != nil {
			return nil, fmt.Errorf("failed to open analytics store: %w", err)
		}
		r.sink = sink
	}
	if r.sink == nil {
		return nil, nil
	}
	return tasks.NewAnalyticsRecorder(r.sink, shared.WithLogger(r.logger, "component", "analytics"), 0), nil
}

// resolver wires providers and analytics into a [tasks.Resolver].
//
// The returned recorder must be closed by the caller; it may be nil.
func (r *Runner) resolver(ctx context.Context) (*tasks.Resolver, *tasks.AnalyticsRecorder, error) {
	if err := r.providers(ctx); err != nil {
		return nil, nil, err
	}

	recorder, err := r.analytics(ctx)
	if err != nil {
		r.logger.Warn("analytics disabled", "error", err)
		recorder = nil
	}

	if len(r.config.Credentials.YouTube.APIKeys) == 0 {
		r.logger.Warn("no YouTube API keys configured; callers must supply their own")
	}

	return tasks.NewResolver(tasks.ResolverOpts{
		Tracks:      r.tracks,
		Videos:      r.videos,
		Keys:        r.config.Credentials.YouTube.APIKeys,
		Analytics:   recorder,
		Logger:      r.logger,
		Concurrency: r.config.Resolver.PlaylistConcurrency,
	}), recorder, nil
}

// remoteClient returns a client for a running melodysyncer server at baseURL.
func (r *Runner) remoteClient(baseURL, key string) *services.APIService {
	if r.remote != nil {
		return r.remote
	}
	return services.NewAPIService(baseURL, key, r.httpClient)
}

func (r *Runner) closeRecorder(recorder *tasks.AnalyticsRecorder) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := recorder.Close(ctx); err != nil {
		r.logger.Warn("failed to close analytics store", "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	rule := strings.Repeat("═", 39)
	r.writePlain("%s\n%s\n%s\n", rule, styles.title.Render(title), rule)
}

// idArg reads --id, falling back to the first positional argument.
func idArg(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.String("id"))
	if id == "" {
		id = strings.TrimSpace(cmd.Args().First())
	}
	if id == "" {
		return "", fmt.Errorf("%w: an id is required (--id or first argument)", shared.ErrMissingArgument)
	}
	return id, nil
}
