package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/melodysyncer/melodysyncer/internal/formatter"
	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/repositories"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"github.com/melodysyncer/melodysyncer/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Song resolves one Spotify track and prints its watch URL.
func (r *Runner) Song(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}
	key := cmd.String("key")

	if remote := cmd.String("remote"); remote != "" {
		url, err := r.remoteClient(remote, key).Song(ctx, id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(map[string]string{"url": url}, false)
		}
		return r.writePlain("%s\n", url)
	}

	resolver, recorder, err := r.resolver(ctx)
	if err != nil {
		return err
	}
	defer r.closeRecorder(recorder)

	r.logger.Debug("resolving song", "id", id)
	res, err := resolver.Song(ctx, id, key)
	if err != nil {
		return fmt.Errorf("failed to resolve song %s: %w", id, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(res, true)
	}

	r.writePlain("%s - %s (%s)\n", res.Track.Artist, res.Track.Name, shared.FormatDuration(res.Track.DurationMS))
	return r.writePlain("%s\n", styles.ok.Render(res.URL))
}

// Playlist resolves every track of a Spotify playlist and renders the result.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}
	key := cmd.String("key")
	format := strings.ToLower(cmd.String("format"))

	if remote := cmd.String("remote"); remote != "" {
		urls, err := r.remoteClient(remote, key).Playlist(ctx, id)
		if err != nil {
			return err
		}
		if format == formatter.FormatJSON {
			return r.writeJSON(map[string]any{"list": urls, "length": len(urls)}, true)
		}
		for i, u := range urls {
			r.writePlain("%d. %s\n", i+1, u)
		}
		return nil
	}

	resolver, recorder, err := r.resolver(ctx)
	if err != nil {
		return err
	}
	defer r.closeRecorder(recorder)

	r.logger.Info("resolving playlist", "id", id)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.showProgress(progressCh, cmd.Bool("quiet"))
	}()

	res, err := resolver.Playlist(ctx, id, key, progressCh)
	close(progressCh)
	wg.Wait()

	if err != nil {
		return fmt.Errorf("failed to resolve playlist %s: %w", id, err)
	}

	if path := cmd.String("output"); path != "" || cmd.Bool("save") {
		written, err := formatter.WriteExport(res, format, path)
		if err != nil {
			return err
		}
		r.writeSummary(res)
		return r.writePlain("Export written to: %s\n", written)
	}

	data, err := formatter.Export(res, format)
	if err != nil {
		return err
	}
	if format == formatter.FormatText || format == "" {
		r.writeSummary(res)
	}
	return r.writePlain("%s", data)
}

// showProgress prints updates until the channel closes. Progress goes to the log
// stream so stdout stays clean for exports.
func (r *Runner) showProgress(progressCh <-chan tasks.ProgressUpdate, quiet bool) {
	for update := range progressCh {
		if quiet {
			continue
		}
		switch update.Phase {
		case tasks.ResolveTracks:
			r.logger.Info(update.Message, "step", update.Step, "total", update.Total)
		default:
			r.logger.Info(update.Message)
		}
	}
}

func (r *Runner) writeSummary(res *models.PlaylistResolution) {
	resolved, failed := res.Counts()
	r.writePlainHeader("Playlist Resolved")
	r.writePlain("Playlist: %s\n", res.PlaylistID)
	r.writePlain("Matched: %s  Unavailable: %s\n\n",
		styles.status(fmt.Sprint(resolved), true),
		styles.status(fmt.Sprint(failed), failed == 0))
}

// Analytics prints the stored conversion counters.
func (r *Runner) Analytics(ctx context.Context, cmd *cli.Command) error {
	recorder, err := r.analytics(ctx)
	if err != nil {
		return err
	}
	defer r.closeRecorder(recorder)

	if recorder == nil {
		return fmt.Errorf("%w: analytics driver is %q", shared.ErrServiceUnavailable, r.config.Analytics.Driver)
	}

	docs, err := recorder.Snapshot(ctx)
	if err != nil {
		return err
	}

	var recent []*models.Conversion
	if n := cmd.Int("recent"); n > 0 {
		if sq, ok := r.sink.(*repositories.SQLiteAnalytics); ok {
			if recent, err = sq.Conversions().List(ctx, n); err != nil {
				return err
			}
		} else {
			r.logger.Warn("recent conversions are only kept by the sqlite driver", "driver", r.config.Analytics.Driver)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"data": docs, "recent": recent}, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Analytics")
	if len(docs) == 0 {
		r.writePlain("%s\n", styles.help.Render("No analytics data found"))
	}
	for _, d := range docs {
		r.writePlain("Requests:            %d\n", d.MESOTotalCalls)
		r.writePlain("Search quota used:   %d\n", d.ISOTotalCalls)
		r.writePlain("Songs converted:     %d\n", d.SongsConverted)
		r.writePlain("Playlists converted: %d\n", d.PlaylistsConverted)
	}

	if len(recent) > 0 {
		r.writePlain("\nRecent conversions:\n")
		for _, c := range recent {
			r.writePlain("  %s  %-8s %3d song(s)  %s\n",
				c.CreatedAt().Local().Format("2006-01-02 15:04"), c.Kind, c.Songs, styles.help.Render(c.ID()))
		}
	}
	return nil
}
