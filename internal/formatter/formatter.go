// package formatter renders playlist resolutions as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

var extensions = map[string]string{
	FormatText:     "txt",
	FormatCSV:      "csv",
	FormatMarkdown: "md",
	FormatJSON:     "json",
}

// Export renders res in the named format.
func Export(res *models.PlaylistResolution, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return ExportToText(res)
	case FormatCSV:
		return ExportToCSV(res)
	case FormatMarkdown, "md":
		return ExportToMarkdown(res)
	case FormatJSON:
		return ExportToJSON(res)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToCSV writes one row per track with columns: Position, Spotify ID, Title, Artist, Album, Duration, Status, URL
func ExportToCSV(res *models.PlaylistResolution) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Spotify ID", "Title", "Artist", "Album", "Duration", "Status", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	urls := res.URLs()
	for i, tr := range res.Tracks {
		record := []string{
			fmt.Sprint(i + 1),
			tr.Track.ID,
			tr.Track.Name,
			tr.Track.Artist,
			tr.Track.Album,
			shared.FormatDuration(tr.Track.DurationMS),
			string(tr.Status),
			urls[i],
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading, a summary and a numbered link list.
func ExportToMarkdown(res *models.PlaylistResolution) ([]byte, error) {
	var buf bytes.Buffer
	resolved, failed := res.Counts()

	fmt.Fprintf(&buf, "# Playlist %s\n\n", res.PlaylistID)
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(res.Tracks))
	fmt.Fprintf(&buf, "**Matched**: %d\n", resolved)
	fmt.Fprintf(&buf, "**Unavailable**: %d\n\n", failed)

	buf.WriteString("## Tracks\n\n")
	for i, tr := range res.Tracks {
		label := fmt.Sprintf("%s - %s", tr.Track.Artist, tr.Track.Name)
		duration := shared.FormatDuration(tr.Track.DurationMS)
		if tr.Status == models.StatusOK {
			fmt.Fprintf(&buf, "%d. [%s](%s) [%s]\n", i+1, label, tr.URL, duration)
		} else {
			fmt.Fprintf(&buf, "%d. %s [%s] _%s_\n", i+1, label, duration, models.UnavailableMarker)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText lists each track with its URL or the unavailable marker.
func ExportToText(res *models.PlaylistResolution) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", res.PlaylistID)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(res.Tracks))

	urls := res.URLs()
	for i, tr := range res.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n   %s\n", i+1, tr.Track.Artist, tr.Track.Name, urls[i])
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the playlist with the same list shape the HTTP API returns.
func ExportToJSON(res *models.PlaylistResolution) ([]byte, error) {
	return shared.MarshalJSON(struct {
		PlaylistID string                   `json:"playlist_id"`
		List       []string                 `json:"list"`
		Length     int                      `json:"length"`
		Tracks     []models.TrackResolution `json:"tracks"`
	}{res.PlaylistID, res.URLs(), len(res.Tracks), res.Tracks}, true)
}

// WriteExport renders res and writes it to path.
//
// Defaults to {playlist ID}_youtube.{ext} as the filename.
func WriteExport(res *models.PlaylistResolution, format, path string) (string, error) {
	data, err := Export(res, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		ext, ok := extensions[strings.ToLower(format)]
		if !ok {
			ext = "md"
		}
		path = fmt.Sprintf("%s_youtube.%s", res.PlaylistID, ext)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
