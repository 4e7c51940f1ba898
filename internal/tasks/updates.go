package tasks

import (
	"fmt"

	"github.com/melodysyncer/melodysyncer/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	ResolveTracks
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case ResolveTracks:
		return "resolve_tracks"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchSourceUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s", id),
	}
}

func resolvedTrackUpdate(step, total int, res models.TrackResolution) ProgressUpdate {
	msg := fmt.Sprintf("Resolved %s - %s", res.Track.Artist, res.Track.Name)
	if res.Status != models.StatusOK {
		msg = fmt.Sprintf("Unavailable: %s - %s", res.Track.Artist, res.Track.Name)
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func completeUpdate(p *models.PlaylistResolution) ProgressUpdate {
	resolved, failed := p.Counts()
	return ProgressUpdate{
		Phase:   Complete,
		Step:    resolved,
		Total:   resolved + failed,
		Message: fmt.Sprintf("Resolved %d of %d tracks", resolved, resolved+failed),
		Data:    p,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
