package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/melodysyncer/melodysyncer/internal/models"
)

const defaultAnalyticsTimeout = 5 * time.Second

// AnalyticsSink persists conversion counters.
type AnalyticsSink interface {
	// Increment adds one successful conversion of songs tracks across playlists playlists.
	Increment(ctx context.Context, songs, playlists int) error

	// Snapshot returns the stored counter documents.
	Snapshot(ctx context.Context) ([]models.Analytics, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// AnalyticsRecorder dispatches counter updates in the background.
//
// Record never blocks the caller and never reports failure; errors are logged and dropped.
type AnalyticsRecorder struct {
	sink    AnalyticsSink
	logger  *log.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAnalyticsRecorder wraps sink. A nil sink records nothing.
func NewAnalyticsRecorder(sink AnalyticsSink, logger *log.Logger, timeout time.Duration) *AnalyticsRecorder {
	if timeout <= 0 {
		timeout = defaultAnalyticsTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AnalyticsRecorder{sink: sink, logger: logger, timeout: timeout}
}

// Record schedules an increment and returns immediately.
func (a *AnalyticsRecorder) Record(songs, playlists int) {
	if a == nil || a.sink == nil {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.sink.Increment(ctx, songs, playlists); err != nil {
			a.logger.Warn("analytics update dropped", "songs", songs, "playlists", playlists, "error", err)
		}
	}()
}

// Snapshot reads the current counters. A recorder without a sink has none.
func (a *AnalyticsRecorder) Snapshot(ctx context.Context) ([]models.Analytics, error) {
	if a == nil || a.sink == nil {
		return nil, nil
	}
	return a.sink.Snapshot(ctx)
}

// Wait blocks until every scheduled update has finished.
func (a *AnalyticsRecorder) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}

// Close waits for pending updates and closes the sink.
func (a *AnalyticsRecorder) Close(ctx context.Context) error {
	if a == nil || a.sink == nil {
		return nil
	}
	a.Wait()
	return a.sink.Close(ctx)
}
