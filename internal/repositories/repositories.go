package repositories

import (
	"context"
	"fmt"

	"github.com/melodysyncer/melodysyncer/internal/shared"
	"github.com/melodysyncer/melodysyncer/internal/tasks"
)

// Driver names accepted in [shared.AnalyticsConfig].
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

// NewAnalyticsSink opens the sink selected by cfg.Analytics.Driver.
//
// The none driver (or an empty one) returns a nil sink, which records nothing.
func NewAnalyticsSink(ctx context.Context, cfg *shared.Config) (tasks.AnalyticsSink, error) {
	switch cfg.Analytics.Driver {
	case DriverSQLite:
		db, err := shared.OpenDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewSQLiteAnalytics(db), nil
	case DriverMongo:
		return NewMongoAnalytics(ctx, cfg.Analytics.Mongo)
	case DriverRedis:
		return NewRedisAnalytics(ctx, cfg.Analytics.Redis)
	case DriverNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown analytics driver %q", shared.ErrInvalidConfig, cfg.Analytics.Driver)
	}
}

var (
	_ tasks.AnalyticsSink = (*SQLiteAnalytics)(nil)
	_ tasks.AnalyticsSink = (*MongoAnalytics)(nil)
	_ tasks.AnalyticsSink = (*RedisAnalytics)(nil)
)
