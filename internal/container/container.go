package container

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	"trialtab/adapters/docstore"
	"trialtab/adapters/postgres"
	"trialtab/app"
	"trialtab/internal"
	"trialtab/internal/config"
	"trialtab/internal/errors"
	"trialtab/internal/migration"
	"trialtab/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB     *sqlx.DB
	Source docstore.Source
	Cache  *docstore.Cache

	// Repositories (data access layer)
	SnapshotRepo ports.SnapshotRepository

	// Services
	Studies  *app.StudyService
	Analysis *app.AnalysisService

	// Background invalidation
	Watcher   *docstore.Watcher
	Scheduler *cron.Cron

	closers []io.Closer
}

// New builds the document source, cache and services. A database is opened
// and migrated only when one is configured.
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initSource(ctx); err != nil {
		c.close()
		return nil, err
	}
	c.Cache = docstore.NewCache(c.Source, logger)

	if cfg.Database.Enabled() {
		if err := c.initDatabase(ctx); err != nil {
			c.close()
			return nil, err
		}
	} else {
		logger.Info("DATABASE_URL not set, snapshots are disabled")
	}

	c.Studies = app.NewStudyService(c.Cache, c.SnapshotRepo, logger)
	c.Analysis = app.NewAnalysisService(c.Studies)

	if err := c.initInvalidation(); err != nil {
		c.close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initSource(ctx context.Context) error {
	studies := c.Config.Studies
	if studies.GCSBucket != "" {
		src, err := docstore.NewGCSSource(ctx, studies.GCSBucket, studies.GCSPrefix)
		if err != nil {
			return err
		}
		c.Source = src
		c.closers = append(c.closers, src)
		c.Logger.Info("reading studies from gs://%s/%s", studies.GCSBucket, studies.GCSPrefix)
		return nil
	}
	c.Source = docstore.NewFileSource(studies.Dir, studies.Files)
	c.Logger.Info("reading studies from %s (%d pinned files)", studies.Dir, len(studies.Files))
	return nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	db, err := postgres.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return err
	}
	c.DB = db
	c.closers = append(c.closers, db)

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	c.SnapshotRepo = postgres.NewSnapshotRepository(db)
	c.Logger.Info("snapshot database ready (%s, schema %s)", c.Config.Database.Driver, migrator.Version())
	return nil
}

func (c *Container) initInvalidation() error {
	if fs, ok := c.Source.(*docstore.FileSource); ok && c.Config.Cache.Watch {
		w, err := docstore.NewWatcher(c.Cache, fs, c.Logger)
		if err != nil {
			// polling by schedule still works without a watcher
			c.Logger.Warn("file watching disabled: %v", err)
		} else {
			c.Watcher = w
			c.closers = append(c.closers, w)
		}
	}

	if schedule := c.Config.Cache.RefreshSchedule; schedule != "" {
		c.Scheduler = cron.New()
		if _, err := c.Scheduler.AddFunc(schedule, func() {
			n := c.Cache.InvalidateAll()
			c.Logger.Debug("scheduled refresh dropped %d studies", n)
		}); err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("CACHE_REFRESH_SCHEDULE %q: %v", schedule, err))
		}
	}
	return nil
}

// Start launches the watcher and the refresh schedule. They stop when ctx is
// done or Shutdown is called.
func (c *Container) Start(ctx context.Context) {
	if c.Watcher != nil {
		go c.Watcher.Run(ctx)
	}
	if c.Scheduler != nil {
		c.Scheduler.Start()
		c.Logger.Info("cache refresh scheduled: %s", c.Config.Cache.RefreshSchedule)
	}
}

// Shutdown stops background work and releases connections
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Scheduler != nil {
		select {
		case <-c.Scheduler.Stop().Done():
		case <-ctx.Done():
			c.Logger.Warn("scheduled refresh still running at shutdown")
		}
	}
	return c.close()
}

func (c *Container) close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
