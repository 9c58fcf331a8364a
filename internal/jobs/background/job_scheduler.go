package background

import (
	"context"
	"sync"
	"time"

	"ledgerimport/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// JobScheduler runs periodic maintenance of the import pipeline.
type JobScheduler struct {
	scheduler gocron.Scheduler
	archive   services.ArchiveService
	retention time.Duration
	logger    logrus.FieldLogger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
	now       func() time.Time
}

// NewJobScheduler registers the archive retention sweep. A non-positive
// retention disables it.
func NewJobScheduler(archive services.ArchiveService, retention time.Duration, logger logrus.FieldLogger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler: scheduler,
		archive:   archive,
		retention: retention,
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
		now:       time.Now,
	}

	if retention > 0 {
		if err := js.AddJob("archive-retention", 6*time.Hour, js.purgeArchive, context.Background()); err != nil {
			return nil, err
		}
	}

	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.WithField("jobs", len(js.jobs)).Info("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// purgeArchive removes archived uploads older than the retention period.
func (js *JobScheduler) purgeArchive(ctx context.Context) error {
	cutoff := js.now().Add(-js.retention)
	removed, err := js.archive.PurgeOlderThan(ctx, cutoff)
	log := js.logger.WithFields(logrus.Fields{"cutoff": cutoff.Format(time.RFC3339), "removed": removed})
	if err != nil {
		log.WithError(err).Error("archive retention sweep failed")
		return err
	}
	log.Info("archive retention sweep completed")
	return nil
}

// AddJob adds a singleton job running every interval.
func (js *JobScheduler) AddJob(name string, interval time.Duration, taskFn interface{}, params ...interface{}) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(taskFn, params...),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	js.jobs[name] = job
	return nil
}

// RemoveJob removes a job from the scheduler
func (js *JobScheduler) RemoveJob(name string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if job, exists := js.jobs[name]; exists {
		err := js.scheduler.RemoveJob(job.ID())
		delete(js.jobs, name)
		return err
	}
	return nil
}

// JobNames returns the registered job names.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}
