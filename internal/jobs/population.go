package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/metrics"
	"github.com/owen-ho/enroot-qr-pairing/internal/pairing"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StatsSource reports the current population counts.
type StatsSource interface {
	Stats(ctx context.Context) (*pairing.Stats, error)
}

// PopulationJob refreshes the population gauges from the store on a schedule,
// so every replica reports the same numbers regardless of which one served
// the writes.
type PopulationJob struct {
	source   StatsSource
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewPopulationJob(source StatsSource, schedule string, logger *zap.Logger) *PopulationJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PopulationJob{
		source:   source,
		schedule: schedule,
		timeout:  10 * time.Second,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start runs one refresh immediately and then schedules the rest. An empty
// schedule disables the job.
func (j *PopulationJob) Start() error {
	if j.schedule == "" {
		j.logger.Info("population refresh disabled")
		return nil
	}

	_, err := j.cron.AddFunc(j.schedule, func() {
		if err := j.RunOnce(context.Background()); err != nil {
			j.logger.Warn("population refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule population refresh: %w", err)
	}

	if err := j.RunOnce(context.Background()); err != nil {
		j.logger.Warn("initial population refresh failed", zap.Error(err))
	}
	j.cron.Start()
	j.logger.Info("population refresh started", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (j *PopulationJob) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce reads the counts and publishes them to the gauges.
func (j *PopulationJob) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	stats, err := j.source.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	metrics.SetPopulation(stats.Waiting, stats.Paired, stats.Left, stats.ActivePairings)
	return nil
}
