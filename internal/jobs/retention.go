package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nklymok/monobank-mcp/internal/repository"
)

const runTimeout = 30 * time.Second

// RetentionJob periodically purges audit records older than the
// configured retention.
type RetentionJob struct {
	invocations repository.InvocationRepository
	retention   time.Duration
	interval    time.Duration
	stop        chan struct{}
}

func NewRetentionJob(invocations repository.InvocationRepository, retention, interval time.Duration) *RetentionJob {
	return &RetentionJob{
		invocations: invocations,
		retention:   retention,
		interval:    interval,
		stop:        make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go func() {
		j.run()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.run()
			case <-j.stop:
				return
			}
		}
	}()
}

func (j *RetentionJob) Stop() {
	close(j.stop)
}

func (j *RetentionJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.invocations.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("retention: failed to purge old invocations")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("retention: purged old invocations")
	}
}
