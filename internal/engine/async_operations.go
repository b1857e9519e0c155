package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/internal/identity"
	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
)

// scheduleRefresh starts a background refresh of the instance's index, or
// returns the one already pending or running.
func (e *Engine) scheduleRefresh(instance *indexInstance) (string, error) {
	if jobID, ok := e.jobManager.FindActive(model.JobTypeRefreshIndex, instance.identity); ok {
		return jobID, nil
	}
	return e.submitRefresh(model.JobTypeRefreshIndex, instance)
}

func (e *Engine) submitRefresh(jobType model.JobType, instance *indexInstance) (string, error) {
	metadata := map[string]string{
		"operation": string(jobType),
		"language":  instance.settings.Language,
	}
	if source := instance.settings.FilterSource(); source != "" {
		metadata["filter"] = source
	}

	jobID, err := e.jobManager.Submit(jobType, instance.identity, metadata, func(ctx context.Context, job *model.Job) error {
		return e.executeRefreshJob(ctx, instance, job.ID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start %s job: %w", jobType, err)
	}
	return jobID, nil
}

// executeRefreshJob runs a refresh and records what it applied as progress.
func (e *Engine) executeRefreshJob(ctx context.Context, instance *indexInstance, jobID string) error {
	target := e.documents.UpdateSeq()
	e.jobManager.UpdateJobProgress(jobID, 0, int(target), "Applying document changes")

	stats, err := e.refresh(ctx, instance)
	if err != nil {
		return fmt.Errorf("failed to refresh index '%s': %w", instance.identity, err)
	}

	e.jobManager.UpdateJobProgress(jobID, int(stats.Checkpoint), int(target),
		fmt.Sprintf("Indexed %d, excluded %d, deleted %d", stats.Indexed, stats.Excluded, stats.Deleted))
	e.logger.Debug("background refresh finished",
		zap.String("job_id", jobID), zap.String("index", instance.identity), zap.Int("changes", stats.Changes))
	return nil
}

// BuildAsync brings the index selected by opts up to date in the
// background and returns the job ID.
func (e *Engine) BuildAsync(opts services.SearchOptions) (string, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}
	instance, err := e.newIndexInstance(opts.Language, opts.Fields, opts.Filter)
	if err != nil {
		return "", err
	}
	return e.submitRefresh(model.JobTypeBuildIndex, instance)
}

// DestroyAsync drops the index with the given identity in the background
// and returns the job ID.
func (e *Engine) DestroyAsync(name string) (string, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}
	if !identity.Valid(name) {
		return "", internalErrors.NewValidationError("index", fmt.Sprintf("'%s' is not an index identity", name))
	}
	jobID, err := e.jobManager.Submit(model.JobTypeDestroyIndex, name, map[string]string{
		"operation": string(model.JobTypeDestroyIndex),
	}, func(ctx context.Context, job *model.Job) error {
		return e.DestroyIndex(ctx, name)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start destroy index job: %w", err)
	}
	return jobID, nil
}
