package deployments

import (
	"context"
	"fmt"
	"time"

	"github.com/pilotcd/pilotcd/internal/events"
	"go.uber.org/zap"
)

type stageFunc func(ctx context.Context) error

// runStage executes one named pipeline stage: it transitions the deployment
// status, publishes a running event, delegates to fn, seals the
// StageResult and publishes the final event. Cancellation is observed at
// the stage boundary, before fn runs.
func (s *Service) runStage(ctx context.Context, d *Deployment, stage Stage, fn stageFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	d.Status = Status(stage)
	d.Stages = append(d.Stages, StageResult{
		Stage:     stage,
		Status:    StageRunning,
		StartedAt: now,
	})
	s.appendLog(d, fmt.Sprintf("stage %s started", stage))
	s.persist(ctx, d)
	s.publishStage(d, stage, StageRunning, "")

	s.logger.Info("stage started",
		zap.String("deployment_id", d.ID.String()),
		zap.String("stage", string(stage)))

	err := fn(ctx)

	completedAt := time.Now()
	result := &d.Stages[len(d.Stages)-1]
	result.CompletedAt = &completedAt

	if err != nil {
		result.Status = StageFailed
		result.Error = err.Error()
		s.appendLog(d, fmt.Sprintf("stage %s failed: %v", stage, err))
		s.persist(ctx, d)
		s.publishStage(d, stage, StageFailed, err.Error())

		s.logger.Error("stage failed",
			zap.String("deployment_id", d.ID.String()),
			zap.String("stage", string(stage)),
			zap.Duration("duration", result.Duration()),
			zap.Error(err))
		return err
	}

	result.Status = StageSucceeded
	s.appendLog(d, fmt.Sprintf("stage %s succeeded in %s", stage, result.Duration()))
	s.persist(ctx, d)
	s.publishStage(d, stage, StageSucceeded, "")

	s.logger.Info("stage succeeded",
		zap.String("deployment_id", d.ID.String()),
		zap.String("stage", string(stage)),
		zap.Duration("duration", result.Duration()))

	return nil
}

// appendLog records a log line on the deployment, dropping the oldest lines
// past the configured cap.
func (s *Service) appendLog(d *Deployment, line string) {
	d.Logs = append(d.Logs, fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), line))
	if limit := s.config.LogLimit; limit > 0 && len(d.Logs) > limit {
		d.Logs = d.Logs[len(d.Logs)-limit:]
	}
	d.UpdatedAt = time.Now()
}

// persist writes the current snapshot. Persistence failures are logged, the
// in-memory record stays authoritative for the rest of the run.
func (s *Service) persist(ctx context.Context, d *Deployment) {
	if err := s.repository.Save(ctx, d); err != nil {
		s.logger.Error("failed to persist deployment",
			zap.String("deployment_id", d.ID.String()), zap.Error(err))
	}
}

func (s *Service) publishStage(d *Deployment, stage Stage, status StageStatus, message string) {
	s.hub.Publish(events.Event{
		DeploymentID: d.ID,
		Type:         events.TypeStage,
		Stage:        string(stage),
		Status:       string(status),
		Message:      message,
		At:           time.Now(),
	})
}

func (s *Service) publishStatus(d *Deployment, message string) {
	s.hub.Publish(events.Event{
		DeploymentID: d.ID,
		Type:         events.TypeStatus,
		Status:       string(d.Status),
		Message:      message,
		At:           time.Now(),
	})
}
