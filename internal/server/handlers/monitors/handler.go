package monitors

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-core-fx/fiberfx/handler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"github.com/pilotcd/pilotcd/internal/health"
	"github.com/pilotcd/pilotcd/internal/server/validation"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Handler struct {
	healthSvc      *health.Service
	deploymentsSvc *deployments.Service

	validator *validator.Validate
	logger    *zap.Logger
}

func NewHandler(
	healthSvc *health.Service,
	deploymentsSvc *deployments.Service,
	validator *validator.Validate,
	logger *zap.Logger,
) handler.Handler {
	return &Handler{
		healthSvc:      healthSvc,
		deploymentsSvc: deploymentsSvc,

		validator: validator,
		logger:    logger,
	}
}

// Register implements handler.Handler.
func (h *Handler) Register(r fiber.Router) {
	r = r.Group("/monitors")

	r.Use(h.errorsHandler)
	r.Post("/", validation.DecorateWithBodyEx(h.validator, h.post))
	r.Delete("/:id", h.delete)
	r.Get("/:id/metrics", h.metrics)
	r.Get("/:id/history", h.history)
}

//	@Summary		Start monitoring a deployment
//	@Description	Begin periodic health checks of a deployment's endpoint
//	@Tags			monitors
//	@Accept			json
//	@Produce		json
//	@Param			monitor	body		StartRequest	true	"Monitor start request"
//	@Success		201		{object}	MonitorResponse
//	@Failure		400		{object}	fiberfx.ErrorResponse
//	@Failure		404		{object}	fiberfx.ErrorResponse
//	@Failure		409		{object}	fiberfx.ErrorResponse
//	@Router			/monitors [post]
//
// Start monitoring a deployment.
func (h *Handler) post(c *fiber.Ctx, req *StartRequest) error {
	deployment, err := h.deploymentsSvc.Get(c.Context(), req.DeploymentID)
	if err != nil {
		return fmt.Errorf("failed to get deployment: %w", err)
	}

	cfg := health.MonitorConfig{
		Interval:         time.Duration(req.IntervalSeconds) * time.Second,
		ProbeTimeout:     time.Duration(req.ProbeTimeoutSeconds) * time.Second,
		ExpectedStatus:   req.ExpectedStatus,
		FailureThreshold: req.FailureThreshold,
		AutoRollback:     req.AutoRollback,
		Endpoint:         req.Endpoint,
	}

	handle, err := h.healthSvc.StartMonitoring(c.Context(), deployment.ID, deployment.ProjectID, cfg)
	if err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	response := MonitorResponse{
		DeploymentID: handle.DeploymentID,
		Status:       string(health.StatusMonitoring),
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

//	@Summary		Stop monitoring a deployment
//	@Description	Stop the deployment's monitor; stopping an unknown monitor is a no-op
//	@Tags			monitors
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Deployment ID"
//	@Success		204
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Router			/monitors/{id} [delete]
//
// Stop monitoring a deployment.
func (h *Handler) delete(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return err
	}

	h.healthSvc.StopMonitoring(id)
	return c.SendStatus(fiber.StatusNoContent)
}

//	@Summary		Get monitor metrics
//	@Description	Retrieve the accumulated metrics of a deployment's monitor
//	@Tags			monitors
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Deployment ID"
//	@Success		200	{object}	MetricsResponse
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Router			/monitors/{id}/metrics [get]
//
// Get monitor metrics.
func (h *Handler) metrics(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return err
	}

	metrics, err := h.healthSvc.GetMetrics(id)
	if err != nil {
		return fmt.Errorf("failed to get monitor metrics: %w", err)
	}

	return c.JSON(newMetricsResponse(metrics))
}

//	@Summary		Get health check history
//	@Description	Retrieve recent health checks of a deployment, newest first
//	@Tags			monitors
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string	true	"Deployment ID"
//	@Param			limit	query	int		false	"Maximum records returned"
//	@Success		200		{array}	CheckResponse
//	@Failure		400		{object}	fiberfx.ErrorResponse
//	@Router			/monitors/{id}/history [get]
//
// Get health check history.
func (h *Handler) history(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			return fiber.NewError(fiber.StatusBadRequest, parseErr.Error())
		}
		limit = parsed
	}

	checks, err := h.healthSvc.History(c.Context(), id, limit)
	if err != nil {
		return fmt.Errorf("failed to get health history: %w", err)
	}

	responses := lo.Map(checks, func(check health.CheckResult, _ int) CheckResponse {
		return CheckResponse{
			Status:         string(check.Status),
			ResponseTimeMS: check.ResponseTime.Milliseconds(),
			CheckedAt:      check.CheckedAt,
			Error:          check.Error,
		}
	})

	return c.JSON(responses)
}

func (h *Handler) id(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return id, nil
}

func (h *Handler) errorsHandler(c *fiber.Ctx) error {
	err := c.Next()
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, deployments.ErrNotFound), errors.Is(err, health.ErrNotMonitored):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, health.ErrAlreadyMonitoring):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	return err //nolint:wrapcheck //already wrapped
}
