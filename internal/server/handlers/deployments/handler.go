package deployments

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-core-fx/fiberfx/handler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/deployments"
	"github.com/pilotcd/pilotcd/internal/projects"
	"github.com/pilotcd/pilotcd/internal/server/validation"
	"go.uber.org/zap"
)

type Handler struct {
	deploymentsSvc *deployments.Service

	validator *validator.Validate
	logger    *zap.Logger
}

func NewHandler(
	deploymentsSvc *deployments.Service,
	validator *validator.Validate,
	logger *zap.Logger,
) handler.Handler {
	return &Handler{
		deploymentsSvc: deploymentsSvc,

		validator: validator,
		logger:    logger,
	}
}

// Register implements handler.Handler.
func (h *Handler) Register(r fiber.Router) {
	r = r.Group("/deployments")

	r.Use(h.errorsHandler)
	r.Post("/", validation.DecorateWithBodyEx(h.validator, h.post))
	r.Get("/", h.list)
	r.Get("/:id", h.get)
	r.Get("/:id/logs", h.logs)
	r.Post("/:id/cancel", h.cancel)
	r.Post("/:id/restart", h.restart)
	r.Post("/:id/rollback", h.rollback)
}

//	@Summary		Start a deployment
//	@Description	Start the deployment pipeline for a project and return the initial record
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			deployment	body		StartRequest	true	"Deployment start request"
//	@Success		202			{object}	DeploymentResponse
//	@Failure		400			{object}	fiberfx.ErrorResponse
//	@Failure		404			{object}	fiberfx.ErrorResponse
//	@Router			/deployments [post]
//
// Start a deployment.
func (h *Handler) post(c *fiber.Ctx, req *StartRequest) error {
	opts := deployments.Options{
		Branch:      req.Branch,
		Environment: req.Environment,
		Provider:    req.Provider,
		Region:      req.Region,
	}
	if req.EnableTests != nil {
		opts.EnableTests = *req.EnableTests
	}
	if req.AutoRollback != nil {
		opts.AutoRollback = *req.AutoRollback
	}
	if req.HealthPath != nil {
		opts.HealthPath = *req.HealthPath
	}

	deployment, err := h.deploymentsSvc.Start(c.Context(), req.ProjectID, opts)
	if err != nil {
		return fmt.Errorf("failed to start deployment: %w", err)
	}

	response := newDeploymentResponse(deployment)
	return c.Status(fiber.StatusAccepted).JSON(response)
}

//	@Summary		List deployment history
//	@Description	List deployments newest first, optionally scoped to a project
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			project_id	query	string	false	"Project ID"
//	@Param			limit		query	int		false	"Maximum records returned"
//	@Success		200			{array}	DeploymentResponse
//	@Failure		400			{object}	fiberfx.ErrorResponse
//	@Router			/deployments [get]
//
// List deployment history.
func (h *Handler) list(c *fiber.Ctx) error {
	var projectID *uuid.UUID
	if raw := c.Query("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		projectID = &id
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		limit = parsed
	}

	items, err := h.deploymentsSvc.History(c.Context(), projectID, limit)
	if err != nil {
		return fmt.Errorf("failed to list deployments: %w", err)
	}

	responses := make([]DeploymentResponse, len(items))
	for i := range items {
		responses[i] = newDeploymentResponse(&items[i])
	}

	return c.JSON(responses)
}

//	@Summary		Get a specific deployment
//	@Description	Retrieve the full record of a deployment, including its stages
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Deployment ID"
//	@Success		200	{object}	DeploymentResponse
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id} [get]
//
// Get a specific deployment.
func (h *Handler) get(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return err
	}

	deployment, err := h.deploymentsSvc.Get(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get deployment: %w", err)
	}

	response := newDeploymentResponse(deployment)
	return c.JSON(response)
}

//	@Summary		Get deployment logs
//	@Description	Retrieve the ordered log lines of a deployment
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Deployment ID"
//	@Success		200	{object}	LogsResponse
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id}/logs [get]
//
// Get deployment logs.
func (h *Handler) logs(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return err
	}

	logs, err := h.deploymentsSvc.Logs(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get deployment logs: %w", err)
	}

	return c.JSON(LogsResponse{DeploymentID: id, Logs: logs})
}

//	@Summary		Cancel a deployment
//	@Description	Request cooperative cancellation of an active deployment
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Deployment ID"
//	@Success		202
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		409	{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id}/cancel [post]
//
// Cancel a deployment.
func (h *Handler) cancel(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return err
	}

	if err := h.deploymentsSvc.Cancel(c.Context(), id); err != nil {
		return fmt.Errorf("failed to cancel deployment: %w", err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

//	@Summary		Restart a deployment
//	@Description	Ask the provider to restart the deployed workload
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Deployment ID"
//	@Success		202
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id}/restart [post]
//
// Restart a deployment.
func (h *Handler) restart(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return err
	}

	if err := h.deploymentsSvc.Restart(c.Context(), id); err != nil {
		return fmt.Errorf("failed to restart deployment: %w", err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

//	@Summary		Roll back a deployment
//	@Description	Revert the project's live workload to the most recent other successful deployment
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Deployment ID"
//	@Success		200	{object}	DeploymentResponse
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Failure		409	{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id}/rollback [post]
//
// Roll back a deployment.
func (h *Handler) rollback(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return err
	}

	target, err := h.deploymentsSvc.Rollback(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to roll back deployment: %w", err)
	}

	response := newDeploymentResponse(target)
	return c.JSON(response)
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
	case errors.Is(err, deployments.ErrNotFound), errors.Is(err, projects.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, deployments.ErrNotActive),
		errors.Is(err, deployments.ErrNoRollbackTarget),
		errors.Is(err, deployments.ErrNotRollbackable):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case deployments.IsConfiguration(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return err //nolint:wrapcheck //already wrapped
}
