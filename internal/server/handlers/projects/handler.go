package projects

import (
	"errors"
	"fmt"

	"github.com/go-core-fx/fiberfx/handler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/projects"
	"github.com/pilotcd/pilotcd/internal/server/validation"
	"go.uber.org/zap"
)

type Handler struct {
	projectsSvc *projects.Service

	validator *validator.Validate
	logger    *zap.Logger
}

func NewHandler(projectsSvc *projects.Service, validator *validator.Validate, logger *zap.Logger) handler.Handler {
	return &Handler{
		projectsSvc: projectsSvc,

		validator: validator,
		logger:    logger,
	}
}

// Register implements handler.Handler.
func (h *Handler) Register(r fiber.Router) {
	r = r.Group("/projects")

	r.Use(h.errorsHandler)
	r.Post("/", validation.DecorateWithBodyEx(h.validator, h.post))
	r.Get("/", h.list)
	r.Get("/:id", h.get)
	r.Patch("/:id", validation.DecorateWithBodyEx(h.validator, h.patch))
	r.Delete("/:id", h.delete)
}

//	@Summary		Create a new project
//	@Description	Register a project with its source repository and deployment target
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			project	body		CreateRequest	true	"Project creation request"
//	@Success		201		{object}	ProjectResponse
//	@Failure		400		{object}	fiberfx.ErrorResponse
//	@Failure		409		{object}	fiberfx.ErrorResponse
//	@Router			/projects [post]
//
// Create a new project.
func (h *Handler) post(c *fiber.Ctx, req *CreateRequest) error {
	draft := &projects.ProjectDraft{
		Name:         req.Name,
		Description:  req.Description,
		RepoURL:      req.RepoURL,
		Branch:       req.Branch,
		Provider:     req.Provider,
		Region:       req.Region,
		Environment:  req.Environment,
		EnableTests:  req.EnableTests,
		AutoRollback: req.AutoRollback,
		HealthPath:   req.HealthPath,
	}

	project, err := h.projectsSvc.Create(c.Context(), draft)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	response := h.toResponse(project)
	return c.Status(fiber.StatusCreated).JSON(response)
}

//	@Summary		List all projects
//	@Description	Retrieve a list of all registered projects
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Success		200	{array}	ProjectResponse
//	@Router			/projects [get]
//
// List all projects.
func (h *Handler) list(c *fiber.Ctx) error {
	items, err := h.projectsSvc.List(c.Context())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	responses := make([]ProjectResponse, len(items))
	for i, project := range items {
		responses[i] = h.toResponse(&project)
	}

	return c.JSON(responses)
}

//	@Summary		Get a specific project
//	@Description	Retrieve details of a specific project by ID
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	ProjectResponse
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Router			/projects/{id} [get]
//
// Get a specific project.
func (h *Handler) get(c *fiber.Ctx) error {
	idParam := c.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	project, err := h.projectsSvc.Get(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	response := h.toResponse(project)
	return c.JSON(response)
}

//	@Summary		Update a project
//	@Description	Update an existing project with the provided fields
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Project ID"
//	@Param			project	body		UpdateRequest	false	"Project update request"
//	@Success		200		{object}	ProjectResponse
//	@Failure		400		{object}	fiberfx.ErrorResponse
//	@Failure		404		{object}	fiberfx.ErrorResponse
//	@Router			/projects/{id} [patch]
//
// Update a project.
func (h *Handler) patch(c *fiber.Ctx, req *UpdateRequest) error {
	idParam := c.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	updater := func(project *projects.Project) error {
		if req.Description != nil {
			project.Description = *req.Description
		}
		if req.RepoURL != nil {
			project.RepoURL = *req.RepoURL
		}
		if req.Branch != nil {
			project.Branch = *req.Branch
		}
		if req.Provider != nil {
			project.Provider = *req.Provider
		}
		if req.Region != nil {
			project.Region = *req.Region
		}
		if req.Environment != nil {
			project.Environment = *req.Environment
		}
		if req.EnableTests != nil {
			project.EnableTests = *req.EnableTests
		}
		if req.AutoRollback != nil {
			project.AutoRollback = *req.AutoRollback
		}
		if req.HealthPath != nil {
			project.HealthPath = *req.HealthPath
		}
		return nil
	}

	err = h.projectsSvc.Update(c.Context(), id, updater)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return h.get(c)
}

//	@Summary		Delete a project
//	@Description	Delete an existing project by ID
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"
//	@Success		204
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Router			/projects/{id} [delete]
//
// Delete a project.
func (h *Handler) delete(c *fiber.Ctx) error {
	idParam := c.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	err = h.projectsSvc.Delete(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) errorsHandler(c *fiber.Ctx) error {
	err := c.Next()
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, projects.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, projects.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	return err //nolint:wrapcheck //already wrapped
}

func (h *Handler) toResponse(project *projects.Project) ProjectResponse {
	return ProjectResponse{
		CreateRequest: CreateRequest{
			Name:         project.Name,
			Description:  project.Description,
			RepoURL:      project.RepoURL,
			Branch:       project.Branch,
			Provider:     project.Provider,
			Region:       project.Region,
			Environment:  project.Environment,
			EnableTests:  project.EnableTests,
			AutoRollback: project.AutoRollback,
			HealthPath:   project.HealthPath,
		},
		ID: project.ID,

		Status:         string(project.Status),
		LastDeployment: project.LastDeployment,
		LastDeployedAt: project.LastDeployedAt,
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
	}
}
