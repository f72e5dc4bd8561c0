// Package web provides the HTTP API of the execution gateway.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/oneapi/pkg/artifact"
	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/services"
)

// UserHeader carries the caller whose saved graphs a request reads and writes.
const UserHeader = "Comfy-User"

// EnginePinger reports whether the job engine is reachable.
type EnginePinger interface {
	Ping(ctx context.Context) error
}

type APIHandlers struct {
	executionService  *services.Execution
	workflowService   *services.Workflow
	conversionService *services.Conversion
	engine            EnginePinger
	validator         *validator.Validate
	// publicURL is the artifact base URL used when a request has no Host.
	publicURL string

	done     chan struct{}
	shutdown sync.Once
}

func NewAPIHandlers(
	executionService *services.Execution,
	workflowService *services.Workflow,
	conversionService *services.Conversion,
	engine EnginePinger,
	validator *validator.Validate,
	publicURL string,
) *APIHandlers {
	return &APIHandlers{
		executionService:  executionService,
		workflowService:   workflowService,
		conversionService: conversionService,
		engine:            engine,
		validator:         validator,
		publicURL:         publicURL,
		done:              make(chan struct{}),
	}
}

// AppConfig keeps JSON numbers in request bodies exact, so large integer
// params such as seeds reach the engine unchanged.
func AppConfig() fiber.Config {
	return fiber.Config{
		AppName:     "oneapi",
		JSONDecoder: graph.Unmarshal,
	}
}

// Routes mounts the API on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	v1 := router.Group("/oneapi/v1")
	v1.Post("/execute", h.Execute)
	v1.Post("/save-api-workflow", h.SaveWorkflow)
	v1.Get("/workflows", h.GetWorkflows)
	v1.Post("/convert", h.Convert)

	router.Get("/health", h.HealthCheck)
}

// Shutdown stops every in-flight poll loop. Their requests answer with a
// cancellation problem.
func (h *APIHandlers) Shutdown() {
	h.shutdown.Do(func() {
		close(h.done)
	})
}

func (h *APIHandlers) requestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context())

	go func() {
		select {
		case <-h.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func (h *APIHandlers) Execute(c fiber.Ctx) error {
	var req ExecuteRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.executionService.Execute(ctx, services.ExecuteRequest{
		Owner:           c.Get(UserHeader),
		Workflow:        req.Workflow,
		Params:          req.Params,
		WaitForResult:   req.WaitForResult == nil || *req.WaitForResult,
		Timeout:         seconds(req.Timeout),
		PromptExtParams: req.PromptExtParams,
		BaseURL:         h.baseURL(c),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	filename, err := h.workflowService.Save(c.Context(), services.SaveRequest{
		Owner:     c.Get(UserHeader),
		Name:      req.Name,
		Workflow:  req.Workflow,
		Overwrite: req.Overwrite,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(SaveWorkflowResponse{
		Message:  services.SavedMessage,
		Filename: filename,
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	names, err := h.workflowService.Workflows(c.Context(), c.Get(UserHeader))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WorkflowListResponse{Workflows: names})
}

func (h *APIHandlers) Convert(c fiber.Ctx) error {
	var req ConvertRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	linear, err := h.conversionService.Convert(c.Context(), req.Workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(linear)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	engineCheck, engineOk := "Engine is reachable", true
	if err := h.engine.Ping(c.Context()); err != nil {
		engineCheck, engineOk = "Engine is unreachable: "+err.Error(), false
	}

	status := "unhealthy"
	message := "OneAPI is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk && engineOk {
		status = "healthy"
		message = "OneAPI is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"engine":     engineCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Ready reports whether the saved-graph store and the engine both answer.
func (h *APIHandlers) Ready(c fiber.Ctx) bool {
	if _, ok := h.workflowService.HealthCheck(c.Context()); !ok {
		return false
	}

	return h.engine.Ping(c.Context()) == nil
}

func (h *APIHandlers) baseURL(c fiber.Ctx) string {
	return artifact.BaseURL(artifact.Request{
		Host: string(c.Request().Host()),
		Header: func(key string) string {
			return c.Get(key)
		},
		Scheme: c.Scheme(),
	}, h.publicURL)
}

func seconds(timeout *float64) time.Duration {
	if timeout == nil || *timeout <= 0 {
		return 0
	}

	return time.Duration(*timeout * float64(time.Second))
}
