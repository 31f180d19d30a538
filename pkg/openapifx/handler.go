package openapifx

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

type Config struct {
	Enabled    bool
	PublicHost string
	PublicPath string
}

// Handler serves the generated OpenAPI document and its UI.
type Handler struct {
	spec   *swag.Spec
	config Config
	logger *zap.Logger
}

func New(spec *swag.Spec, config Config, logger *zap.Logger) *Handler {
	return &Handler{
		spec:   spec,
		config: config,
		logger: logger,
	}
}

func (h *Handler) Register(r fiber.Router) {
	if !h.config.Enabled {
		h.logger.Debug("openapi disabled, skipping registration")
		return
	}

	if h.config.PublicHost != "" {
		h.spec.Host = h.config.PublicHost
	}
	if h.config.PublicPath != "" {
		h.spec.BasePath = h.config.PublicPath + h.spec.BasePath
	}

	r.Get("/*", swagger.HandlerDefault)

	h.logger.Info("openapi documentation registered",
		zap.String("host", h.spec.Host),
		zap.String("base_path", h.spec.BasePath))
}
