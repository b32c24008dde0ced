package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cfdi-generator/internal/application/billing"
	"github.com/jhoicas/cfdi-generator/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Issue      *billing.IssueUseCase
	JWTSecret  string
	BatchLimit int
	Gatherer   prometheus.Gatherer // nil = registro global
	AppName    string
	Log        zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	cfdiHandler := NewCfdiHandler(deps.Issue, deps.BatchLimit, deps.Log)

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))

	// Públicas
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	app.Get("/example", cfdiHandler.Ejemplo)

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	comprobantes := api.Group("/cfdi")
	lectura := RequireRole(jwt.RoleEmisor, jwt.RoleConsulta)
	comprobantes.Post("/validar", lectura, cfdiHandler.Validar)
	comprobantes.Post("/vista-previa", lectura, cfdiHandler.VistaPrevia)
	comprobantes.Post("/decodificar", lectura, cfdiHandler.Decodificar)
	comprobantes.Post("/validar-lote", lectura, cfdiHandler.ValidarLote)
	comprobantes.Post("/emitir", RequireRole(jwt.RoleEmisor), cfdiHandler.Emitir)
}
