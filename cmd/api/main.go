package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/cfdi-generator/internal/application/billing"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/pac"
	httpRouter "github.com/jhoicas/cfdi-generator/internal/interfaces/http"
	"github.com/jhoicas/cfdi-generator/pkg/config"
	"github.com/jhoicas/cfdi-generator/pkg/logger"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("pac", cfg.CFDI.PacMode).
		Msg("iniciando aplicación")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	validadores := billing.ValidadoresDesdeConfig(cfg.CFDI)

	// Timbrado simulado solo en modo "dev"; con "off" los comprobantes salen sellados sin TFD.
	var stamper sat.Stamper
	if cfg.CFDI.PacMode == pac.ModeDev {
		stamper = pac.NewSimulatedStamper(cfg.CFDI.PacRFC)
		log.Warn().Str("rfc_pac", cfg.CFDI.PacRFC).Msg("timbrado simulado activo, sin validez fiscal")
	}

	issueUC := billing.NewIssueUseCase(validadores, nil, nil, stamper, m, log.Component("billing"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "CFDI Generator API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Issue:      issueUC,
		JWTSecret:  cfg.JWT.Secret,
		BatchLimit: cfg.CFDI.BatchLimit,
		Gatherer:   reg,
		AppName:    cfg.App.Name,
		Log:        log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
