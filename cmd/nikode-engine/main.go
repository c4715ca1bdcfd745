package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/nikode-engine/internal/config"
	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/dispatch"
	"github.com/dimitrije/nikode-engine/internal/draft"
	"github.com/dimitrije/nikode-engine/internal/handlers"
	"github.com/dimitrije/nikode-engine/internal/importer"
	authmw "github.com/dimitrije/nikode-engine/internal/middleware"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/internal/sse"
	"github.com/dimitrije/nikode-engine/internal/variables"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	cipher, err := services.NewSecretBox(cfg.SecretsKey)
	if err != nil {
		log.Fatalf("Failed to load secrets key: %v", err)
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry)
	collectionService := services.NewCollectionService(db)
	folderService := services.NewFolderService(db)
	requestService := services.NewRequestService(db)
	environmentService := services.NewEnvironmentService(db)
	secretService := services.NewSecretService(db, cipher)
	importService := services.NewImportService(db)

	hub := sse.NewHub()
	go hub.Run()

	resolver := variables.NewResolver(secretService)
	transport := dispatch.NewProxyClient(cfg.Transport(), &http.Client{})
	registry := dispatch.NewRegistry(transport, nil, logger.With("component", "dispatch"))
	tracker := draft.NewTracker(requestService,
		draft.WithQuietPeriod(cfg.DraftDebounce),
		draft.WithLogger(logger.With("component", "draft")),
		draft.WithNotifier(handlers.DraftNotifier(requestService, hub, logger)),
	)

	importers := map[string]handlers.Importer{
		handlers.FormatOpenAPI: importer.NewOpenAPIImporter(),
		handlers.FormatPostman: importer.NewPostmanImporter(),
	}

	importHandler := handlers.NewImportHandler(importers, importService, hub, logger)
	collectionHandler := handlers.NewCollectionHandler(collectionService, folderService, requestService, environmentService)
	folderHandler := handlers.NewFolderHandler(folderService, collectionService)
	requestHandler := handlers.NewRequestHandler(requestService, collectionService, resolver, registry, tracker, hub, logger)
	environmentHandler := handlers.NewEnvironmentHandler(environmentService, secretService, collectionService)
	sseHandler := handlers.NewSSEHandler(hub, collectionService)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/collections/import/openapi", importHandler.ImportOpenAPI)
	protected.Post("/collections/import/postman", importHandler.ImportPostman)

	protected.Get("/collections", collectionHandler.List)
	protected.Post("/collections", collectionHandler.Create)
	protected.Get("/collections/:collectionId", collectionHandler.Get)
	protected.Patch("/collections/:collectionId", collectionHandler.Update)
	protected.Delete("/collections/:collectionId", collectionHandler.Delete)
	protected.Post("/collections/:collectionId/secrets/:key", environmentHandler.SetCollectionSecret)
	protected.Delete("/collections/:collectionId/secrets/:key", environmentHandler.DeleteCollectionSecret)

	protected.Patch("/folders/:folderId/move", folderHandler.Move)

	protected.Get("/requests/:requestId", requestHandler.Get)
	protected.Get("/requests/:requestId/resolved", requestHandler.Resolved)
	protected.Post("/requests/:requestId/send", requestHandler.Send)
	protected.Post("/requests/:requestId/cancel", requestHandler.Cancel)
	protected.Patch("/requests/:requestId/draft", requestHandler.EditDraft)
	protected.Post("/requests/:requestId/draft/apply", requestHandler.ApplyDraft)
	protected.Post("/requests/:requestId/draft/restore", requestHandler.RestoreDraft)
	protected.Get("/requests/:requestId/draft/diff", requestHandler.DiffDraft)

	protected.Get("/environments", environmentHandler.List)
	protected.Post("/environments", environmentHandler.Create)
	protected.Post("/environments/:environmentId/secrets/:key", environmentHandler.SetEnvironmentSecret)
	protected.Delete("/environments/:environmentId/secrets/:key", environmentHandler.DeleteEnvironmentSecret)

	protected.Get("/events", sseHandler.Connect)
	protected.Post("/sse/:clientId/subscribe/:collectionId", sseHandler.Subscribe)
	protected.Post("/sse/:clientId/unsubscribe/:collectionId", sseHandler.Unsubscribe)

	api.Get("/health", func(c *drift.Context) {
		if err := db.Pool.Ping(c.Request.Context()); err != nil {
			_ = c.JSON(503, map[string]string{"status": "degraded"})
			return
		}
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	srv := newServer(fmt.Sprintf(":%s", cfg.Port), app)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "proxy", cfg.Proxy.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdown(srv, tracker, 5*time.Second, logger)
}
