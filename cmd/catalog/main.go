package main

import (
	"housecall/internal/catalog/handler"
	"housecall/internal/catalog/repository"
	"housecall/internal/catalog/service"
	"housecall/internal/catalog/validator"
	"housecall/pkg/app"
	"housecall/pkg/cache"
	"housecall/pkg/config"
)

const ServiceName = "catalog"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Catalog service")

	catalogService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewServiceHandler(catalogService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.CatalogService {
	serviceCache := cache.New(cfg.Client.Redis, cfg.CacheTTL, cfg.Log)
	repo := repository.NewMongoServiceRepository(cfg, serviceCache)

	catalogService := service.NewCatalogService(
		repo,
		validator.NewServiceValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Catalog service initialized",
		"database", cfg.MongoDatabaseName,
		"cache_enabled", serviceCache != nil,
	)
	return catalogService
}
