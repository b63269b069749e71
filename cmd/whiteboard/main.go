package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/compdash/compdash/backend/go-services/internal/config"
	"github.com/compdash/compdash/backend/go-services/internal/database"
	"github.com/compdash/compdash/backend/go-services/internal/whiteboard/handler"
	"github.com/compdash/compdash/backend/go-services/internal/whiteboard/service"
	"github.com/compdash/compdash/backend/go-services/pkg/logger"
	"github.com/compdash/compdash/backend/go-services/pkg/middleware"
)

// Standalone whiteboard API on the memory or Mongo backend, for local
// development against the dashboard frontend.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	if err := run(context.Background()); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	port := os.Getenv("WHITEBOARD_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())

	// Prefer Mongo-backed service when MONGODB_URI is provided.
	var svc service.Service
	if os.Getenv("MONGODB_URI") != "" {
		cfg, err := config.LoadConfigFor(config.BackendMongo)
		if err != nil {
			return err
		}
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v), using memory-backed store", err)
			svc = service.NewMemoryService()
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()
			svc, err = service.NewMongoService(ctx, client.Database(cfg.MongoDB.Database), cfg.MongoDB.WhiteboardCollection, cfg.MongoDB.AuditCollection)
			if err != nil {
				return err
			}
		}
	} else {
		svc = service.NewMemoryService()
	}

	handler.RegisterWhiteboardRoutes(r.Group("/api"), svc)

	logger.Infof("whiteboard service listening on :%s", port)
	return r.Run(":" + port)
}
