package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tambolalive/tambola-backend/config"
	"github.com/tambolalive/tambola-backend/controllers"
	"github.com/tambolalive/tambola-backend/game"
	"github.com/tambolalive/tambola-backend/routes"
	"github.com/tambolalive/tambola-backend/services"
	"github.com/tambolalive/tambola-backend/utils/logger"
)

// setupRouter initializes Gin routes and middleware
func setupRouter(rooms *controllers.RoomsController, registry *game.Registry, hub *services.Hub, identity services.Identity) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, rooms)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})

	// WebSocket room endpoint
	r.GET("/ws/:code", services.HandleWebSocket(registry, hub, identity, logger.Log))

	return r
}

func main() {
	cfg := config.Load()

	db := config.SetupDatabase(cfg)
	journal := services.NewGormJournal(db, logger.Log)
	defer journal.Close()

	hub := services.NewHub(logger.Log)
	gateway := services.NewPaymentGateway(cfg.PaymentURL, logger.Log)
	identity := services.NewIdentity(cfg.AuthVerifyURL)

	registry := game.NewRegistry(game.RegistryOptions{
		Sink:         hub,
		Journal:      journal,
		Settler:      services.NewCommissionSettler(gateway, logger.Log),
		Log:          logger.Log,
		EvictDelay:   cfg.EvictDelay,
		DrawInterval: cfg.DrawInterval,
	})

	rooms := &controllers.RoomsController{
		Registry: registry,
		Gateway:  gateway,
		Identity: identity,
		Log:      logger.Log,
	}

	router := setupRouter(rooms, registry, hub, identity)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Tambola backend listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown: stop room timers before the process exits
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	registry.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
}
