package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"csvgen/pkg/log"
	"csvgen/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	shutdownTimeout = 10
	dirPerm         = 0750
)

// RunStore persists generation runs.
type RunStore interface {
	SaveRun(run *models.Run) error
	GetRun(id string) (*models.Run, error)
	ListRuns(limit int) ([]models.Run, error)
	DeleteRun(id string) error
}

// GenServer runs generations on request and serves their output files.
type GenServer struct {
	storageDir string
	echo       *echo.Echo
	version    string
	runs       RunStore
	genMutex   sync.Mutex
}

func NewGenServer(storageDir, version string, runs RunStore) *GenServer {
	return &GenServer{
		storageDir: storageDir,
		echo:       echo.New(),
		version:    version,
		runs:       runs,
	}
}

func (gs *GenServer) Start(addr string) error {
	if err := os.MkdirAll(gs.storageDir, dirPerm); err != nil {
		return err
	}

	gs.setupRoutes()

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("addr", addr).
			Str("storage_dir", gs.storageDir).
			Str("version", gs.version).
			Msg("Starting generator server")

		if err := gs.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return gs.Shutdown()
}

func (gs *GenServer) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := gs.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (gs *GenServer) setupRoutes() {
	gs.echo.HideBanner = true
	gs.echo.HidePort = true
	gs.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	gs.echo.Use(middleware.Recover())

	gs.echo.GET("/version", gs.getVersion)
	gs.echo.POST("/runs", gs.createRun)
	gs.echo.GET("/runs", gs.listRuns)
	gs.echo.GET("/runs/:id", gs.getRun)
	gs.echo.GET("/runs/:id/files/*", gs.downloadFile)
	gs.echo.DELETE("/runs/:id", gs.deleteRun)
}

func (gs *GenServer) getVersion(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"version": gs.version,
	})
}
