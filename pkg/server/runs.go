package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"csvgen/pkg/config"
	"csvgen/pkg/generator"
	"csvgen/pkg/log"
	"csvgen/pkg/manifest"
	"csvgen/pkg/models"

	"github.com/labstack/echo/v4"
)

func (gs *GenServer) runDir(id string) string {
	return filepath.Join(gs.storageDir, id)
}

// runLookupError maps manifest lookup failures to HTTP responses.
func runLookupError(ctx echo.Context, id string, err error) error {
	switch {
	case errors.Is(err, manifest.ErrInvalidRunID):
		log.Warn().Str("run_id", id).Msg("Invalid run id")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid run id",
		})
	case errors.Is(err, manifest.ErrRunNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "run not found",
		})
	default:
		log.Error().Err(err).Str("run_id", id).Msg("Failed to look up run")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

// createRun handles POST /runs requests.
func (gs *GenServer) createRun(ctx echo.Context) error {
	opts := config.DefaultOptions()
	if err := ctx.Bind(&opts); err != nil {
		log.Warn().Err(err).Msg("Invalid run request body")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	cfg := opts.Config()
	if err := cfg.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	run := manifest.NewRun(cfg)
	cfg = cfg.WithDestination(gs.runDir(run.ID))
	run.Config.Destination = cfg.Destination()

	log.Info().Str("run_id", run.ID).Stringer("config", cfg).Msg("Run request received")

	gs.genMutex.Lock()
	result, genErr := generator.New(cfg).Generate(ctx.Request().Context())
	gs.genMutex.Unlock()

	manifest.Finish(run, result, genErr)

	if err := gs.runs.SaveRun(run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to record run")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error":  "failed to record run",
			"run_id": run.ID,
		})
	}

	if genErr != nil {
		log.Error().Err(genErr).Str("run_id", run.ID).Msg("Run failed")
		return ctx.JSON(http.StatusInternalServerError, run)
	}

	log.Info().Str("run_id", run.ID).Int("files", run.FileCount).Int("rows", run.TotalRows).Msg("Run completed")
	return ctx.JSON(http.StatusCreated, run)
}

// listRuns handles GET /runs requests.
func (gs *GenServer) listRuns(ctx echo.Context) error {
	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid limit",
			})
		}
		limit = parsed
	}

	runs, err := gs.runs.ListRuns(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list runs")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list runs",
		})
	}

	return ctx.JSON(http.StatusOK, models.RunListResponse{Runs: runs})
}

// getRun handles GET /runs/:id requests.
func (gs *GenServer) getRun(ctx echo.Context) error {
	id := ctx.Param("id")

	run, err := gs.runs.GetRun(id)
	if err != nil {
		return runLookupError(ctx, id, err)
	}

	return ctx.JSON(http.StatusOK, run)
}

// deleteRun handles DELETE /runs/:id requests.
func (gs *GenServer) deleteRun(ctx echo.Context) error {
	id := ctx.Param("id")

	log.Info().
		Str("run_id", id).
		Str("method", "DELETE").
		Str("path", ctx.Request().URL.Path).
		Msg("Run delete request")

	if _, err := gs.runs.GetRun(id); err != nil {
		return runLookupError(ctx, id, err)
	}

	if err := os.RemoveAll(gs.runDir(id)); err != nil {
		log.Error().Err(err).Str("run_id", id).Msg("Failed to remove run directory")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to remove run files",
		})
	}

	if err := gs.runs.DeleteRun(id); err != nil {
		return runLookupError(ctx, id, err)
	}

	log.Info().Str("run_id", id).Msg("Run deleted successfully")
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "Run deleted successfully",
		"run_id":  id,
	})
}
