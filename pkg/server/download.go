package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"csvgen/pkg/log"

	"github.com/labstack/echo/v4"
)

// downloadFile handles GET /runs/:id/files/* requests. The wildcard is a path relative
// to the run directory, e.g. B001.zip or B001/F002.csv.
func (gs *GenServer) downloadFile(ctx echo.Context) error {
	id := ctx.Param("id")
	name := ctx.Param("*")
	log.Info().Str("run_id", id).Str("file", name).Msg("File download request")

	if _, err := gs.runs.GetRun(id); err != nil {
		return runLookupError(ctx, id, err)
	}

	runDir := gs.runDir(id)
	filePath := filepath.Join(runDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(runDir, filePath)
	if name == "" || err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		log.Warn().Str("run_id", id).Str("file", name).Msg("Rejected download path")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid file path",
		})
	}

	info, err := os.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "file not found",
		})
	}

	log.Info().Str("run_id", id).Str("file_path", filePath).Msg("Serving file download")
	return ctx.Attachment(filePath, filepath.Base(filePath))
}
