package generation

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	jobrepo "github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/pkg/coordinator"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Register registers award-file generation routes
func Register(g *echo.Group) {
	g.GET("/:submission_id/:file_type", Status)
	g.POST("/:submission_id/:file_type", Regenerate)
}

func generationJob(c echo.Context) (*models.Job, error) {
	ctx := c.Request().Context()

	fileType := models.FileType(c.Param("file_type"))
	if fileType != models.FileTypeD1 && fileType != models.FileTypeD2 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "file_type must be D1 or D2")
	}

	ctx, jobs, err := ectoinject.GetContext[*jobrepo.Repository](ctx)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	return jobs.GetBySlot(ctx, c.Param("submission_id"), models.JobTypeFileGeneration, &fileType)
}

// Status returns the generation job's progress and, when finished, the URL
// of the generated file
func Status(c echo.Context) error {
	ctx := c.Request().Context()
	_, span := tracing.StartSpan(ctx, "generation_handler.Status")
	defer span.End()

	j, err := generationJob(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.GenerationStatusResponse{
		JobID:     j.ID,
		Status:    j.Status,
		FileType:  j.FileType,
		URL:       j.GeneratedURL,
		StartDate: j.StartDate,
		EndDate:   j.EndDate,
		Message:   j.ErrorMessage,
	})
}

// Regenerate restarts the generation job and everything downstream of it
func Regenerate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "generation_handler.Regenerate")
	defer span.End()

	j, err := generationJob(c)
	if err != nil {
		return err
	}

	ctx, coord, err := ectoinject.GetContext[*coordinator.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coordinator")
	}

	if err := coord.Restart(ctx, j.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusAccepted)
}
