package submission

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	submissionrepo "github.com/Ramsey-B/fern/internal/repositories/submission"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/coordinator"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Register registers submission routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", List)
	g.GET("/:id", Get)
	g.GET("/:id/history", ListHistory)
	g.POST("/:id/publish", Publish)
	g.POST("/:id/revert", Revert)
	g.DELETE("/:id", Delete)
}

// Create creates a submission, or revalidates an existing one for re-upload
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "submission_handler.Create")
	defer span.End()

	userID := fernctx.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}

	var req models.CreateSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, coord, err := ectoinject.GetContext[*coordinator.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coordinator")
	}

	sub, err := coord.Create(ctx, req, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, sub)
}

// List returns the caller agency's submissions
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "submission_handler.List")
	defer span.End()

	agency := fernctx.GetAgency(ctx)
	if agency == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "agency code is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var isFABS *bool
	if raw := c.QueryParam("is_fabs"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "is_fabs must be a boolean")
		}
		isFABS = &v
	}

	ctx, repo, err := ectoinject.GetContext[*submissionrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.List(ctx, agency, isFABS, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Get returns a single submission
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "submission_handler.Get")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*submissionrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	sub, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sub)
}

// ListHistory returns the submission's publications, newest first
func ListHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "submission_handler.ListHistory")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*submissionrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	histories, err := repo.ListPublishHistory(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, histories)
}

// Publish publishes the submission
func Publish(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "submission_handler.Publish")
	defer span.End()

	userID := fernctx.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}

	ctx, coord, err := ectoinject.GetContext[*coordinator.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coordinator")
	}

	sub, err := coord.Publish(ctx, c.Param("id"), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sub)
}

// Revert restores the submission's staging from its latest publication
func Revert(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "submission_handler.Revert")
	defer span.End()

	ctx, coord, err := ectoinject.GetContext[*coordinator.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coordinator")
	}

	sub, err := coord.Revert(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sub)
}

// Delete removes an unpublished submission
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "submission_handler.Delete")
	defer span.End()

	ctx, coord, err := ectoinject.GetContext[*coordinator.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coordinator")
	}

	if err := coord.Delete(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
