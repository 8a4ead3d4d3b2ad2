package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campushub/backend/core/assessment"
)

type assessmentApi struct {
	svc      *assessment.Service
	validate *validator.Validate
	auth     *auth
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, a *auth, svc *assessment.Service, validate *validator.Validate) {
	api := assessmentApi{
		svc:      svc,
		validate: validate,
		auth:     a,
	}

	ag := g.Group("/assessments", jwt)
	ag.POST("", api.create, facultyMiddleware(a))
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, facultyMiddleware(a))
	ag.DELETE("/:id", api.destroy, facultyMiddleware(a))

	ag.POST("/:id/submissions", api.submit)
	ag.GET("/:id/submissions", api.submissions, facultyMiddleware(a))

	sg := g.Group("/submissions", jwt)
	sg.GET("/:id", api.retrieveSubmission)
	sg.POST("/:id/grade", api.grade, facultyMiddleware(a))

	rg := g.Group("/results", jwt)
	rg.GET("", api.queryResults)
	rg.GET("/:id", api.retrieveResult)
}

func (api *assessmentApi) create(ctx echo.Context) error {
	var data assessment.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	asm, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, asm)
}

func (api *assessmentApi) query(ctx echo.Context) error {
	filter := new(assessment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := bindPagination(ctx)

	asms, total, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}
	if asms == nil {
		asms = []assessment.Assessment{}
	}
	return ctx.JSON(http.StatusOK, newPagedResponse(page, total, asms))
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	asm, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == assessment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding assessment by ID")
	}
	return ctx.JSON(http.StatusOK, asm)
}

func (api *assessmentApi) update(ctx echo.Context) error {
	var data assessment.UpdateAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssessment")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	asm, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == assessment.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, asm)
}

func (api *assessmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Submissions

func (api *assessmentApi) submit(ctx echo.Context) error {
	var data assessment.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID, data)
	if err != nil {
		if errors.Cause(err) == assessment.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assessmentApi) submissions(ctx echo.Context) error {
	subs, err := api.svc.Submissions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assessment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assessmentApi) retrieveSubmission(ctx echo.Context) error {
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == assessment.ErrSubmissionNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding submission by ID")
	}

	// students only see their own submissions
	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if sub.UserID != ctxUsr.ID && !api.auth.contextHasAnyRole(ctx, facultyRoles) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *assessmentApi) grade(ctx echo.Context) error {
	var data assessment.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Grade(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr.ID)
	if err != nil {
		if errors.Cause(err) == assessment.ErrSubmissionNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// Results

func (api *assessmentApi) queryResults(ctx echo.Context) error {
	filter := new(assessment.ResultFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to ResultFilter")
	}

	// students only see their own results
	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !api.auth.contextHasAnyRole(ctx, facultyRoles) {
		filter.UserID = ctxUsr.ID
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := bindPagination(ctx)

	results, total, err := api.svc.QueryResults(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []assessment.Result{}
	}
	return ctx.JSON(http.StatusOK, newPagedResponse(page, total, results))
}

func (api *assessmentApi) retrieveResult(ctx echo.Context) error {
	res, err := api.svc.GetResult(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == assessment.ErrResultNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding result by ID")
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if res.UserID != ctxUsr.ID && !api.auth.contextHasAnyRole(ctx, facultyRoles) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, res)
}
