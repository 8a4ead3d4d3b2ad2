package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campushub/backend/core/course"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
	auth     *auth
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, a *auth, svc *course.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		validate: validate,
		auth:     a,
	}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, facultyMiddleware(a))
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, facultyMiddleware(a))
	cg.DELETE("/:id", api.destroy, facultyMiddleware(a))

	cg.POST("/:id/materials", api.addMaterial, facultyMiddleware(a))
	cg.GET("/:id/materials", api.materials)
	cg.POST("/:id/enroll", api.enroll)
	cg.GET("/:id/enrollments", api.enrollments, facultyMiddleware(a))

	mg := g.Group("/materials", jwt)
	mg.GET("/:id", api.retrieveMaterial)
	mg.PUT("/:id", api.updateMaterial, facultyMiddleware(a))
	mg.DELETE("/:id", api.destroyMaterial, facultyMiddleware(a))

	eg := g.Group("/enrollments", jwt)
	eg.GET("/mine", api.myEnrollments)
	eg.PUT("/:id/status", api.updateEnrollmentStatus, facultyMiddleware(a))
	eg.DELETE("/:id", api.unenroll)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := bindPagination(ctx)

	courses, total, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, newPagedResponse(page, total, courses))
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Materials

func (api *courseApi) addMaterial(ctx echo.Context) error {
	var data course.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	mat, err := api.svc.AddMaterial(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr.ID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *courseApi) materials(ctx echo.Context) error {
	// students only see published materials
	publishedOnly := !api.auth.contextHasAnyRole(ctx, facultyRoles)

	mats, err := api.svc.Materials(ctx.Request().Context(), ctx.Param("id"), publishedOnly)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	if mats == nil {
		mats = []course.Material{}
	}
	return ctx.JSON(http.StatusOK, mats)
}

func (api *courseApi) retrieveMaterial(ctx echo.Context) error {
	mat, err := api.svc.GetMaterial(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrMaterialNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding material by ID")
	}
	if !mat.Published && !api.auth.contextHasAnyRole(ctx, facultyRoles) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, mat)
}

func (api *courseApi) updateMaterial(ctx echo.Context) error {
	var data course.UpdateMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMaterial")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	mat, err := api.svc.UpdateMaterial(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == course.ErrMaterialNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating material")
	}
	return ctx.JSON(http.StatusOK, mat)
}

func (api *courseApi) destroyMaterial(ctx echo.Context) error {
	if err := api.svc.DeleteMaterials(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enrollments

func (api *courseApi) enroll(ctx echo.Context) error {
	var data course.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// students may only enroll themselves
	if data.UserID == "" {
		data.UserID = ctxUsr.ID
	} else if data.UserID != ctxUsr.ID && !api.auth.contextHasAnyRole(ctx, facultyRoles) {
		return errHttpForbidden
	}

	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) enrollments(ctx echo.Context) error {
	enrs, err := api.svc.CourseEnrollments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course enrollments")
	}
	if enrs == nil {
		enrs = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *courseApi) myEnrollments(ctx echo.Context) error {
	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enrs, err := api.svc.UserEnrollments(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying user enrollments")
	}
	if enrs == nil {
		enrs = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *courseApi) updateEnrollmentStatus(ctx echo.Context) error {
	var data UpdateEnrollmentStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEnrollmentStatusRequest")
	}
	if err := api.validate.StructCtx(ctx.Request().Context(), &data); err != nil {
		return err
	}

	enr, err := api.svc.UpdateEnrollmentStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		if errors.Cause(err) == course.ErrEnrollmentNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	enr, err := api.svc.GetEnrollment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrEnrollmentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding enrollment by ID")
	}

	// students may only drop their own enrollment
	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if enr.UserID != ctxUsr.ID && !api.auth.contextHasAnyRole(ctx, facultyRoles) {
		return errHttpForbidden
	}

	if err := api.svc.Unenroll(ctx.Request().Context(), enr.ID); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type UpdateEnrollmentStatusRequest struct {
	Status string `json:"status" validate:"required,enrollmentstatus"`
}
