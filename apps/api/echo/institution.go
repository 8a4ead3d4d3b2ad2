package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campushub/backend/core/institution"
)

type institutionApi struct {
	svc      *institution.Service
	validate *validator.Validate
	auth     *auth
}

func registerInstitutionAPI(g *echo.Group, jwt echo.MiddlewareFunc, a *auth, svc *institution.Service, validate *validator.Validate) {
	api := institutionApi{
		svc:      svc,
		validate: validate,
		auth:     a,
	}

	ig := g.Group("/institutions", jwt)
	ig.POST("", api.create, adminMiddleware(a))
	ig.GET("", api.query)
	ig.GET("/:id", api.retrieve)
	ig.PUT("/:id", api.update, adminMiddleware(a))
	ig.DELETE("/:id", api.destroy, adminMiddleware(a))
}

func (api *institutionApi) create(ctx echo.Context) error {
	var data institution.NewInstitution
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstitution")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	inst, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "creating institution")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *institutionApi) query(ctx echo.Context) error {
	filter := new(institution.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := bindPagination(ctx)

	insts, total, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying institutions")
	}
	if insts == nil {
		insts = []institution.Institution{}
	}
	return ctx.JSON(http.StatusOK, newPagedResponse(page, total, insts))
}

func (api *institutionApi) retrieve(ctx echo.Context) error {
	inst, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == institution.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding institution by ID")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *institutionApi) update(ctx echo.Context) error {
	var data institution.UpdateInstitution
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInstitution")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	inst, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == institution.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating institution")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *institutionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting institution")
	}
	return ctx.NoContent(http.StatusNoContent)
}
