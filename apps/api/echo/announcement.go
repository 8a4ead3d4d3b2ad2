package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campushub/backend/core/announcement"
)

type announcementApi struct {
	svc      *announcement.Service
	validate *validator.Validate
	auth     *auth
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, a *auth, svc *announcement.Service, validate *validator.Validate) {
	api := announcementApi{
		svc:      svc,
		validate: validate,
		auth:     a,
	}

	ag := g.Group("/announcements", jwt)
	ag.POST("", api.create, facultyMiddleware(a))
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, facultyMiddleware(a))
	ag.POST("/:id/publish", api.publish, facultyMiddleware(a))
	ag.DELETE("/:id", api.destroy, facultyMiddleware(a))
}

func (api *announcementApi) create(ctx echo.Context) error {
	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ann, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *announcementApi) query(ctx echo.Context) error {
	filter := new(announcement.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := bindPagination(ctx)

	anns, total, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, newPagedResponse(page, total, anns))
}

func (api *announcementApi) retrieve(ctx echo.Context) error {
	ann, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == announcement.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding announcement by ID")
	}
	return ctx.JSON(http.StatusOK, ann)
}

func (api *announcementApi) update(ctx echo.Context) error {
	var data announcement.UpdateAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	ann, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == announcement.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, ann)
}

func (api *announcementApi) publish(ctx echo.Context) error {
	var data announcement.PublishAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishAnnouncement")
	}

	ann, fanOut, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == announcement.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, PublishResponse{
		Announcement: ann,
		Notified:     fanOut.Created,
	})
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// PublishResponse carries the published announcement and how many
// notifications made it out. Fan-out failures do not fail the publish.
type PublishResponse struct {
	Announcement announcement.Announcement `json:"announcement"`
	Notified     int                       `json:"notified"`
}
