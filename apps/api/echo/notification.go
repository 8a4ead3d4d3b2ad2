package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campushub/backend/core/notification"
)

type notificationApi struct {
	svc  *notification.Service
	auth *auth
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, a *auth, svc *notification.Service) {
	api := notificationApi{
		svc:  svc,
		auth: a,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.GET("/:id", api.retrieve)
	ng.POST("/mark-read", api.markRead)
	ng.DELETE("/:id", api.destroy)
	ng.DELETE("", api.destroyMultiple, adminMiddleware(a))
}

// query lists the authenticated user's notifications, newest first.
func (api *notificationApi) query(ctx echo.Context) error {
	filter := new(notification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := bindPagination(ctx)

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notifs, total, err := api.svc.Query(ctx.Request().Context(), ctxUsr.ID, filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, newPagedResponse(page, total, notifs))
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	notif, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding notification by ID")
	}

	// notifications are private to their recipient
	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if notif.RecipientID != ctxUsr.ID {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, notif)
}

type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

type MarkReadResponse struct {
	Marked int `json:"marked"`
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	var data MarkReadRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkReadRequest")
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	marked, err := api.svc.MarkRead(ctx.Request().Context(), ctxUsr.ID, data.IDs...)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, MarkReadResponse{Marked: marked})
}

// destroy lets a recipient dismiss one of their own notifications.
func (api *notificationApi) destroy(ctx echo.Context) error {
	notif, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding notification by ID")
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if notif.RecipientID != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return errHttpNotFound
	}

	if err := api.svc.Delete(ctx.Request().Context(), notif.ID); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) destroyMultiple(ctx echo.Context) error {
	var data DestroyMultipleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if data.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting notifications")
	}
	return ctx.NoContent(http.StatusNoContent)
}
