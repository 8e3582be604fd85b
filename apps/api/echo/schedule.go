package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/LAVINDI111/acnsms/core/schedule"
	"github.com/LAVINDI111/acnsms/core/user"
)

type scheduleApi struct {
	svc    *schedule.Service
	usrSvc *user.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service, usrSvc *user.Service) {
	api := scheduleApi{svc: svc, usrSvc: usrSvc}

	mg := g.Group("/modules", jwt)
	mg.GET("", api.queryModules)
	mg.POST("", api.createModule, adminMiddleware())
	mg.POST("/:id/enroll", api.enroll, adminMiddleware())

	sg := g.Group("/schedules", jwt)
	sg.GET("", api.querySchedules)
	sg.GET("/feed", api.feed)
	sg.POST("", api.create, staffMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id/reschedule", api.reschedule, staffMiddleware())
	sg.GET("/:id/notifications", api.notifications, adminMiddleware())
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHTTPNotFound
	}
	return id, nil
}

// Handlers

func (api *scheduleApi) queryModules(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mods, err := api.svc.ModulesForUser(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	return ctx.JSON(http.StatusOK, mods)
}

func (api *scheduleApi) createModule(ctx echo.Context) error {
	var data schedule.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mod, err := api.svc.CreateModule(ctx.Request().Context(), data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *scheduleApi) enroll(ctx echo.Context) error {
	moduleID, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Enroll(ctx.Request().Context(), moduleID, data.StudentID, actor); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) querySchedules(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	scheds, err := api.svc.QueryForUser(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	return ctx.JSON(http.StatusOK, scheds)
}

func (api *scheduleApi) feed(ctx echo.Context) error {
	feed, err := api.svc.Feed(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building feed")
	}
	return ctx.JSON(http.StatusOK, feed)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data newScheduleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to newScheduleRequest")
	}
	ns, err := data.toNewSchedule()
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.Create(ctx.Request().Context(), ns, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	sched, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *scheduleApi) reschedule(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data rescheduleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to rescheduleRequest")
	}
	r, err := data.toReschedule()
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.Reschedule(ctx.Request().Context(), id, r, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *scheduleApi) notifications(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if _, err := api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	notifs, err := api.svc.Notifications(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return ctx.JSON(http.StatusOK, notifs)
}

type EnrollRequest struct {
	StudentID int `json:"student_id"`
}
