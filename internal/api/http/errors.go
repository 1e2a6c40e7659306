package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/service"
)

// errorKind pairs an error kind with its status code and wire name
type errorKind struct {
	err    error
	status int
	name   string
}

// Order matters: an app.Error matches its kind before its cause
var errorKinds = []errorKind{
	{app.ErrUnknownApp, http.StatusNotFound, "unknown_app"},
	{app.ErrUnknownWindow, http.StatusNotFound, "unknown_window"},
	{app.ErrNotOwned, http.StatusNotFound, "not_owned"},
	{app.ErrAlreadyStarting, http.StatusConflict, "already_starting"},
	{app.ErrAlreadyOwned, http.StatusConflict, "already_owned"},
	{app.ErrNotLaunchable, http.StatusUnprocessableEntity, "not_launchable"},
	{app.ErrUnknownAction, http.StatusUnprocessableEntity, "unknown_action"},
	{app.ErrNoWindowToActivate, http.StatusUnprocessableEntity, "no_window_to_activate"},
	{app.ErrNotSupported, http.StatusUnprocessableEntity, "not_supported"},
	{app.ErrSpawnFailed, http.StatusBadGateway, "spawn_failed"},
	{app.ErrLaunchTimeout, http.StatusBadGateway, "launch_timeout"},
	{app.ErrWindowManager, http.StatusBadGateway, "window_manager"},
	{service.ErrStopped, http.StatusServiceUnavailable, "unavailable"},
	{context.Canceled, http.StatusServiceUnavailable, "cancelled"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
}

// classify maps err to a status code and kind name
func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.name
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes err as a JSON error body
func respondError(c *gin.Context, err error) {
	status, kind := classify(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"kind":  kind,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": msg,
		"kind":  "bad_request",
	})
}
