package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/service"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	dispatcher *service.Dispatcher
	catalog    *registry.Manager
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	version    string
}

// NewHandlers creates a new handler set
func NewHandlers(
	dispatcher *service.Dispatcher,
	catalog *registry.Manager,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
	version string,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		dispatcher: dispatcher,
		catalog:    catalog,
		metrics:    metrics,
		logger:     logger,
		version:    version,
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/apps", h.ListApps)
	r.GET("/apps/:id", h.GetApp)
	r.POST("/apps/:id/launch", h.Launch)
	r.POST("/apps/:id/activate", h.Activate)
	r.POST("/apps/:id/new-window", h.OpenNewWindow)
	r.POST("/apps/:id/actions/:action", h.LaunchAction)
	r.POST("/apps/:id/quit", h.Quit)
	r.POST("/apps/:id/windows/:wid/activate", h.ActivateWindow)
	r.DELETE("/apps/:id/launch/:token", h.CancelLaunch)

	r.GET("/descriptors", h.ListDescriptors)
	r.GET("/descriptors/:id", h.GetDescriptor)

	r.POST("/logs", h.StreamLogs)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
		r.GET("/metrics/json", h.MetricsJSON)
	}
}

// Root identifies the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "shelld",
		"version": h.version,
	})
}

// Health reports tracker and catalog statistics
func (h *Handlers) Health(c *gin.Context) {
	stats, err := service.Query(c.Request.Context(), h.dispatcher, (*app.Manager).Stats)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"apps":     stats,
		"registry": h.catalog.Stats(),
	})
}

// ListApps lists applications. ?running=true keeps only starting and
// running apps; ?sort=recent|name picks the order.
func (h *Handlers) ListApps(c *gin.Context) {
	order := c.DefaultQuery("sort", "")
	if order != "" && order != "recent" && order != "name" {
		badRequest(c, "sort must be recent or name")
		return
	}
	running := c.Query("running") == "true"
	if order == "" {
		order = "name"
		if running {
			order = "recent"
		}
	}

	apps, err := service.Query(c.Request.Context(), h.dispatcher, func(m *app.Manager) []types.AppInfo {
		var list []*app.App
		if running {
			list = m.Running()
		} else {
			list = m.Apps()
		}
		if order == "recent" {
			app.SortByRecency(list)
		} else {
			app.SortByName(list)
		}

		infos := make([]types.AppInfo, 0, len(list))
		for _, a := range list {
			infos = append(infos, a.Info())
		}
		return infos
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, apps)
}

// GetApp returns one application
func (h *Handlers) GetApp(c *gin.Context) {
	appID := c.Param("id")
	h.command(c, http.StatusOK, func(m *app.Manager) (any, error) {
		a, err := m.Get(appID)
		if err != nil {
			return nil, err
		}
		return a.Info(), nil
	})
}

// Launch starts a new instance
func (h *Handlers) Launch(c *gin.Context) {
	var req types.LaunchRequest
	if !bindOptional(c, &req) {
		return
	}
	gpu := types.GPUDefault
	if req.DiscreteGPU {
		gpu = types.GPUDiscrete
	}

	appID, ctx := c.Param("id"), c.Request.Context()
	h.command(c, http.StatusAccepted, func(m *app.Manager) (any, error) {
		a, err := m.Get(appID)
		if err != nil {
			return nil, err
		}
		if err := a.Launch(ctx, req.Timestamp, types.WorkspaceOrDefault(req.Workspace), gpu); err != nil {
			return nil, err
		}
		return a.Info(), nil
	})
}

// Activate focuses the app, launching it when stopped
func (h *Handlers) Activate(c *gin.Context) {
	var req types.ActivateRequest
	if !bindOptional(c, &req) {
		return
	}

	appID, ctx := c.Param("id"), c.Request.Context()
	h.command(c, http.StatusOK, func(m *app.Manager) (any, error) {
		a, err := m.Get(appID)
		if err != nil {
			return nil, err
		}
		if err := a.Activate(ctx, types.WorkspaceOrDefault(req.Workspace), req.Timestamp); err != nil {
			return nil, err
		}
		return a.Info(), nil
	})
}

// OpenNewWindow launches another instance even while starting
func (h *Handlers) OpenNewWindow(c *gin.Context) {
	var req types.ActivateRequest
	if !bindOptional(c, &req) {
		return
	}

	appID, ctx := c.Param("id"), c.Request.Context()
	h.command(c, http.StatusAccepted, func(m *app.Manager) (any, error) {
		a, err := m.Get(appID)
		if err != nil {
			return nil, err
		}
		if err := a.OpenNewWindow(ctx, types.WorkspaceOrDefault(req.Workspace)); err != nil {
			return nil, err
		}
		return a.Info(), nil
	})
}

// LaunchAction runs a descriptor action
func (h *Handlers) LaunchAction(c *gin.Context) {
	var req types.ActivateRequest
	if !bindOptional(c, &req) {
		return
	}

	appID, actionID, ctx := c.Param("id"), c.Param("action"), c.Request.Context()
	h.command(c, http.StatusAccepted, func(m *app.Manager) (any, error) {
		a, err := m.Get(appID)
		if err != nil {
			return nil, err
		}
		if err := a.LaunchAction(ctx, actionID, req.Timestamp, types.WorkspaceOrDefault(req.Workspace)); err != nil {
			return nil, err
		}
		return a.Info(), nil
	})
}

// Quit asks every window of the app to close
func (h *Handlers) Quit(c *gin.Context) {
	var req types.ActivateRequest
	if !bindOptional(c, &req) {
		return
	}

	appID := c.Param("id")
	h.command(c, http.StatusOK, func(m *app.Manager) (any, error) {
		a, err := m.Get(appID)
		if err != nil {
			return nil, err
		}
		return gin.H{"all_accepted": a.RequestQuit(req.Timestamp)}, nil
	})
}

// ActivateWindow focuses one window of the app
func (h *Handlers) ActivateWindow(c *gin.Context) {
	var req types.ActivateRequest
	if !bindOptional(c, &req) {
		return
	}

	appID, windowID := c.Param("id"), c.Param("wid")
	h.command(c, http.StatusOK, func(m *app.Manager) (any, error) {
		a, err := m.Get(appID)
		if err != nil {
			return nil, err
		}
		w, ok := a.Window(windowID)
		if !ok {
			return nil, &app.Error{Op: "activate_window", AppID: a.ID(), Err: app.ErrNotOwned}
		}
		if err := a.ActivateWindow(w, req.Timestamp); err != nil {
			return nil, err
		}
		return a.Info(), nil
	})
}

// CancelLaunch abandons an in-flight launch. Unknown tokens succeed.
func (h *Handlers) CancelLaunch(c *gin.Context) {
	token := c.Param("token")
	if !id.IsValid(token) {
		badRequest(c, "malformed launch token")
		return
	}

	appID := c.Param("id")
	h.command(c, http.StatusNoContent, func(m *app.Manager) (any, error) {
		a, err := m.Get(appID)
		if err != nil {
			return nil, err
		}
		a.CancelLaunch(id.LaunchToken(token))
		return nil, nil
	})
}

// ListDescriptors lists the installed application catalog
func (h *Handlers) ListDescriptors(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.ListMetadata(c.Query("hidden") == "true"))
}

// GetDescriptor returns one descriptor
func (h *Handlers) GetDescriptor(c *gin.Context) {
	d, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		respondError(c, &app.Error{Op: "descriptor", AppID: c.Param("id"), Err: app.ErrUnknownApp})
		return
	}
	c.JSON(http.StatusOK, d)
}

// MetricsJSON returns a summary of the daemon metrics
func (h *Handlers) MetricsJSON(c *gin.Context) {
	stats, err := service.Query(c.Request.Context(), h.dispatcher, (*app.Manager).Stats)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"metrics": h.metrics.Snapshot(),
		"apps":    stats,
	})
}

// command runs fn on the dispatcher loop and writes its result
func (h *Handlers) command(c *gin.Context, status int, fn func(*app.Manager) (any, error)) {
	var result any
	err := h.dispatcher.Do(c.Request.Context(), func(m *app.Manager) error {
		var err error
		result, err = fn(m)
		return err
	})
	if err != nil {
		h.logger.Debug("Command failed",
			zap.String("path", c.FullPath()),
			zap.String("app_id", c.Param("id")),
			zap.Error(err))
		respondError(c, err)
		return
	}

	if result == nil {
		c.Status(status)
		return
	}
	c.JSON(status, result)
}

// bindOptional decodes a JSON body; an empty body keeps the zero value
func bindOptional(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
