package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/AgentOS/shell/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/shell/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/shell/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/shell/internal/providers/spawn"
	"github.com/GriffinCanCode/AgentOS/shell/internal/service"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/paths"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	dispatcher *service.Dispatcher
	catalog    *registry.Manager
	hub        *ws.Hub
	bridge     *ws.Bridge
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer builds every component from cfg. Manifests are loaded here;
// nothing runs until Run or Serve.
func NewServer(ctx context.Context, cfg *config.Config, version string) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing shelld",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("version", version),
	)

	if err := app.SetLocale(cfg.Shell.Locale); err != nil {
		logger.Warn("Unsupported locale, keeping default", zap.String("locale", cfg.Shell.Locale), zap.Error(err))
	}

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("shelld", logger.Logger)

	// Load installed app descriptors
	catalog := registry.NewManager().WithMetrics(metrics)
	dirs := cfg.Shell.AppsDirs
	if len(dirs) == 0 {
		dirs = paths.ManifestDirs()
	}
	if _, _, err := registry.NewSeeder(catalog, dirs, logger.Component("registry")).Seed(ctx); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to load app descriptors: %w", err)
	}

	bridge := ws.NewBridge(logger.Logger, metrics, cfg.Server.AllowedOrigins,
		ws.WithCloseTimeout(cfg.Shell.CloseTimeout))

	// Process exits feed back into the loop; the dispatcher exists before
	// any spawn can happen.
	var dispatcher *service.Dispatcher
	onExit := func(token id.LaunchToken, pid int, err error) {
		dispatcher.OnExit(token, pid, err)
	}
	breaker := cfg.Shell.SpawnBreaker
	spawner := spawn.NewGuarded(
		spawn.NewRouter(spawn.WithLogger(logger.Component("spawn")), spawn.OnExit(onExit)),
		resilience.Settings{
			Interval: breaker.Interval,
			Timeout:  breaker.Timeout,
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= breaker.MaxFailures
			},
		},
		metrics,
		logger.Component("spawn"),
	)

	manager := app.NewManager(bridge, spawner,
		app.WithLogger(logger.Component("apps")),
		app.WithMetrics(metrics),
	)
	if err := manager.Init(catalog.Descriptors()); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to initialize app manager: %w", err)
	}

	dispatcher = service.NewDispatcher(manager,
		service.WithLogger(logger.Component("dispatcher")),
		service.WithLaunchTimeout(cfg.Shell.LaunchTimeout),
		service.WithQueueSize(cfg.Shell.QueueSize),
	)
	bridge.SetPoster(dispatcher)

	hub := ws.NewHub(dispatcher, logger.Logger, metrics, cfg.Server.AllowedOrigins)
	launches := tracing.NewLaunchTracer(tracer)
	manager.Subscribe(hub.Publish)
	manager.Subscribe(launches.Observe)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.Logger(logger.Component("http")))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rateCfg := middleware.DefaultRateLimitConfig()
		rateCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rateCfg.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rateCfg))
	}

	apihttp.NewHandlers(dispatcher, catalog, metrics, logger.Component("api"), version).Register(router)
	router.GET("/stream", hub.HandleConnection)
	router.GET("/wm", bridge.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router:     router,
		dispatcher: dispatcher,
		catalog:    catalog,
		hub:        hub,
		bridge:     bridge,
		tracer:     tracer,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the app loop and the HTTP server on ln until ctx is done or
// either fails, then shuts both down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.tracer.Close()

	srv := &http.Server{Handler: s.router}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.dispatcher.Run(gctx)
	})

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		// Hijacked websocket connections are not tracked by Shutdown
		s.hub.Close()
		s.bridge.Close()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.logger.Info("Server stopped", zap.Error(err))
	s.logger.Close()
	return err
}
