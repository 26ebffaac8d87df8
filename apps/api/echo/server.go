package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/idview/core"
	"github.com/trezcool/idview/core/session"
	"github.com/trezcool/idview/services/metrics"
)

type (
	// HealthChecker reports the health of a remote dependency.
	HealthChecker interface {
		Health(ctx context.Context) error
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		SessionSvc *session.Service
		StudentAPI HealthChecker
		Metrics    *metrics.Metrics
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(bodyLimit(conf.Upload.MaxSize)))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)
	s.app.GET("/health", s.health)
	if s.deps.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerWizardAPI(v1, jwt, s.deps.SessionSvc, s.deps.Metrics, conf.Upload.MaxSize)
}

// Start blocks serving requests; listener errors are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the server owner to shut it down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, fmt.Sprintf("Welcome to %s API!", s.deps.Conf.AppName))
}

// health is a liveness probe that also reports on the student API.
func (s *Server) health(ctx echo.Context) error {
	res := HealthResponse{Status: "ok", Build: s.deps.Conf.Build}
	if s.deps.StudentAPI != nil {
		res.StudentAPI = "ok"
		if err := s.deps.StudentAPI.Health(ctx.Request().Context()); err != nil {
			res.StudentAPI = "unavailable"
			s.deps.Logger.Warn("student api health check failed", err)
		}
	}
	return ctx.JSON(http.StatusOK, res)
}

// bodyLimit leaves room for the multipart envelope around an upload of maxSize bytes.
func bodyLimit(maxSize int64) string {
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	return fmt.Sprintf("%dK", (maxSize+(1<<20))/1024)
}

type HealthResponse struct {
	Status     string `json:"status"`
	Build      string `json:"build"`
	StudentAPI string `json:"student_api,omitempty"`
}
