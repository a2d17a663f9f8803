package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"podscribe/internal/api"
	"podscribe/internal/logging"
	"podscribe/internal/queue"
	"podscribe/internal/services"
	"podscribe/internal/supervisor"
)

const apiBodyLimit = 64 * 1024

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	app    *fiber.App

	mu       sync.Mutex
	listener net.Listener
}

// newAPIServer returns nil when bind is empty; every method tolerates a nil
// receiver so the API can be switched off in config.
func newAPIServer(bind, token string, d *Daemon, logger *slog.Logger) *apiServer {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil
	}
	s := &apiServer{bind: bind, logger: logger, daemon: d}
	s.app = fiber.New(fiber.Config{
		AppName:               "podscribe",
		BodyLimit:             apiBodyLimit,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleFiberError,
	})
	s.app.Use(fiberrecover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.requestContext)

	s.app.Get("/api/health", s.handleHealth)

	routes := s.app.Group("/api", authMiddleware(token))
	routes.Get("/status", s.handleStatus)
	routes.Post("/jobs", s.handleSubmit)
	routes.Get("/jobs/:id", s.handleJob)
	routes.Get("/jobs/:id/episodes", s.handleEpisodes)
	routes.Post("/jobs/:id/retry", s.handleRetry)
	routes.Get("/history", s.handleHistory)
	return s
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.app.Listener(listener); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("api server error",
				logging.String(logging.FieldEventType, "api_serve_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.api_bind"))
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	listening := s.listener != nil
	s.listener = nil
	s.mu.Unlock()
	if !listening {
		return
	}
	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		s.logger.Warn("api shutdown incomplete",
			logging.String(logging.FieldEventType, "api_shutdown_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "open connections were dropped"))
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// requestContext carries the request id into the handler context so store
// and supervisor logs correlate with the HTTP request.
func (s *apiServer) requestContext(c *fiber.Ctx) error {
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		c.SetUserContext(services.WithRequestID(c.UserContext(), rid))
	}
	return c.Next()
}

func (s *apiServer) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *apiServer) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.daemon.Status(c.UserContext()))
}

func (s *apiServer) handleSubmit(c *fiber.Ctx) error {
	var req api.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return s.writeError(c, services.Wrap(services.ErrValidation, "submit", "decode body", "request body must be JSON", err))
	}
	job, err := s.daemon.Submit(c.UserContext(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(api.JobResponse{Job: job})
}

func (s *apiServer) handleJob(c *fiber.Ctx) error {
	job, err := s.daemon.Job(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(api.JobResponse{Job: job})
}

func (s *apiServer) handleEpisodes(c *fiber.Ctx) error {
	resp, err := s.daemon.Episodes(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(resp)
}

func (s *apiServer) handleRetry(c *fiber.Ctx) error {
	job, err := s.daemon.Retry(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(api.JobResponse{Job: job})
}

func (s *apiServer) handleHistory(c *fiber.Ctx) error {
	resp, err := s.daemon.History(c.UserContext())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(resp)
}

func (s *apiServer) writeError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	resp := api.ErrorResponse{Error: err.Error()}
	if kind := services.Kind(err); kind != services.KindUnknown {
		resp.Kind = string(kind)
		resp.Hint = services.Hint(err)
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("api request failed",
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.String("method", c.Method()),
			logging.String("path", c.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check daemon logs and queue directory"))
	}
	return c.Status(code).JSON(resp)
}

// handleFiberError renders routing errors such as unknown paths in the same
// shape as handler errors.
func (s *apiServer) handleFiberError(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(api.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, supervisor.ErrNotRetryable):
		return http.StatusConflict
	case errors.Is(err, supervisor.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
