package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shareit/internal/config"
	"shareit/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Services is the application layer exposed over HTTP and gRPC.
type Services struct {
	Bookings *service.BookingService
	Users    *service.UserService
	Items    *service.ItemService
	Requests *service.RequestService
}

// HTTPServer exposes the sharing API over echo.
type HTTPServer struct {
	cfg      *config.APIConfig
	svc      Services
	echo     *echo.Echo
	server   *http.Server
	identity identity
	logger   zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srvLogger := zerolog.Nop()
	if logger != nil {
		srvLogger = logger.With().Str("component", "http").Logger()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(&srvLogger)

	s := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		echo:     e,
		identity: newIdentity(cfg.Auth.UserHeader, cfg.Auth.JWTSecret),
		logger:   srvLogger,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(accessLog(&s.logger))
	e.Use(s.identity.middleware())
	e.Use(NewHTTPAuth(*cfg).Middleware())

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

func (s *HTTPServer) registerRoutes() {
	e := s.echo
	e.GET("/healthz", s.health)

	b := e.Group("/bookings")
	b.POST("", s.createBooking)
	b.GET("", s.listBookerBookings)
	b.GET("/export", s.exportBookerBookings)
	b.GET("/owner", s.listOwnerBookings)
	b.GET("/owner/export", s.exportOwnerBookings)
	b.GET("/:id", s.getBooking)
	b.PATCH("/:id", s.decideBooking)

	u := e.Group("/users")
	u.POST("", s.createUser)
	u.GET("", s.listUsers)
	u.GET("/:id", s.getUser)
	u.PATCH("/:id", s.updateUser)
	u.DELETE("/:id", s.deleteUser)

	i := e.Group("/items")
	i.POST("", s.createItem)
	i.GET("", s.listOwnerItems)
	i.GET("/search", s.searchItems)
	i.GET("/:id", s.getItem)
	i.PATCH("/:id", s.updateItem)
	i.DELETE("/:id", s.deleteItem)
	i.POST("/:id/comment", s.addComment)

	r := e.Group("/requests")
	r.POST("", s.createRequest)
	r.GET("", s.listOwnRequests)
	r.GET("/all", s.listOtherRequests)
	r.GET("/:id", s.getRequest)
}

// Handler is the root handler, used by tests and the server.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
