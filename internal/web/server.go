package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/faceclock/faceclock/internal/web/handlers"
	"github.com/faceclock/faceclock/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
}

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Attendance *handlers.AttendanceHandler
	Enroll     *handlers.EnrollHandler
	Exceptions *handlers.ExceptionHandler
}

// NewServer creates a new web server
func NewServer(host string, port int, h Handlers) *Server {
	r := chi.NewRouter()

	s := &Server{router: r}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())

	s.setupRoutes(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(h Handlers) {
	s.router.Get("/healthz", handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/checkin", h.Attendance.CheckIn)
		r.Post("/checkout", h.Attendance.CheckOut)
		r.Post("/break/start", h.Attendance.BreakStart)
		r.Post("/break/end", h.Attendance.BreakEnd)
		r.Post("/manual", h.Attendance.ManualEvent)
		r.Get("/status/{employeeID}", h.Attendance.Status)
		r.Get("/day/{employeeID}/{date}", h.Attendance.Day)

		r.Post("/enroll", h.Enroll.Enroll)
		r.Post("/enroll/revoke", h.Enroll.Revoke)

		r.Post("/exceptions", h.Exceptions.Submit)
		r.Post("/exceptions/{id}/decide", h.Exceptions.Decide)
		r.Get("/exceptions/pending", h.Exceptions.Pending)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
