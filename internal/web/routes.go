package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	identitiesHandler := handlers.NewIdentitiesHandler(s.deps.Identities, s.deps.Matcher, s.deps.Photos)
	presenceHandler := handlers.NewPresenceHandler(s.deps.Coordinator)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Ledger)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Enrollment roster
		r.Get("/identities", identitiesHandler.List)
		r.Post("/identities", identitiesHandler.Enroll)
		r.Get("/identities/{id}", identitiesHandler.Get)

		// Face-driven attendance
		r.Post("/presence", presenceHandler.Present)

		// Attendance ledger
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Get("/attendance/today", attendanceHandler.Today)
		r.Get("/attendance/{date}", attendanceHandler.ByDate)
	})
}
