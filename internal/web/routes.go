package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/vms-kiosk/internal/web/handlers"
	"github.com/kozaktomas/vms-kiosk/internal/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// KioskRoles may operate the check-in screens.
var KioskRoles = []string{"security", "admin"}

func (s *Server) setupRoutes() {
	d := s.deps

	authHandler := handlers.NewAuthHandler(d.API, d.Session, d.Kiosk, s.logger)
	otpHandler := handlers.NewOTPHandler(d.OTP)
	clockHandler := handlers.NewClockHandler(d.Clock)
	screenHandler := handlers.NewScreenHandler(d.Kiosk, s.logger)
	scanHandler := handlers.NewScanHandler(d.Kiosk, s.logger)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/clock", clockHandler.Get)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Mobile verification is reachable from the welcome screen
		r.Get("/otp", otpHandler.Status)
		r.Post("/otp/send", otpHandler.Send)
		r.Post("/otp/resend", otpHandler.Resend)
		r.Post("/otp/verify", otpHandler.Verify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(d.Session, KioskRoles...))

			// Screens
			r.Get("/screen", screenHandler.Get)
			r.Post("/screen", screenHandler.Enter)
			r.Delete("/screen", screenHandler.Leave)

			// Face scan dialog
			r.Get("/scan", scanHandler.Status)
			r.Post("/scan", scanHandler.Open)
			r.Delete("/scan", scanHandler.Cancel)
			r.Get("/scan/events", scanHandler.Events)
			r.Get("/scan/preview", scanHandler.Preview)
			r.Get("/scan/image", scanHandler.Image)
			r.Post("/scan/capture", scanHandler.Capture)
			r.Post("/scan/retake", scanHandler.Retake)
			r.Post("/scan/submit", scanHandler.Submit)

			// Registration
			r.Get("/draft", screenHandler.Get)
			r.Put("/draft", screenHandler.UpdateDraft)
			r.Post("/draft/reset", screenHandler.ResetDraft)
			r.Post("/visitors", screenHandler.SubmitVisitor)
		})
	})
}
