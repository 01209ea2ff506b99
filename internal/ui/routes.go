package ui

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	// Public routes (no auth required).
	r.Get("/login", ui.HandleLogin)
	r.Post("/login", ui.HandleLoginPost)
	r.Get("/login/verify", ui.HandleVerify)
	r.Post("/login/verify", ui.HandleVerifyPost)
	r.Get("/logout", ui.HandleLogout)

	// Protected routes (auth required).
	r.Group(func(r chi.Router) {
		r.Use(ui.AuthMiddleware)

		r.Get("/", ui.HandleDashboard)

		r.Route("/onboardings/{clientID}", func(r chi.Router) {
			r.Get("/", ui.HandleOnboarding)
			r.Post("/fields", ui.HandleFieldPost)
			r.Get("/notes", ui.HandleNotes)
			r.Post("/notes", ui.HandleNotePost)
			r.Get("/ion", ui.HandleION)
		})
	})
}
