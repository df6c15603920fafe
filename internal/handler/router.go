package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/gymreserve/internal/middleware"
	"github.com/mmeshcher/gymreserve/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса бронирования.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Post("/api/user/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/api/user/logout", h.Logout)
		r.Get("/api/user/home", h.Home)

		r.Route("/api/reservation", func(r chi.Router) {
			r.Get("/", h.GetDraft)
			r.Delete("/", h.AbandonDraft)
			r.Post("/facility", h.ConfirmFacility)
			r.Post("/apply", h.SubmitSchedule)
			r.Get("/instruments", h.GetInstruments)
			r.Post("/pay", h.SubmitPayment)
		})

		r.Route("/api/cms", func(r chi.Router) {
			r.Use(custommiddleware.RequireRole(model.RoleAdmin))

			r.Get("/reservations/drafts", h.ListDrafts)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
