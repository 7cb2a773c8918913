package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/storefront-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Route("/user", func(r chi.Router) {
			r.Post("/auth", h.Authenticate)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Get("/account", h.GetAccount)
				r.Get("/balance", h.GetBalance)
				r.Post("/balance/deposit", h.Deposit)
				r.Get("/transactions", h.GetTransactions)

				r.Post("/orders", h.CreateOrder)
				r.Get("/orders", h.GetOrders)

				r.Post("/tickets", h.CreateTicket)
				r.Get("/tickets", h.GetTickets)
				r.Get("/tickets/{id}/messages", h.GetTicketMessages)
				r.Post("/tickets/{id}/messages", h.AddTicketMessage)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(h.roleMiddleware.RequireAdmin)

			r.Get("/accounts", h.AdminListAccounts)
			r.Post("/accounts/{id}/adjust", h.AdminAdjustBalance)
			r.Post("/accounts/{id}/ban", h.AdminSetBan)
			r.Post("/accounts/{id}/tier", h.AdminSetTier)

			r.Get("/orders", h.AdminListOrders)
			r.Post("/orders/{id}/status", h.AdminSetOrderStatus)
			r.Post("/orders/{id}/refund", h.AdminRefundOrder)

			r.Post("/products", h.AdminCreateProduct)
			r.Put("/products/{id}", h.AdminUpdateProduct)

			r.Get("/tickets", h.AdminListTickets)
			r.Post("/tickets/{id}/close", h.AdminCloseTicket)
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
