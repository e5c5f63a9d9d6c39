package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/splitshare/splitshare-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса совместных подписок.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/balance", h.GetBalance)
			r.Get("/transactions", h.GetTransactions)

			r.Post("/withdrawals", h.Withdraw)
			r.Get("/withdrawals", h.GetWithdrawals)

			r.Get("/groups", h.MyGroups)
			r.Get("/memberships", h.MyMemberships)
		})
	})

	r.Route("/api/groups", func(r chi.Router) {
		r.Get("/", h.ListGroups)
		r.Get("/{groupID}", h.GetGroup)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateGroup)
			r.Put("/{groupID}", h.UpdateGroup)
			r.Delete("/{groupID}", h.DeleteGroup)
			r.Get("/{groupID}/credentials", h.GetGroupCredentials)
			r.Post("/{groupID}/join", h.JoinGroup)
		})
	})

	r.Route("/api/memberships", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/{membershipID}/leave", h.LeaveGroup)
	})

	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/order", h.CreateOrder)
			r.Post("/confirm", h.ConfirmPayment)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(h.authMiddleware.RequireAdmin)

		r.Get("/stats", h.DashboardStats)
		r.Get("/groups/pending", h.PendingGroups)
		r.Post("/groups/{groupID}/approve", h.ApproveGroup)
		r.Post("/groups/{groupID}/reject", h.RejectGroup)
		r.Post("/users/{userID}/adjust", h.AdjustBalance)
		r.Get("/withdrawals", h.ListWithdrawals)
		r.Post("/withdrawals/{withdrawalID}/process", h.ProcessWithdrawal)
		r.Get("/transactions", h.ListTransactions)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
