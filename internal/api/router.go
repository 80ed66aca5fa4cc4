/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints and associates them with their corresponding handlers, along with
 * standard middleware for logging, panic recovery, and request timeouts.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRoutes creates and returns the router for the ledger service.
func LedgerRoutes(h *LedgerHandlers) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomerHandler)
		r.Get("/{id}", h.GetCustomerHandler)
	})

	r.Route("/bankaccounts", func(r chi.Router) {
		r.Post("/", h.CreateAccountHandler)
		r.Get("/", h.ListAccountsHandler)
		r.Get("/{id}", h.GetAccountHandler)
		r.Patch("/{id}", h.UpdateAccountHandler)
		r.Delete("/{id}", h.DeleteAccountHandler)
		r.Post("/{id}/balance", h.UpdateBalanceHandler)
	})

	r.Route("/transfers", func(r chi.Router) {
		r.Post("/", h.CreateTransferHandler)
		r.Get("/", h.ListTransfersHandler)
	})

	return r
}
