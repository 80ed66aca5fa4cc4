/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain: For service logic, models, and tagged errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/corebank/ledger-service/internal/app"
	"github.com/corebank/ledger-service/internal/domain"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

// CreateCustomerHandler handles requests to register a new customer.
func (h *LedgerHandlers) CreateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_customer outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.service.CreateCustomer(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "create_customer", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, customer)
}

// GetCustomerHandler handles requests to fetch a single customer by id.
func (h *LedgerHandlers) GetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.writeServiceError(w, "get_customer", err)
		return
	}

	h.writeJSON(w, http.StatusOK, customer)
}

// CreateAccountHandler handles requests to open a new bank account.
func (h *LedgerHandlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_account outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.service.CreateAccount(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "create_account", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, account)
}

// ListAccountsHandler handles requests to list all bank accounts.
func (h *LedgerHandlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.writeServiceError(w, "list_accounts", err)
		return
	}

	h.writeJSON(w, http.StatusOK, accounts)
}

// GetAccountHandler handles requests to fetch a single account by id.
func (h *LedgerHandlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, "get_account", err)
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// UpdateAccountHandler handles requests to freeze or unfreeze an account.
func (h *LedgerHandlers) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=update_account outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.service.SetAccountFrozen(r.Context(), accountID, req.IsFrozen)
	if err != nil {
		h.writeServiceError(w, "update_account", err)
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// DeleteAccountHandler handles requests to delete an account without transfer history.
func (h *LedgerHandlers) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), accountID); err != nil {
		h.writeServiceError(w, "delete_account", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateBalanceHandler handles deposits and withdrawals against a single account.
func (h *LedgerHandlers) UpdateBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=update_balance outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.service.UpdateBalance(r.Context(), accountID, req.Amount)
	if err != nil {
		h.writeServiceError(w, "update_balance", err)
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// CreateTransferHandler handles requests to move money between two accounts.
func (h *LedgerHandlers) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_transfer outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	log.Printf("level=info component=api endpoint=create_transfer outcome=accepted from_account_id=%d to_account_id=%d amount=%s",
		req.FromAccountID, req.ToAccountID, req.Amount)

	transfer, err := h.service.CreateTransfer(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "create_transfer", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, transfer)
}

// ListTransfersHandler returns the transfer history touching one account,
// optionally bounded by an UTC time window.
func (h *LedgerHandlers) ListTransfersHandler(w http.ResponseWriter, r *http.Request) {
	accountIDStr := r.URL.Query().Get("account_id")
	if accountIDStr == "" {
		h.writeError(w, http.StatusBadRequest, "account_id query parameter is required")
		return
	}
	accountID, err := strconv.ParseInt(accountIDStr, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "account_id must be an integer")
		return
	}

	fromUTC, err := parseOptionalTime(r.URL.Query().Get("from_utc"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "from_utc must be an RFC 3339 timestamp")
		return
	}
	toUTC, err := parseOptionalTime(r.URL.Query().Get("to_utc"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "to_utc must be an RFC 3339 timestamp")
		return
	}

	transfers, err := h.service.GetTransfers(r.Context(), accountID, fromUTC, toUTC)
	if err != nil {
		h.writeServiceError(w, "list_transfers", err)
		return
	}

	h.writeJSON(w, http.StatusOK, transfers)
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	utc := t.UTC()
	return &utc, nil
}

func (h *LedgerHandlers) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

// writeServiceError maps service errors onto HTTP status codes.
func (h *LedgerHandlers) writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	if errors.Is(err, app.ErrTransferRateLimited) {
		h.writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Kind {
		case domain.KindValidationFailed:
			h.writeError(w, http.StatusBadRequest, domainErr.Message)
		case domain.KindNotFound:
			h.writeError(w, http.StatusNotFound, domainErr.Message)
		case domain.KindBusinessRuleViolation, domain.KindConflict:
			h.writeError(w, http.StatusConflict, domainErr.Message)
		default:
			log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
